// internal/clients/catalog_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"rentvideo/internal/catalog"
	"rentvideo/internal/httpx"
)

func (c *Client) ListVideos(ctx context.Context, f catalog.Filter) ([]*catalog.Video, error) {
	q := url.Values{}
	if f.Title != "" {
		q.Set("title", f.Title)
	}
	if f.Genre != "" {
		q.Set("genre", f.Genre)
	}
	if f.AvailableOnly {
		q.Set("availableOnly", strconv.FormatBool(true))
	}
	path := "/api/videos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var videos []*catalog.Video
	if err := c.do(ctx, http.MethodGet, path, nil, &videos, http.StatusOK); err != nil {
		return nil, err
	}
	return videos, nil
}

func (c *Client) GetVideo(ctx context.Context, id uuid.UUID) (*catalog.Video, error) {
	var video catalog.Video
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/videos/%s", id), nil, &video, http.StatusOK); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) AddVideo(ctx context.Context, in catalog.VideoInput) (*catalog.Video, error) {
	var video catalog.Video
	if err := c.do(ctx, http.MethodPost, "/api/videos", in, &video, http.StatusCreated); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) UpdateVideo(ctx context.Context, id uuid.UUID, in catalog.VideoInput) (*catalog.Video, error) {
	var video catalog.Video
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/videos/%s", id), in, &video, http.StatusOK); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	var msg httpx.MessageResponse
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/videos/%s", id), nil, &msg, http.StatusOK)
}
