// internal/clients/rental_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"rentvideo/internal/eventlog"
	"rentvideo/internal/rental"
)

func (c *Client) Rent(ctx context.Context, videoID uuid.UUID, days int) (*rental.Rental, error) {
	var rent rental.Rental
	req := rental.CheckoutRequest{VideoID: videoID, RentalDays: days}
	if err := c.do(ctx, http.MethodPost, "/api/rentals", req, &rent, http.StatusCreated); err != nil {
		return nil, err
	}
	return &rent, nil
}

func (c *Client) Return(ctx context.Context, rentalID uuid.UUID) (*rental.Rental, error) {
	var rent rental.Rental
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/rentals/%s/return", rentalID), nil, &rent, http.StatusOK); err != nil {
		return nil, err
	}
	return &rent, nil
}

func (c *Client) MyRentals(ctx context.Context) ([]*rental.Rental, error) {
	var rentals []*rental.Rental
	if err := c.do(ctx, http.MethodGet, "/api/rentals/my-rentals", nil, &rentals, http.StatusOK); err != nil {
		return nil, err
	}
	return rentals, nil
}

// ListRentals lists the whole ledger, or only rentals in status when it is set.
func (c *Client) ListRentals(ctx context.Context, status rental.Status) ([]*rental.Rental, error) {
	path := "/api/rentals"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}

	var rentals []*rental.Rental
	if err := c.do(ctx, http.MethodGet, path, nil, &rentals, http.StatusOK); err != nil {
		return nil, err
	}
	return rentals, nil
}

func (c *Client) SweepOverdue(ctx context.Context, asOf rental.Date) (*rental.SweepResponse, error) {
	path := "/api/rentals/sweep-overdue"
	if !asOf.IsZero() {
		path += "?asOf=" + asOf.String()
	}

	var res rental.SweepResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) History(ctx context.Context, aggregateID uuid.UUID) ([]eventlog.Event, error) {
	var events []eventlog.Event
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/audit/%s", aggregateID), nil, &events, http.StatusOK); err != nil {
		return nil, err
	}
	return events, nil
}
