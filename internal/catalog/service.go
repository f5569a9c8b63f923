package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddVideo(ctx context.Context, in VideoInput) (*Video, error)
	GetVideo(ctx context.Context, id uuid.UUID) (*Video, error)
	ListVideos(ctx context.Context, filter Filter) ([]*Video, error)
	UpdateVideo(ctx context.Context, id uuid.UUID, in VideoInput) (*Video, error)
	RemoveVideo(ctx context.Context, id uuid.UUID) error
	CountVideos(ctx context.Context) (int, error)
}
