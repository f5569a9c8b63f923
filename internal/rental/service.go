// internal/rental/service.go
package rental

import (
	"context"

	"github.com/google/uuid"

	"rentvideo/internal/account"
)

// Service defines the interface for the rental lifecycle engine.
type Service interface {
	Checkout(ctx context.Context, p account.Principal, videoID uuid.UUID, rentalDays int) (*Rental, error)
	Return(ctx context.Context, p account.Principal, rentalID uuid.UUID) (*Rental, error)
	ListAll(ctx context.Context) ([]*Rental, error)
	ListForUser(ctx context.Context, p account.Principal) ([]*Rental, error)
	ListByStatus(ctx context.Context, status Status) ([]*Rental, error)
	MarkOverdue(ctx context.Context, asOf Date) (int, error)
	Today() Date
}
