// internal/account/service.go
package account

import (
	"context"
)

// Service defines the interface for the account service.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	CreateWithRole(ctx context.Context, in RegisterInput, role Role) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, username string, in UpdateProfileInput) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	CountUsers(ctx context.Context) (int, error)
}
