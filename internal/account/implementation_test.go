package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"

	"rentvideo/internal/apperr"
	"rentvideo/internal/database/dbtest"
	"rentvideo/internal/eventlog"
)

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	opts = append([]Option{WithRateLimit(rate.Inf, 0)}, opts...)
	return NewService(dbtest.New(t), NewRepository(), eventlog.NewLog(), zaptest.NewLogger(t), opts...)
}

func registerInput(username, email string) RegisterInput {
	return RegisterInput{
		Username:    username,
		Password:    "secret123",
		FullName:    "Test User",
		Email:       email,
		PhoneNumber: "555-0100",
	}
}

func strPtr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	assert.Equal(t, RoleUser, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	got, err := svc.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, RoleUser, got.Role)
}

func TestRegisterDuplicates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerInput("alice", "other@example.com"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.Register(ctx, registerInput("bob", "alice@example.com"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Register(context.Background(), registerInput("alice", "not-an-email"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	in := registerInput("alice", "alice@example.com")
	in.Password = ""
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRateLimit(t *testing.T) {
	svc := newTestService(t, WithRateLimit(rate.Every(time.Hour), 1))
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("alice", "alice@example.com"))
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "secret123")
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
}

func TestUpdateProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerInput("alice", "alice@example.com"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, registerInput("bob", "bob@example.com"))
	require.NoError(t, err)

	user, err := svc.UpdateProfile(ctx, "alice", UpdateProfileInput{FullName: strPtr("Alice Liddell")})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.FullName)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "555-0100", user.PhoneNumber)
	assert.Equal(t, 2, user.Version)

	_, err = svc.UpdateProfile(ctx, "alice", UpdateProfileInput{Email: strPtr("bob@example.com")})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	user, err = svc.UpdateProfile(ctx, "alice", UpdateProfileInput{Email: strPtr("alice@wonderland.example")})
	require.NoError(t, err)
	assert.Equal(t, "alice@wonderland.example", user.Email)
	assert.Equal(t, "Alice Liddell", user.FullName)

	_, err = svc.UpdateProfile(ctx, "nobody", UpdateProfileInput{FullName: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateWithRoleAndList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin, err := svc.CreateWithRole(ctx, registerInput("admin", "admin@example.com"), RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)

	_, err = svc.Register(ctx, registerInput("zed", "zed@example.com"))
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "zed", users[1].Username)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, salt, err := hashPassword("hunter22")
	require.NoError(t, err)

	ok, err := verifyPassword("hunter22", salt, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("hunter23", salt, hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = verifyPassword("hunter22", "%%%", hash)
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Username: "alice", Role: RoleAdmin})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
	assert.Equal(t, "alice", p.Username)
}
