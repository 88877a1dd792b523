package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleapp/maple-server/internal/domain"
)

func newTestUser(id, email string) *domain.User {
	u := &domain.User{
		Email:       email,
		DisplayName: "Test User",
	}
	u.ID = id
	u.InitTimestamps()
	return u
}

func TestCreateUser(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "alice@example.com")))

	user, err := s.GetUser(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "alice@example.com")))

	// Email uniqueness is case-insensitive.
	err := s.CreateUser(ctx, newTestUser("usr-2", "Alice@Example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, newTestUser("usr-1", "alice@example.com")))

	user, err := s.GetUserByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", user.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	user := newTestUser("usr-1", "alice@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	user.DisplayName = "Alice"
	require.NoError(t, s.UpdateUser(ctx, user))

	fetched, err := s.GetUser(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", fetched.DisplayName)
}
