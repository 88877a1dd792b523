package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "alice@example.com",
		"password":     "correct horse battery staple",
		"display_name": "Alice",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var registered AuthResponse
	unwrapData(t, resp, &registered)
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, "Bearer", registered.TokenType)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.Equal(t, "Alice", registered.User.DisplayName)
	assert.NotContains(t, resp.Body.String(), "password_hash")

	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "correct horse battery staple",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var loggedIn AuthResponse
	unwrapData(t, resp, &loggedIn)
	assert.NotEmpty(t, loggedIn.AccessToken)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerUser(t, "alice@example.com")

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        "alice@example.com",
		"password":     "another password here",
		"display_name": "Alice Again",
	})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, resp))
}

func TestRegisterValidation(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			// Missing fields fail the request schema before the handler runs.
			name: "missing email",
			body: map[string]any{"password": "long enough password", "display_name": "X"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "invalid email",
			body: map[string]any{"email": "nope", "password": "long enough password", "display_name": "X"},
			want: http.StatusBadRequest,
		},
		{
			name: "short password",
			body: map[string]any{"email": "x@example.com", "password": "short", "display_name": "X"},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/auth/register", tt.body)
			assert.Equal(t, tt.want, resp.Code, resp.Body.String())
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerUser(t, "alice@example.com")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "definitely not the password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, resp))
}

func TestLoginUnknownEmail(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "ghost@example.com",
		"password": "some password here",
	})
	// Same status as a wrong password so probing cannot tell accounts apart.
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, resp))
}

func TestLoginRateLimited(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerUser(t, "alice@example.com")

	ts.authRateLimiter = NewRateLimiter(2, time.Minute, 2)

	body := map[string]any{
		"email":    "alice@example.com",
		"password": "correct horse battery staple",
	}

	for range 2 {
		resp := ts.api.Post("/api/v1/auth/login", body)
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
}

func TestGetCurrentUser(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, userID := ts.registerUser(t, "alice@example.com")

	resp := ts.api.Get("/api/v1/users/me", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var user UserResponse
	unwrapData(t, resp, &user)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
}
