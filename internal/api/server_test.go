package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/mapleapp/maple-server/internal/auth"
	"github.com/mapleapp/maple-server/internal/media/audio"
	"github.com/mapleapp/maple-server/internal/service"
	"github.com/mapleapp/maple-server/internal/sse"
	"github.com/mapleapp/maple-server/internal/store"
)

// testServer wraps the API server and its humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer creates a fully wired server backed by a temp store.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "maple-api-test-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)

	require.NoError(t, st.SeedBuiltInPrompts(t.Context()))

	keyHex, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokenService, err := auth.NewTokenService(keyHex, 15*time.Minute)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)

	audioStorage, err := audio.NewStorage(filepath.Join(tmpDir, "audio"))
	require.NoError(t, err)

	tagService := service.NewTagService(st, "Papers", logger)
	paperService := service.NewPaperService(st, logger)
	promptService := service.NewPromptService(st, logger)
	recordingService := service.NewRecordingService(
		st,
		tagService,
		paperService,
		promptService,
		service.PassthroughReformatter{},
		audioStorage,
		store.NewNoopEmitter(),
		100,
		logger,
	)

	services := &Services{
		Auth:      service.NewAuthService(st, tokenService, logger),
		Tag:       tagService,
		Paper:     paperService,
		Prompt:    promptService,
		Recording: recordingService,
	}

	sseManager := sse.NewManager(logger)

	s := NewServer(st, services, sseManager, logger)

	t.Cleanup(func() {
		_ = st.Close()
		_ = os.RemoveAll(tmpDir)
	})

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// registerUser creates an account and returns its bearer header and user ID.
func (ts *testServer) registerUser(t *testing.T, email string) (authHeader, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        email,
		"password":     "correct horse battery staple",
		"display_name": "Test User",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body AuthResponse
	unwrapData(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	require.NotEmpty(t, body.User.ID)

	return "Authorization: Bearer " + body.AccessToken, body.User.ID
}

// unwrapData decodes the data field of a success envelope into target.
func unwrapData(t *testing.T, resp *httptest.ResponseRecorder, target any) {
	t.Helper()

	var envelope struct {
		Version int             `json:"v"`
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, EnvelopeVersion, envelope.Version)
	require.True(t, envelope.Success, resp.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

// errorCode extracts the machine-readable code from an error envelope.
func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Version int    `json:"v"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, EnvelopeVersion, envelope.Version)
	return envelope.Code
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var body HealthResponse
	unwrapData(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Components["database"].Status)
	assert.Equal(t, "healthy", body.Components["sse"].Status)
}

func TestServerServesOverHTTP(t *testing.T) {
	ts := setupTestServer(t)

	// Full stack through chi, middleware included.
	srv := httptest.NewServer(ts.Server)
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/health", srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	ts := setupTestServer(t)

	paths := []string{
		"/api/v1/tags",
		"/api/v1/papers",
		"/api/v1/recordings",
		"/api/v1/prompts",
		"/api/v1/users/me",
	}

	for _, path := range paths {
		resp := ts.api.Get(path)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}

	resp := ts.api.Get("/api/v1/tags", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
