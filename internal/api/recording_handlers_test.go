package api

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createRecording stores a voice memo over the API and returns its paper.
func (ts *testServer) createRecording(t *testing.T, authHeader string, body map[string]any) PaperResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/recordings", authHeader, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var paper PaperResponse
	unwrapData(t, resp, &paper)
	return paper
}

func TestCreateRecording(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, userID := ts.registerUser(t, "alice@example.com")

	paper := ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-1",
		"transcript":   "Notes we discussed the roadmap",
		"duration":     12.5,
	})

	assert.Equal(t, "recording", paper.Type)
	assert.Equal(t, userID, paper.CreatedBy)
	assert.Equal(t, "rec-1", paper.Data["recording_id"])
	assert.Equal(t, "pending", paper.Data["audio_sync_status"])

	// The recordings folder tag is created lazily.
	require.Len(t, paper.Tags, 1)
	assert.Equal(t, "folder", paper.Tags[0].Kind)
	assert.Equal(t, "recordings", paper.Tags[0].Value)

	// The built-in "notes" prompt matched, seeding one history entry.
	history, ok := paper.Data["processing_history"].([]any)
	require.True(t, ok, "processing_history must be a list")
	require.Len(t, history, 1)
	entry, ok := history[0].(map[string]any)
	require.True(t, ok)
	prompt, ok := entry["prompt_used"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notes", prompt["trigger_word"])
}

func TestCreateRecordingRequiresTranscript(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	// Transcript is required by the request schema.
	resp := ts.api.Post("/api/v1/recordings", authHeader, map[string]any{
		"duration": 3.0,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestListRecordings(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-old",
		"transcript":   "first memo",
		"timestamp":    "2026-08-01T10:00:00Z",
	})
	ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-new",
		"transcript":   "second memo",
		"timestamp":    "2026-08-20T10:00:00Z",
	})

	resp := ts.api.Get("/api/v1/recordings", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var body ListPapersResponse
	unwrapData(t, resp, &body)
	require.Len(t, body.Papers, 2)
	assert.Equal(t, "rec-new", body.Papers[0].Data["recording_id"], "newest recording first")
	assert.Equal(t, "rec-old", body.Papers[1].Data["recording_id"])
}

func TestReprocessRecording(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	paper := ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-1",
		"transcript":   "just a plain memo",
	})

	resp := ts.api.Post("/api/v1/recordings/"+paper.ID+"/reprocess", authHeader, map[string]any{
		"trigger_word": "summarize",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var reprocessed PaperResponse
	unwrapData(t, resp, &reprocessed)

	history, ok := reprocessed.Data["processing_history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 2, "reprocessing appends, never rewrites")

	latest, ok := history[1].(map[string]any)
	require.True(t, ok)
	prompt, ok := latest["prompt_used"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "summarize", prompt["trigger_word"])
}

func TestReprocessRecordingOwnerOnly(t *testing.T) {
	ts := setupTestServer(t)
	aliceHeader, _ := ts.registerUser(t, "alice@example.com")
	bobHeader, _ := ts.registerUser(t, "bob@example.com")

	paper := ts.createRecording(t, aliceHeader, map[string]any{
		"recording_id": "rec-1",
		"transcript":   "private memo",
	})

	resp := ts.api.Post("/api/v1/recordings/"+paper.ID+"/reprocess", bobHeader, map[string]any{})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/recordings/ppr-missing/reprocess", aliceHeader, map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateAudioStatus(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	paper := ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-1",
		"transcript":   "a memo",
	})

	resp := ts.api.Put("/api/v1/recordings/rec-1/audio-status", authHeader, map[string]any{
		"status":    "failed",
		"audio_url": "",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/papers/"+paper.ID, authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var updated PaperResponse
	unwrapData(t, resp, &updated)
	assert.Equal(t, "failed", updated.Data["audio_sync_status"])

	// Unknown recordings are acknowledged without effect.
	resp = ts.api.Put("/api/v1/recordings/rec-ghost/audio-status", authHeader, map[string]any{
		"status": "uploaded",
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	// Unknown status values are rejected.
	resp = ts.api.Put("/api/v1/recordings/rec-1/audio-status", authHeader, map[string]any{
		"status": "teleported",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUploadAndDownloadAudio(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	paper := ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-1",
		"transcript":   "a memo",
	})

	blob := []byte("not really audio but close enough")
	resp := ts.api.Post("/api/v1/recordings/rec-1/audio", authHeader, bytes.NewReader(blob))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Upload flips the sync status and records the serving URL.
	resp = ts.api.Get("/api/v1/papers/"+paper.ID, authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var updated PaperResponse
	unwrapData(t, resp, &updated)
	assert.Equal(t, "uploaded", updated.Data["audio_sync_status"])
	assert.Contains(t, updated.Data["audio_url"], "rec-1")

	resp = ts.api.Get("/api/v1/recordings/rec-1/audio", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, blob, resp.Body.Bytes())
}

func TestDownloadMissingAudio(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	ts.createRecording(t, authHeader, map[string]any{
		"recording_id": "rec-1",
		"transcript":   "a memo",
	})

	// Recording exists but no audio was uploaded yet.
	resp := ts.api.Get("/api/v1/recordings/rec-1/audio", authHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/recordings/rec-ghost/audio", authHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
