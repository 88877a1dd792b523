package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTag makes a tag over the API and returns its response.
func (ts *testServer) createTag(t *testing.T, authHeader, kind, value string) TagResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/tags", authHeader, map[string]any{
		"kind":  kind,
		"value": value,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var tag TagResponse
	unwrapData(t, resp, &tag)
	return tag
}

func TestCreateTag(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, userID := ts.registerUser(t, "alice@example.com")

	tag := ts.createTag(t, authHeader, "folder", "Work")

	assert.NotEmpty(t, tag.ID)
	assert.Equal(t, userID, tag.OwnerUserID)
	assert.Equal(t, "folder", tag.Kind)
	assert.Equal(t, "Work", tag.Value)
	require.Len(t, tag.SharedWith, 1)
	assert.Equal(t, userID, tag.SharedWith[0].UserID)
	assert.Equal(t, "write", tag.SharedWith[0].Level)
}

func TestCreateTagUnknownKind(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	resp := ts.api.Post("/api/v1/tags", authHeader, map[string]any{
		"kind":  "mood",
		"value": "Happy",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, resp))
}

func TestListTagsCreatesDefaultFolder(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, userID := ts.registerUser(t, "alice@example.com")

	resp := ts.api.Get("/api/v1/tags", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var body ListTagsResponse
	unwrapData(t, resp, &body)
	require.Len(t, body.Tags, 1)
	assert.Equal(t, "folder", body.Tags[0].Kind)
	assert.Equal(t, "Papers", body.Tags[0].Value)
	assert.Equal(t, userID, body.Tags[0].OwnerUserID)

	// Second list returns the same tag, not another default.
	resp = ts.api.Get("/api/v1/tags", authHeader)
	require.Equal(t, http.StatusOK, resp.Code)

	var again ListTagsResponse
	unwrapData(t, resp, &again)
	require.Len(t, again.Tags, 1)
	assert.Equal(t, body.Tags[0].ID, again.Tags[0].ID)
}

func TestGetTagRequiresGrant(t *testing.T) {
	ts := setupTestServer(t)
	aliceHeader, _ := ts.registerUser(t, "alice@example.com")
	bobHeader, _ := ts.registerUser(t, "bob@example.com")

	tag := ts.createTag(t, aliceHeader, "folder", "Work")

	resp := ts.api.Get("/api/v1/tags/"+tag.ID, aliceHeader)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/tags/"+tag.ID, bobHeader)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/tags/tag-missing", aliceHeader)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateTag(t *testing.T) {
	ts := setupTestServer(t)
	authHeader, _ := ts.registerUser(t, "alice@example.com")

	tag := ts.createTag(t, authHeader, "folder", "Work")

	resp := ts.api.Patch("/api/v1/tags/"+tag.ID, authHeader, map[string]any{
		"value": "Projects",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var updated TagResponse
	unwrapData(t, resp, &updated)
	assert.Equal(t, "Projects", updated.Value)
	assert.Equal(t, "folder", updated.Kind)
}

func TestUpdateTagRequiresWriteGrant(t *testing.T) {
	ts := setupTestServer(t)
	aliceHeader, _ := ts.registerUser(t, "alice@example.com")
	bobHeader, bobID := ts.registerUser(t, "bob@example.com")

	tag := ts.createTag(t, aliceHeader, "folder", "Work")

	// A read grant is not enough to rename the tag.
	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/users", aliceHeader, map[string]any{
		"user_id":      bobID,
		"access_level": "read",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Patch("/api/v1/tags/"+tag.ID, bobHeader, map[string]any{
		"value": "Hijacked",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAddUserToTag(t *testing.T) {
	ts := setupTestServer(t)
	aliceHeader, _ := ts.registerUser(t, "alice@example.com")
	bobHeader, bobID := ts.registerUser(t, "bob@example.com")

	tag := ts.createTag(t, aliceHeader, "folder", "Shared")

	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/users", aliceHeader, map[string]any{
		"user_id":      bobID,
		"access_level": "read",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var shared TagResponse
	unwrapData(t, resp, &shared)
	assert.Len(t, shared.SharedWith, 2)

	// Bob can now read the tag.
	resp = ts.api.Get("/api/v1/tags/"+tag.ID, bobHeader)
	assert.Equal(t, http.StatusOK, resp.Code)

	// Granting the same user twice conflicts.
	resp = ts.api.Post("/api/v1/tags/"+tag.ID+"/users", aliceHeader, map[string]any{
		"user_id":      bobID,
		"access_level": "write",
	})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, resp))
}

func TestAddUserToTagBadLevel(t *testing.T) {
	ts := setupTestServer(t)
	aliceHeader, _ := ts.registerUser(t, "alice@example.com")
	_, bobID := ts.registerUser(t, "bob@example.com")

	tag := ts.createTag(t, aliceHeader, "folder", "Shared")

	resp := ts.api.Post("/api/v1/tags/"+tag.ID+"/users", aliceHeader, map[string]any{
		"user_id":      bobID,
		"access_level": "owner",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", errorCode(t, resp))
}
