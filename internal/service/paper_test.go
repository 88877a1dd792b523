package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleapp/maple-server/internal/domain"
	domainerrors "github.com/mapleapp/maple-server/internal/errors"
)

func createTestTag(t *testing.T, s *testServices, userID, value string) *domain.Tag {
	t.Helper()
	tag, err := s.tags.CreateTag(t.Context(), userID, CreateTagRequest{
		Kind:  domain.TagKindFolder,
		Value: value,
	})
	require.NoError(t, err)
	return tag
}

func TestCreatePaperValidation(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tag := createTestTag(t, s, "usr-alice", "stuff")

	t.Run("empty tags", func(t *testing.T) {
		_, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
			Type: domain.PaperTypeNote,
			Data: map[string]any{"text": "hi"},
		})
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.Validation("")))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
			TagIDs: []string{tag.ID},
			Data:   map[string]any{"text": "hi"},
		})
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.Validation("")))
	})

	t.Run("collectible requires item_id", func(t *testing.T) {
		_, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
			TagIDs: []string{tag.ID},
			Type:   domain.PaperTypeCollectible,
			Data:   map[string]any{"status": "want"},
		})
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.Validation("")))
	})
}

func TestCreatePaperFirstTagWriteRequired(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tag := createTestTag(t, s, "usr-alice", "stuff")

	// Bob has read only.
	_, err := s.tags.AddUserToTag(ctx, tag.ID, "usr-bob", domain.AccessRead, "usr-alice")
	require.NoError(t, err)

	req := CreatePaperRequest{
		TagIDs: []string{tag.ID},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "hi"},
	}

	_, err = s.papers.CreatePaper(ctx, "usr-bob", req)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.Forbidden("")))

	// A missing first tag looks the same as a denied one.
	_, err = s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{"tag-missing"},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "hi"},
	})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.Forbidden("")))

	view, err := s.papers.CreatePaper(ctx, "usr-alice", req)
	require.NoError(t, err)
	assert.Equal(t, "usr-alice", view.CreatedBy)
	require.Len(t, view.Tags, 1)
	assert.Equal(t, tag.ID, view.Tags[0].ID)
}

func TestGetPaperAccessUnion(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tagA := createTestTag(t, s, "usr-alice", "private")
	tagB := createTestTag(t, s, "usr-alice", "shared")

	_, err := s.tags.AddUserToTag(ctx, tagB.ID, "usr-bob", domain.AccessRead, "usr-alice")
	require.NoError(t, err)

	view, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{tagA.ID, tagB.ID},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "hello"},
	})
	require.NoError(t, err)

	// Owner reads.
	_, err = s.papers.GetPaper(ctx, view.ID, "usr-alice")
	require.NoError(t, err)

	// Bob reads through a grant on any one tag.
	got, err := s.papers.GetPaper(ctx, view.ID, "usr-bob")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Data["text"])

	// Carol has no grant on any tag.
	_, err = s.papers.GetPaper(ctx, view.ID, "usr-carol")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.Forbidden("")))

	// Missing paper is NotFound, not Forbidden.
	_, err = s.papers.GetPaper(ctx, "paper-missing", "usr-alice")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.NotFound("")))
}

func TestListUserPapers(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	aliceTag := createTestTag(t, s, "usr-alice", "lego")
	bobTag := createTestTag(t, s, "usr-bob", "bob-stuff")

	_, err := s.tags.AddUserToTag(ctx, bobTag.ID, "usr-alice", domain.AccessRead, "usr-bob")
	require.NoError(t, err)

	owned, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{aliceTag.ID},
		Type:   domain.PaperTypeCollectible,
		Data:   map[string]any{"item_id": "75192", "status": "want", "quantity": 1},
	})
	require.NoError(t, err)

	shared, err := s.papers.CreatePaper(ctx, "usr-bob", CreatePaperRequest{
		TagIDs: []string{bobTag.ID},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "bob's note"},
	})
	require.NoError(t, err)

	t.Run("union of owned and shared", func(t *testing.T) {
		views, err := s.papers.ListUserPapers(ctx, "usr-alice", "")
		require.NoError(t, err)
		require.Len(t, views, 2)

		ids := []string{views[0].ID, views[1].ID}
		assert.Contains(t, ids, owned.ID)
		assert.Contains(t, ids, shared.ID)
	})

	t.Run("type filter", func(t *testing.T) {
		views, err := s.papers.ListUserPapers(ctx, "usr-alice", domain.PaperTypeCollectible)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "75192", views[0].Data["item_id"])
	})

	t.Run("no duplicates for owned shared papers", func(t *testing.T) {
		// Alice's own paper is also reachable through her tag grant.
		views, err := s.papers.ListUserPapers(ctx, "usr-alice", "")
		require.NoError(t, err)
		seen := map[string]int{}
		for _, v := range views {
			seen[v.ID]++
		}
		for id, n := range seen {
			assert.Equal(t, 1, n, "paper %s listed %d times", id, n)
		}
	})
}

func TestListPapersByTag(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tag := createTestTag(t, s, "usr-alice", "Lego")

	_, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{tag.ID},
		Type:   domain.PaperTypeCollectible,
		Data:   map[string]any{"item_id": "75192"},
	})
	require.NoError(t, err)

	t.Run("no grant reads as not found", func(t *testing.T) {
		_, err := s.papers.ListPapersByTag(ctx, "usr-bob", tag.ID, "")
		require.Error(t, err)
		assert.True(t, domainerrors.Is(err, domainerrors.NotFound("")))
	})

	t.Run("grant holder sees all papers on the tag", func(t *testing.T) {
		_, err := s.tags.AddUserToTag(ctx, tag.ID, "usr-bob", domain.AccessRead, "usr-alice")
		require.NoError(t, err)

		views, err := s.papers.ListPapersByTag(ctx, "usr-bob", tag.ID, "")
		require.NoError(t, err)
		assert.Len(t, views, 1)
	})

	t.Run("type filter excludes", func(t *testing.T) {
		views, err := s.papers.ListPapersByTag(ctx, "usr-alice", tag.ID, domain.PaperTypeNote)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestUpdatePaperSharedWrite(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tag := createTestTag(t, s, "usr-alice", "collab")

	view, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{tag.ID},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "v1", "pinned": true},
	})
	require.NoError(t, err)

	patch := UpdatePaperRequest{Data: map[string]any{"text": "v2"}}

	// Read grant is not enough to update.
	_, err = s.tags.AddUserToTag(ctx, tag.ID, "usr-bob", domain.AccessRead, "usr-alice")
	require.NoError(t, err)
	_, err = s.papers.UpdatePaper(ctx, view.ID, "usr-bob", patch)
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.Forbidden("")))

	// Upgrade to write via a fresh tag grant path: alice re-shares with write.
	stored, err := s.store.GetTagByID(ctx, tag.ID)
	require.NoError(t, err)
	for i := range stored.Sharing.SharedWith {
		if stored.Sharing.SharedWith[i].UserID == "usr-bob" {
			stored.Sharing.SharedWith[i].Level = domain.AccessWrite
		}
	}
	require.NoError(t, s.store.UpdateTag(ctx, stored))

	updated, err := s.papers.UpdatePaper(ctx, view.ID, "usr-bob", patch)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Data["text"])
	// Shallow merge keeps untouched keys.
	assert.Equal(t, true, updated.Data["pinned"])
	// Ownership never moves.
	assert.Equal(t, "usr-alice", updated.CreatedBy)
}

func TestUpdatePaperReplacesTags(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tagA := createTestTag(t, s, "usr-alice", "a")
	tagB := createTestTag(t, s, "usr-alice", "b")

	view, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{tagA.ID},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "hi"},
	})
	require.NoError(t, err)

	updated, err := s.papers.UpdatePaper(ctx, view.ID, "usr-alice", UpdatePaperRequest{
		TagIDs: []string{tagB.ID},
	})
	require.NoError(t, err)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, tagB.ID, updated.Tags[0].ID)
}

func TestDeletePaperOwnerOnly(t *testing.T) {
	s := setupTestServices(t)
	ctx := t.Context()
	tag := createTestTag(t, s, "usr-alice", "stuff")

	// Bob gets write on the tag; still cannot delete.
	_, err := s.tags.AddUserToTag(ctx, tag.ID, "usr-bob", domain.AccessWrite, "usr-alice")
	require.NoError(t, err)

	view, err := s.papers.CreatePaper(ctx, "usr-alice", CreatePaperRequest{
		TagIDs: []string{tag.ID},
		Type:   domain.PaperTypeNote,
		Data:   map[string]any{"text": "hi"},
	})
	require.NoError(t, err)

	err = s.papers.DeletePaper(ctx, view.ID, "usr-bob")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.Forbidden("")))

	require.NoError(t, s.papers.DeletePaper(ctx, view.ID, "usr-alice"))

	err = s.papers.DeletePaper(ctx, view.ID, "usr-alice")
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.NotFound("")))
}
