package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleapp/maple-server/internal/domain"
	"github.com/mapleapp/maple-server/internal/store"
)

// testEnv bundles a store, its audio directory, and a backup service
// rooted in a temp dir.
type testEnv struct {
	store     *store.Store
	service   *Service
	audioPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	audioPath := filepath.Join(dir, "audio")
	require.NoError(t, os.MkdirAll(audioPath, 0o755))

	st, err := store.New(filepath.Join(dir, "db"), nil, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, filepath.Join(dir, "backups"), audioPath, "Test Server", "1.0.0", nil)

	return &testEnv{store: st, service: svc, audioPath: audioPath}
}

// seed populates the source store with one of everything.
func (env *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := t.Context()

	now := time.Now()

	user := &domain.User{
		Entity:       domain.Entity{ID: "usr-1", CreatedAt: now, UpdatedAt: now},
		Email:        "alice@example.com",
		PasswordHash: "not-a-real-hash",
		DisplayName:  "Alice",
	}
	require.NoError(t, env.store.CreateUser(ctx, user))

	tag := &domain.Tag{
		Entity:      domain.Entity{ID: "tag-1", CreatedAt: now, UpdatedAt: now},
		OwnerUserID: "usr-1",
		Kind:        domain.TagKindFolder,
		Value:       "Papers",
		Sharing: domain.TagSharing{
			SharedWith: []domain.Grant{{UserID: "usr-1", Level: domain.AccessWrite}},
		},
	}
	require.NoError(t, env.store.CreateTag(ctx, tag))

	paper := &domain.Paper{
		Entity:    domain.Entity{ID: "paper-1", CreatedAt: now, UpdatedAt: now},
		TagIDs:    []string{"tag-1"},
		Type:      domain.PaperTypeNote,
		Data:      map[string]any{"title": "groceries"},
		CreatedBy: "usr-1",
	}
	require.NoError(t, env.store.CreatePaper(ctx, paper))

	prompt := &domain.Prompt{
		Entity:      domain.Entity{ID: "prompt-1", CreatedAt: now, UpdatedAt: now},
		UserID:      "usr-1",
		TriggerWord: "recap",
		PromptText:  "Summarize the week.",
		IsActive:    true,
	}
	require.NoError(t, env.store.CreatePrompt(ctx, prompt))

	require.NoError(t, os.WriteFile(filepath.Join(env.audioPath, "rec-1.m4a"), []byte("fake audio bytes"), 0o644))
}

func TestBackupRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	src.seed(t)
	ctx := t.Context()

	result, err := src.service.Create(ctx, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.Users)
	assert.Equal(t, 1, result.Counts.Tags)
	assert.Equal(t, 1, result.Counts.Papers)
	assert.Equal(t, 1, result.Counts.Prompts)
	assert.Equal(t, 1, result.Counts.AudioFiles)
	assert.NotEmpty(t, result.Checksum)
	assert.Positive(t, result.Size)
	assert.FileExists(t, result.Path)

	dst := newTestEnv(t)
	restored, err := dst.service.Restore(ctx, result.Path)
	require.NoError(t, err)

	assert.Empty(t, restored.Errors)
	assert.Equal(t, 1, restored.Imported["user"])
	assert.Equal(t, 1, restored.Imported["tag"])
	assert.Equal(t, 1, restored.Imported["paper"])
	assert.Equal(t, 1, restored.Imported["prompt"])
	assert.Equal(t, 1, restored.Imported["audio"])

	user, err := dst.store.GetUser(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	tag, err := dst.store.GetTagByID(ctx, "tag-1")
	require.NoError(t, err)
	assert.Equal(t, "Papers", tag.Value)
	require.Len(t, tag.Sharing.SharedWith, 1)
	assert.Equal(t, domain.AccessWrite, tag.Sharing.SharedWith[0].Level)

	paper, err := dst.store.GetPaperByID(ctx, "paper-1")
	require.NoError(t, err)
	assert.Equal(t, "groceries", paper.Data["title"])

	// Index keys are rebuilt, not copied, so secondary lookups work.
	byEmail, err := dst.store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", byEmail.ID)

	papers, err := dst.store.ListPapersByTag(ctx, "tag-1")
	require.NoError(t, err)
	assert.Len(t, papers, 1)

	audio, err := os.ReadFile(filepath.Join(dst.audioPath, "rec-1.m4a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake audio bytes"), audio)
}

func TestBackupWithoutAudio(t *testing.T) {
	src := newTestEnv(t)
	src.seed(t)

	result, err := src.service.Create(t.Context(), Options{IncludeAudio: false})
	require.NoError(t, err)

	assert.Zero(t, result.Counts.AudioFiles)

	validation, err := src.service.Validate(t.Context(), result.Path)
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.False(t, validation.Manifest.IncludesAudio)
}

func TestRestoreRefusesNonEmptyStore(t *testing.T) {
	src := newTestEnv(t)
	src.seed(t)

	result, err := src.service.Create(t.Context(), DefaultOptions())
	require.NoError(t, err)

	dst := newTestEnv(t)
	dst.seed(t)

	_, err = dst.service.Restore(t.Context(), result.Path)
	assert.ErrorIs(t, err, ErrStoreNotEmpty)
}

func TestRestoreSkipsSeededBuiltIns(t *testing.T) {
	src := newTestEnv(t)
	require.NoError(t, src.store.SeedBuiltInPrompts(t.Context()))

	result, err := src.service.Create(t.Context(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, result.Counts.Prompts)

	// The target already seeded its own built-ins; they count as
	// existing data only for prompts, not for the emptiness check.
	dst := newTestEnv(t)
	require.NoError(t, dst.store.SeedBuiltInPrompts(t.Context()))

	restored, err := dst.service.Restore(t.Context(), result.Path)
	require.NoError(t, err)

	assert.Empty(t, restored.Errors)
	assert.Zero(t, restored.Imported["prompt"])
	assert.Equal(t, 5, restored.Skipped["prompt"])
}

func TestValidateRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "garbage"+backupSuffix)
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	result, err := env.service.Validate(t.Context(), path)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestListGetDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := t.Context()

	older, err := env.service.Create(ctx, Options{
		OutputPath: env.service.GetPath("backup-older"),
	})
	require.NoError(t, err)
	_, err = env.service.Create(ctx, Options{
		OutputPath: env.service.GetPath("backup-newer"),
	})
	require.NoError(t, err)

	// Make mtimes unambiguous.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older.Path, past, past))

	backups, err := env.service.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "backup-newer", backups[0].ID)
	assert.Equal(t, "backup-older", backups[1].ID)

	info, err := env.service.Get(ctx, "backup-older")
	require.NoError(t, err)
	assert.Equal(t, older.Path, info.Path)

	require.NoError(t, env.service.Delete(ctx, "backup-older"))
	_, err = env.service.Get(ctx, "backup-older")
	assert.ErrorIs(t, err, ErrBackupNotFound)

	err = env.service.Delete(ctx, "backup-older")
	assert.ErrorIs(t, err, ErrBackupNotFound)
}

func TestRestoreMissingBackup(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.Restore(t.Context(), filepath.Join(t.TempDir(), "nope"+backupSuffix))
	assert.Error(t, err)
}
