package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapleapp/maple-server/internal/media/audio"
	"github.com/mapleapp/maple-server/internal/store"
)

// testEmitter records emitted events for assertions.
type testEmitter struct {
	events []any
}

func (e *testEmitter) Emit(event any) {
	e.events = append(e.events, event)
}

type testServices struct {
	store      *store.Store
	emitter    *testEmitter
	tags       *TagService
	papers     *PaperService
	prompts    *PromptService
	recordings *RecordingService
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	dir, err := os.MkdirTemp("", "maple-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	emitter := &testEmitter{}
	st, err := store.New(filepath.Join(dir, "db"), nil, emitter)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.SeedBuiltInPrompts(t.Context()))

	logger := slog.New(slog.DiscardHandler)
	tags := NewTagService(st, "Papers", logger)
	papers := NewPaperService(st, logger)
	prompts := NewPromptService(st, logger)

	audioStorage, err := audio.NewStorage(filepath.Join(dir, "audio"))
	require.NoError(t, err)

	recordings := NewRecordingService(
		st, tags, papers, prompts,
		PassthroughReformatter{},
		audioStorage,
		emitter,
		100,
		logger,
	)

	return &testServices{
		store:      st,
		emitter:    emitter,
		tags:       tags,
		papers:     papers,
		prompts:    prompts,
		recordings: recordings,
	}
}
