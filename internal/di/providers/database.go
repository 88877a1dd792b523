package providers

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/config"
	"github.com/mapleapp/maple-server/internal/logger"
	"github.com/mapleapp/maple-server/internal/sse"
	"github.com/mapleapp/maple-server/internal/store"
)

// ProvideSlogLogger exposes the underlying *slog.Logger for components that
// take the standard logger type directly.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}

// SSEManagerHandle wraps the SSE manager so the injector can stop its
// event loop on shutdown.
type SSEManagerHandle struct {
	Manager *sse.Manager
	cancel  context.CancelFunc
}

// Shutdown stops the manager's event loop and disconnects all clients.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager and starts
// its broadcast loop.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	slogger := do.MustInvoke[*slog.Logger](i)

	manager := sse.NewManager(slogger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	return &SSEManagerHandle{Manager: manager, cancel: cancel}, nil
}

// StoreHandle wraps the document store so the injector can close it on
// shutdown.
type StoreHandle struct {
	Store *store.Store
}

// Shutdown closes the underlying database.
func (h *StoreHandle) Shutdown() error {
	return h.Store.Close()
}

// ProvideStore provides the document store and seeds the built-in prompts.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	slogger := do.MustInvoke[*slog.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	dbPath := filepath.Join(cfg.Storage.DataPath, "db")

	st, err := store.New(dbPath, slogger, sseHandle.Manager)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", dbPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.SeedBuiltInPrompts(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to seed built-in prompts: %w", err)
	}

	return &StoreHandle{Store: st}, nil
}
