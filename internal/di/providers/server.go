package providers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/api"
	"github.com/mapleapp/maple-server/internal/config"
	"github.com/mapleapp/maple-server/internal/logger"
	"github.com/mapleapp/maple-server/internal/service"
)

// HTTPServerHandle wraps the HTTP server so the injector can drain it on
// shutdown.
type HTTPServerHandle struct {
	Server *http.Server
	logger *logger.Logger
}

// Shutdown gracefully drains in-flight requests.
func (h *HTTPServerHandle) Shutdown() error {
	h.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer builds the API server and starts listening in the
// background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	slogger := do.MustInvoke[*slog.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	services := &api.Services{
		Auth:      do.MustInvoke[*service.AuthService](i),
		Tag:       do.MustInvoke[*service.TagService](i),
		Paper:     do.MustInvoke[*service.PaperService](i),
		Prompt:    do.MustInvoke[*service.PromptService](i),
		Recording: do.MustInvoke[*service.RecordingService](i),
	}

	apiServer := api.NewServer(storeHandle.Store, services, sseHandle.Manager, slogger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "name", cfg.Server.Name)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: server, logger: log}, nil
}
