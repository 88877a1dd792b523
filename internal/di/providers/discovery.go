package providers

import (
	"log/slog"
	"strconv"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/api"
	"github.com/mapleapp/maple-server/internal/config"
	"github.com/mapleapp/maple-server/internal/mdns"
)

// MDNSHandle wraps the mDNS service so the injector can stop
// advertisement on shutdown.
type MDNSHandle struct {
	Service *mdns.Service
}

// Shutdown stops mDNS advertising.
func (h *MDNSHandle) Shutdown() error {
	h.Service.Stop()
	return nil
}

// ProvideMDNS starts local-network advertisement of the server.
// Advertisement failure is non-fatal; multicast is often unavailable in
// containers.
func ProvideMDNS(i do.Injector) (*MDNSHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	slogger := do.MustInvoke[*slog.Logger](i)

	service := mdns.NewService(slogger)

	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		slogger.Warn("invalid port for mDNS advertisement", "port", cfg.Server.Port)
		return &MDNSHandle{Service: service}, nil
	}

	if err := service.Start(cfg.Server.Name, api.Version, port); err != nil {
		slogger.Warn("mDNS advertisement unavailable", "error", err)
	}

	return &MDNSHandle{Service: service}, nil
}
