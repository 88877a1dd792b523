// Package di wires the application together using the samber/do injector.
package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/di/providers"
)

// NewContainer creates the injector with all providers registered.
// Providers are lazy; nothing is constructed until Bootstrap.
func NewContainer() do.Injector {
	injector := do.New()

	// Configuration and logging.
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Auth.
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)

	// Storage and events.
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideAudioStorage)

	// Domain services.
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvidePaperService)
	do.Provide(injector, providers.ProvidePromptService)
	do.Provide(injector, providers.ProvideRecordingService)

	// HTTP surface and discovery.
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNS)

	return injector
}

// Bootstrap eagerly constructs the core object graph so startup failures
// surface immediately instead of on first request.
func Bootstrap(injector do.Injector) error {
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// Advertised last so clients only discover a serving instance.
	if _, err := do.Invoke[*providers.MDNSHandle](injector); err != nil {
		return fmt.Errorf("failed to start mDNS advertisement: %w", err)
	}

	return nil
}
