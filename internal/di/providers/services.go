package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/auth"
	"github.com/mapleapp/maple-server/internal/config"
	"github.com/mapleapp/maple-server/internal/media/audio"
	"github.com/mapleapp/maple-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	slogger := do.MustInvoke[*slog.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, slogger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	slogger := do.MustInvoke[*slog.Logger](i)

	return service.NewTagService(storeHandle.Store, cfg.Maple.DefaultTagValue, slogger), nil
}

// ProvidePaperService provides the paper service.
func ProvidePaperService(i do.Injector) (*service.PaperService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	slogger := do.MustInvoke[*slog.Logger](i)

	return service.NewPaperService(storeHandle.Store, slogger), nil
}

// ProvidePromptService provides the prompt service.
func ProvidePromptService(i do.Injector) (*service.PromptService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	slogger := do.MustInvoke[*slog.Logger](i)

	return service.NewPromptService(storeHandle.Store, slogger), nil
}

// ProvideRecordingService provides the recording service. No reformatting
// backend is wired yet, so transcripts pass through unchanged after
// trigger-word stripping.
func ProvideRecordingService(i do.Injector) (*service.RecordingService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tags := do.MustInvoke[*service.TagService](i)
	papers := do.MustInvoke[*service.PaperService](i)
	prompts := do.MustInvoke[*service.PromptService](i)
	audioStorage := do.MustInvoke[*audio.Storage](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	slogger := do.MustInvoke[*slog.Logger](i)

	return service.NewRecordingService(
		storeHandle.Store,
		tags,
		papers,
		prompts,
		service.PassthroughReformatter{},
		audioStorage,
		sseHandle.Manager,
		cfg.Maple.RecordingListLimit,
		slogger,
	), nil
}
