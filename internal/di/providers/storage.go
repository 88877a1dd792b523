package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/config"
	"github.com/mapleapp/maple-server/internal/media/audio"
)

// ProvideAudioStorage provides the on-disk storage for uploaded recording
// audio.
func ProvideAudioStorage(i do.Injector) (*audio.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)

	storage, err := audio.NewStorage(cfg.Storage.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio storage at %s: %w", cfg.Storage.AudioPath, err)
	}

	return storage, nil
}
