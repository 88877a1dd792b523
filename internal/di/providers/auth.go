package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mapleapp/maple-server/internal/auth"
	"github.com/mapleapp/maple-server/internal/config"
)

// AuthKey is the hex-encoded symmetric key used to sign access tokens.
type AuthKey string

// ProvideAuthKey loads the token signing key from disk, generating one on
// first boot. An explicit key from config wins over the persisted one.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if len(cfg.Auth.AccessTokenKey) > 0 {
		return AuthKey(cfg.Auth.AccessTokenKey), nil
	}

	keyHex, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return "", fmt.Errorf("failed to load token key: %w", err)
	}

	return AuthKey(keyHex), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.AccessTokenDuration)
}
