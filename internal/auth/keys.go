package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const keyFileName = "auth.key"

// LoadOrGenerateKey returns the server's token key as a hex string.
// On first run it generates a fresh 32-byte key and persists it under
// dataPath so tokens survive restarts.
func LoadOrGenerateKey(dataPath string) (string, error) {
	keyPath := filepath.Join(dataPath, keyFileName)

	data, err := os.ReadFile(keyPath)
	if err == nil {
		key := strings.TrimSpace(string(data))
		if len(key) != 64 {
			return "", fmt.Errorf("key file %s is corrupt: expected 64 hex characters, got %d", keyPath, len(key))
		}
		if _, err := hex.DecodeString(key); err != nil {
			return "", fmt.Errorf("key file %s is corrupt: %w", keyPath, err)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	key := hex.EncodeToString(raw)

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(key), 0o600); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}

	return key, nil
}
