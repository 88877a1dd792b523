// Package audio provides filesystem storage for recording audio files.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage manages audio filesystem operations.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a new Storage instance rooted at basePath.
// The directory is created if it does not exist.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audio directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
	}, nil
}

// Save stores audio data for a recording.
// Filename format: {recordingID}.m4a.
func (s *Storage) Save(recordingID string, data []byte) error {
	if err := validateID(recordingID); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("audio data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file first so a failed upload never leaves a
	// truncated recording behind.
	path := s.Path(recordingID)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize audio file: %w", err)
	}

	return nil
}

// Get retrieves audio data for a recording.
func (s *Storage) Get(recordingID string) ([]byte, error) {
	if err := validateID(recordingID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(recordingID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio not found for %s: %w", recordingID, err)
		}
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	return data, nil
}

// Exists checks if audio exists for a recording.
func (s *Storage) Exists(recordingID string) bool {
	if validateID(recordingID) != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(recordingID))
	return err == nil
}

// Delete removes audio for a recording.
func (s *Storage) Delete(recordingID string) error {
	if err := validateID(recordingID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(recordingID)); err != nil {
		if os.IsNotExist(err) {
			// Already deleted, not an error.
			return nil
		}
		return fmt.Errorf("failed to delete audio file: %w", err)
	}

	return nil
}

// Path returns the full filesystem path for a recording's audio.
func (s *Storage) Path(recordingID string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.m4a", recordingID))
}

// validateID rejects IDs that are empty or would escape the storage dir.
func validateID(recordingID string) error {
	if recordingID == "" {
		return fmt.Errorf("recording ID cannot be empty")
	}
	if strings.ContainsAny(recordingID, "/\\") || strings.Contains(recordingID, "..") {
		return fmt.Errorf("invalid recording ID: %s", recordingID)
	}
	return nil
}
