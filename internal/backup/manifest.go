package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// manifestPath is where the manifest lives inside the archive.
const manifestPath = "manifest.json"

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	// Server identity
	ServerName   string `json:"server_name"`
	MapleVersion string `json:"maple_version"`

	// Content summary
	Counts EntityCounts `json:"counts"`

	// What's included
	IncludesAudio bool `json:"includes_audio"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
type EntityCounts struct {
	Users      int `json:"users"`
	Tags       int `json:"tags"`
	Papers     int `json:"papers"`
	Prompts    int `json:"prompts"`
	AudioFiles int `json:"audio_files,omitempty"`
}
