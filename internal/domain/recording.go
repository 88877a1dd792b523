package domain

import (
	"encoding/json/v2"
	"time"
)

// AudioSyncStatus tracks whether a recording's audio blob has reached
// server storage. Status updates arrive from the upload pipeline and are
// fire-and-forget.
type AudioSyncStatus string

const (
	AudioSyncPending  AudioSyncStatus = "pending"
	AudioSyncUploaded AudioSyncStatus = "uploaded"
	AudioSyncFailed   AudioSyncStatus = "failed"
)

// Valid reports whether the status is one of the known values.
func (s AudioSyncStatus) Valid() bool {
	switch s {
	case AudioSyncPending, AudioSyncUploaded, AudioSyncFailed:
		return true
	default:
		return false
	}
}

// PromptUsed records which prompt produced a processing entry.
type PromptUsed struct {
	TriggerWord string `json:"trigger_word"`
	PromptText  string `json:"prompt_text"`
}

// ProcessingEntry is one element of a recording's processing history.
type ProcessingEntry struct {
	ProcessedAt time.Time  `json:"processed_at"`
	PromptUsed  PromptUsed `json:"prompt_used"`
	Output      string     `json:"output"`
}

// RecordingData is the payload convention for papers of type "recording".
// It is a data shape inside Paper.Data, not a separate stored entity.
// ProcessingHistory is append-only: reprocessing adds entries, nothing
// ever removes or rewrites earlier ones.
type RecordingData struct {
	RecordingID       string            `json:"recording_id"`
	Transcript        string            `json:"transcript"`
	Duration          float64           `json:"duration"`
	Timestamp         time.Time         `json:"timestamp"`
	AudioURL          string            `json:"audio_url,omitempty"`
	AudioSyncStatus   AudioSyncStatus   `json:"audio_sync_status"`
	ProcessingHistory []ProcessingEntry `json:"processing_history"`
}

// LatestProcessedOutput returns the most recent processing entry, or nil
// when the history is empty. The current output of a recording is always
// the last element of its history.
func (r *RecordingData) LatestProcessedOutput() *ProcessingEntry {
	if len(r.ProcessingHistory) == 0 {
		return nil
	}
	return &r.ProcessingHistory[len(r.ProcessingHistory)-1]
}

// RecordingDataFromPaper decodes a paper's opaque payload into the
// recording shape. The round trip through JSON keeps the store layer
// schema-free while giving the adapter typed access.
func RecordingDataFromPaper(p *Paper) (*RecordingData, error) {
	raw, err := json.Marshal(p.Data)
	if err != nil {
		return nil, err
	}
	var data RecordingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ToPayload converts the recording shape back into the opaque map stored
// on the paper.
func (r *RecordingData) ToPayload() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
