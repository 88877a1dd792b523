package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingData_LatestProcessedOutput(t *testing.T) {
	data := &RecordingData{}
	assert.Nil(t, data.LatestProcessedOutput())

	data.ProcessingHistory = []ProcessingEntry{
		{Output: "first"},
		{Output: "second"},
	}

	latest := data.LatestProcessedOutput()
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Output)
}

func TestRecordingData_PaperRoundTrip(t *testing.T) {
	original := &RecordingData{
		RecordingID:     "rec-123",
		Transcript:      "notes remember to buy milk",
		Duration:        42.5,
		Timestamp:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		AudioSyncStatus: AudioSyncPending,
		ProcessingHistory: []ProcessingEntry{
			{
				ProcessedAt: time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC),
				PromptUsed:  PromptUsed{TriggerWord: "notes", PromptText: "structure this"},
				Output:      "- buy milk",
			},
		},
	}

	payload, err := original.ToPayload()
	require.NoError(t, err)

	paper := &Paper{Type: PaperTypeRecording, Data: payload}
	decoded, err := RecordingDataFromPaper(paper)
	require.NoError(t, err)

	assert.Equal(t, original.RecordingID, decoded.RecordingID)
	assert.Equal(t, original.Transcript, decoded.Transcript)
	assert.Equal(t, original.Duration, decoded.Duration)
	assert.True(t, original.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, original.AudioSyncStatus, decoded.AudioSyncStatus)
	require.Len(t, decoded.ProcessingHistory, 1)
	assert.Equal(t, "notes", decoded.ProcessingHistory[0].PromptUsed.TriggerWord)
	assert.Equal(t, "- buy milk", decoded.ProcessingHistory[0].Output)
}

func TestAudioSyncStatus_Valid(t *testing.T) {
	assert.True(t, AudioSyncPending.Valid())
	assert.True(t, AudioSyncUploaded.Valid())
	assert.True(t, AudioSyncFailed.Valid())
	assert.False(t, AudioSyncStatus("syncing").Valid())
}

func TestPaper_HasTag(t *testing.T) {
	paper := &Paper{TagIDs: []string{"tag-1", "tag-2"}}

	assert.True(t, paper.HasTag("tag-1"))
	assert.False(t, paper.HasTag("tag-3"))
}

func TestNormalizeTrigger(t *testing.T) {
	assert.Equal(t, "to do", NormalizeTrigger("To Do"))
	assert.Equal(t, "email", NormalizeTrigger("  Email!  "))
	assert.Equal(t, "notes", NormalizeTrigger("notes:"))
	assert.Equal(t, "", NormalizeTrigger("..."))
}

func TestBuiltInPrompts(t *testing.T) {
	prompts := BuiltInPrompts()
	require.Len(t, prompts, 5)

	triggers := make([]string, 0, len(prompts))
	for _, p := range prompts {
		assert.Equal(t, SystemUserID, p.UserID)
		assert.True(t, p.IsBuiltIn)
		assert.True(t, p.IsActive)
		assert.NotEmpty(t, p.PromptText)
		triggers = append(triggers, p.TriggerWord)
	}
	assert.ElementsMatch(t, []string{"email", "notes", "summarize", "to do", "clean"}, triggers)

	// Mutating the returned slice must not leak into later calls.
	prompts[0].TriggerWord = "mutated"
	assert.Equal(t, "email", BuiltInPrompts()[0].TriggerWord)
}
