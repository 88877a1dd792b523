// Package sse implements Server-Sent Events for realtime fan-out of
// paper, recording and tag changes.
package sse

import (
	"time"

	"github.com/mapleapp/maple-server/internal/domain"
)

// Maple only uses SSE for server-to-client notification; everything else
// follows a request/response pattern.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventPaperCreated represents a paper creation event.
	EventPaperCreated EventType = "paper.created"
	// EventPaperUpdated represents a paper update event.
	EventPaperUpdated EventType = "paper.updated"
	// EventPaperDeleted represents a paper deletion event.
	EventPaperDeleted EventType = "paper.deleted"

	// EventRecordingProcessed represents a recording whose transcript
	// finished processing (initial processing or a reprocess).
	EventRecordingProcessed EventType = "recording.processed"

	// EventTagCreated represents a tag creation event.
	EventTagCreated EventType = "tag.created"
	// EventTagUpdated represents a tag update event, including grant changes.
	EventTagUpdated EventType = "tag.updated"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct
// deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// Recipients limits delivery to these user IDs. Events about a paper
	// go to its creator and every grantee of its tags; the same union
	// that gates reads. Empty means broadcast to all connected clients.
	Recipients []string `json:"-"`
}

// PaperEventData is the data payload for paper create/update events.
type PaperEventData struct {
	Paper *domain.Paper `json:"paper"`
}

// PaperDeletedEventData is the data payload for paper delete events.
type PaperDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	PaperID   string    `json:"paper_id"`
}

// RecordingProcessedEventData is the data payload for recording
// processing events.
type RecordingProcessedEventData struct {
	PaperID     string                 `json:"paper_id"`
	RecordingID string                 `json:"recording_id"`
	Entry       domain.ProcessingEntry `json:"entry"`
}

// TagEventData is the data payload for tag events.
type TagEventData struct {
	Tag *domain.Tag `json:"tag"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// tagRecipients returns the user IDs holding any grant on the tag.
func tagRecipients(t *domain.Tag) []string {
	recipients := make([]string, 0, len(t.Sharing.SharedWith))
	for _, g := range t.Sharing.SharedWith {
		recipients = append(recipients, g.UserID)
	}
	return recipients
}

// NewPaperCreatedEvent creates a paper.created event for the given
// recipients.
func NewPaperCreatedEvent(p *domain.Paper, recipients []string) Event {
	return Event{
		Type:       EventPaperCreated,
		Timestamp:  time.Now(),
		Data:       PaperEventData{Paper: p},
		Recipients: recipients,
	}
}

// NewPaperUpdatedEvent creates a paper.updated event for the given
// recipients.
func NewPaperUpdatedEvent(p *domain.Paper, recipients []string) Event {
	return Event{
		Type:       EventPaperUpdated,
		Timestamp:  time.Now(),
		Data:       PaperEventData{Paper: p},
		Recipients: recipients,
	}
}

// NewPaperDeletedEvent creates a paper.deleted event for the given
// recipients.
func NewPaperDeletedEvent(paperID string, recipients []string) Event {
	now := time.Now()
	return Event{
		Type:      EventPaperDeleted,
		Timestamp: now,
		Data: PaperDeletedEventData{
			PaperID:   paperID,
			DeletedAt: now,
		},
		Recipients: recipients,
	}
}

// NewRecordingProcessedEvent creates a recording.processed event,
// delivered only to the recording's owner.
func NewRecordingProcessedEvent(ownerID, paperID, recordingID string, entry domain.ProcessingEntry) Event {
	return Event{
		Type:      EventRecordingProcessed,
		Timestamp: time.Now(),
		Data: RecordingProcessedEventData{
			PaperID:     paperID,
			RecordingID: recordingID,
			Entry:       entry,
		},
		Recipients: []string{ownerID},
	}
}

// NewTagCreatedEvent creates a tag.created event for the tag's grantees.
func NewTagCreatedEvent(t *domain.Tag) Event {
	return Event{
		Type:       EventTagCreated,
		Timestamp:  time.Now(),
		Data:       TagEventData{Tag: t},
		Recipients: tagRecipients(t),
	}
}

// NewTagUpdatedEvent creates a tag.updated event for the tag's grantees.
func NewTagUpdatedEvent(t *domain.Tag) Event {
	return Event{
		Type:       EventTagUpdated,
		Timestamp:  time.Now(),
		Data:       TagEventData{Tag: t},
		Recipients: tagRecipients(t),
	}
}

// NewHeartbeatEvent creates a heartbeat event for all clients.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
