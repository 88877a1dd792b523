package sse

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapleapp/maple-server/internal/domain"
)

func newTestManager() *Manager {
	return NewManager(slog.New(slog.DiscardHandler))
}

func TestManager_BroadcastFiltersByRecipient(t *testing.T) {
	m := newTestManager()

	alice, err := m.Connect("user-alice")
	require.NoError(t, err)
	bob, err := m.Connect("user-bob")
	require.NoError(t, err)

	paper := &domain.Paper{Type: domain.PaperTypeNote, CreatedBy: "user-alice"}
	m.broadcast(NewPaperCreatedEvent(paper, []string{"user-alice"}))

	select {
	case event := <-alice.EventChan:
		assert.Equal(t, EventPaperCreated, event.Type)
	default:
		t.Fatal("expected alice to receive the event")
	}

	select {
	case <-bob.EventChan:
		t.Fatal("bob should not receive alice's event")
	default:
	}
}

func TestManager_BroadcastWithoutRecipientsReachesEveryone(t *testing.T) {
	m := newTestManager()

	alice, err := m.Connect("user-alice")
	require.NoError(t, err)
	bob, err := m.Connect("user-bob")
	require.NoError(t, err)

	m.broadcast(NewHeartbeatEvent())

	for _, client := range []*Client{alice, bob} {
		select {
		case event := <-client.EventChan:
			assert.Equal(t, EventHeartbeat, event.Type)
		default:
			t.Fatalf("client %s missed broadcast", client.UserID)
		}
	}
}

func TestManager_Disconnect(t *testing.T) {
	m := newTestManager()

	client, err := m.Connect("user-alice")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(client.ID)
	assert.Equal(t, 0, m.ClientCount())

	// Disconnecting twice is harmless.
	m.Disconnect(client.ID)
}

func TestManager_EmitAfterShutdownDropsEvent(t *testing.T) {
	m := newTestManager()

	m.shutdownMu.Lock()
	m.shutdown = true
	m.shutdownMu.Unlock()

	// Must not panic or block.
	m.Emit(NewHeartbeatEvent())
}

func TestTagEventRecipients(t *testing.T) {
	tag := &domain.Tag{
		OwnerUserID: "user-a",
		Kind:        domain.TagKindFolder,
		Value:       "recordings",
		Sharing: domain.TagSharing{
			SharedWith: []domain.Grant{
				{UserID: "user-a", Level: domain.AccessWrite},
				{UserID: "user-b", Level: domain.AccessRead},
			},
		},
	}

	event := NewTagCreatedEvent(tag)
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, event.Recipients)
}
