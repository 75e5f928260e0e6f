package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	assert.NoError(t, err)
	assert.NoError(t, store.InitSchema())
	t.Cleanup(func() { store.Close() })

	return store
}

func TestInsertAndGetTurns(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		err := store.InsertTurn(&Turn{
			ID:             uuid.New().String(),
			ConversationID: "c1",
			Message:        "question",
			Response:       "answer",
			Intent:         "status",
			Confidence:     0.9,
			Grounded:       true,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
		assert.NoError(t, err)
	}

	turns, err := store.GetTurns("c1", 10)
	assert.NoError(t, err)
	assert.Len(t, turns, 3)
	// Newest first.
	assert.True(t, turns[0].CreatedAt.After(turns[2].CreatedAt))
	assert.True(t, turns[0].Grounded)

	limited, err := store.GetTurns("c1", 2)
	assert.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := store.GetTurns("unknown", 10)
	assert.NoError(t, err)
	assert.Empty(t, none)
}

func TestInsertEvent(t *testing.T) {
	store := newTestStore(t)

	err := store.InsertEvent(&Event{
		ID:             uuid.New().String(),
		EventType:      EventBiasDetected,
		Severity:       SeverityWarning,
		ConversationID: "c1",
		Message:        "bias patterns detected",
		Details:        map[string]string{"score": "0.32"},
		ReviewRequired: true,
		Timestamp:      time.Now(),
	})

	assert.NoError(t, err)
}

func TestFeedbackRequiresExistingTurn(t *testing.T) {
	store := newTestStore(t)

	turnID := uuid.New().String()
	err := store.InsertTurn(&Turn{
		ID:             turnID,
		ConversationID: "c1",
		Message:        "question",
		CreatedAt:      time.Now(),
	})
	assert.NoError(t, err)

	err = store.StoreFeedback(&Feedback{TurnID: turnID, Helpful: true})
	assert.NoError(t, err)

	// An unknown turn violates the foreign key.
	err = store.StoreFeedback(&Feedback{TurnID: "missing", Helpful: false})
	assert.Error(t, err)
}

func TestInsertHandoffTicket(t *testing.T) {
	store := newTestStore(t)

	err := store.InsertHandoffTicket(&HandoffTicket{
		ConversationID: "c1",
		TurnID:         uuid.New().String(),
		Reason:         "emergency",
		Priority:       "urgent",
		Expert:         "Emergency response coordinator",
		Summary:        "escalated ahead of queue",
		CreatedAt:      time.Now(),
	})

	assert.NoError(t, err)
}

func TestWriterDrainsOnClose(t *testing.T) {
	store := newTestStore(t)
	writer := NewWriter(store)

	for i := 0; i < 10; i++ {
		writer.Record(Event{
			EventType: EventIntentClassified,
			Severity:  SeverityInfo,
			Message:   "intent classified",
		})
	}

	done := make(chan struct{})
	go func() {
		writer.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("writer did not drain on close")
	}
}
