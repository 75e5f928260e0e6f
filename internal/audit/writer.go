package audit

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportchat/backend/pkg/logger"
)

const defaultBuffer = 256

// Writer decouples the pipeline from the sink: Record never blocks a
// turn, and a full buffer drops the event with a local warning rather
// than stalling the user-facing response.
type Writer struct {
	store  *Store
	events chan Event
	done   chan struct{}
}

func NewWriter(store *Store) *Writer {
	w := &Writer{
		store:  store,
		events: make(chan Event, defaultBuffer),
		done:   make(chan struct{}),
	}

	go w.run()

	return w
}

func (w *Writer) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case w.events <- event:
	default:
		logger.Warn("Audit buffer full, event dropped",
			zap.String("event_type", event.EventType),
			zap.String("conversation_id", event.ConversationID),
		)
	}
}

func (w *Writer) run() {
	for event := range w.events {
		if err := w.store.InsertEvent(&event); err != nil {
			logger.Warn("Failed to write audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
	close(w.done)
}

// Close drains buffered events before returning.
func (w *Writer) Close() {
	close(w.events)
	<-w.done
}
