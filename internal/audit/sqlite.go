package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/supportchat/backend/pkg/logger"
)

// Store is the append-only sink for audit events plus the turn, handoff
// and feedback tables the HTTP surface reads.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	// DSN pragmas apply to every pooled connection, unlike an Exec'd
	// PRAGMA which only touches the connection that ran it.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Audit store initialized", zap.String("path", dbPath))

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		conversation_id TEXT,
		user_id TEXT,
		message TEXT NOT NULL,
		details TEXT,
		compliance_flags TEXT,
		review_required INTEGER DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_conversation ON audit_events(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_events(created_at);

	CREATE TABLE IF NOT EXISTS conversation_turns (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		user_id TEXT,
		message TEXT NOT NULL,
		response TEXT,
		intent TEXT,
		confidence REAL,
		bias_score REAL,
		hallucination_risk REAL,
		grounded INTEGER DEFAULT 0,
		ambiguous INTEGER DEFAULT 0,
		handoff_reason TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON conversation_turns(created_at);

	CREATE TABLE IF NOT EXISTS handoff_tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		turn_id TEXT,
		reason TEXT NOT NULL,
		priority TEXT NOT NULL,
		expert TEXT,
		summary TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_conversation ON handoff_tickets(conversation_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (turn_id) REFERENCES conversation_turns(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_turn ON feedback(turn_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Audit schema initialized")
	return nil
}

func (s *Store) InsertEvent(event *Event) error {
	detailsJSON, _ := json.Marshal(event.Details)

	query := `
		INSERT INTO audit_events (id, event_type, severity, conversation_id, user_id,
			message, details, compliance_flags, review_required, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	reviewRequired := 0
	if event.ReviewRequired {
		reviewRequired = 1
	}

	_, err := s.db.Exec(
		query,
		event.ID,
		event.EventType,
		event.Severity,
		event.ConversationID,
		event.UserID,
		event.Message,
		string(detailsJSON),
		strings.Join(event.ComplianceFlags, ","),
		reviewRequired,
		event.Timestamp.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

func (s *Store) InsertTurn(turn *Turn) error {
	query := `
		INSERT INTO conversation_turns (id, conversation_id, user_id, message, response,
			intent, confidence, bias_score, hallucination_risk, grounded, ambiguous,
			handoff_reason, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	grounded := 0
	if turn.Grounded {
		grounded = 1
	}
	ambiguous := 0
	if turn.Ambiguous {
		ambiguous = 1
	}

	_, err := s.db.Exec(
		query,
		turn.ID,
		turn.ConversationID,
		turn.UserID,
		turn.Message,
		turn.Response,
		turn.Intent,
		turn.Confidence,
		turn.BiasScore,
		turn.HallucinationRisk,
		grounded,
		ambiguous,
		turn.HandoffReason,
		turn.LatencyMS,
		turn.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

func (s *Store) GetTurns(conversationID string, limit int) ([]Turn, error) {
	query := `
		SELECT id, conversation_id, message, response, intent, confidence,
			bias_score, hallucination_risk, grounded, ambiguous, handoff_reason, created_at
		FROM conversation_turns
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var grounded, ambiguous int
		var createdAt int64

		err := rows.Scan(&t.ID, &t.ConversationID, &t.Message, &t.Response, &t.Intent,
			&t.Confidence, &t.BiasScore, &t.HallucinationRisk, &grounded, &ambiguous,
			&t.HandoffReason, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		t.Grounded = grounded == 1
		t.Ambiguous = ambiguous == 1
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}

	return turns, nil
}

func (s *Store) InsertHandoffTicket(ticket *HandoffTicket) error {
	query := `
		INSERT INTO handoff_tickets (conversation_id, turn_id, reason, priority, expert, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(
		query,
		ticket.ConversationID,
		ticket.TurnID,
		ticket.Reason,
		ticket.Priority,
		ticket.Expert,
		ticket.Summary,
		ticket.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert handoff ticket: %w", err)
	}

	logger.Info("Handoff ticket created",
		zap.String("conversation_id", ticket.ConversationID),
		zap.String("reason", ticket.Reason),
		zap.String("priority", ticket.Priority),
	)

	return nil
}

func (s *Store) StoreFeedback(feedback *Feedback) error {
	query := `INSERT INTO feedback (turn_id, helpful, comment, created_at) VALUES (?, ?, ?, ?)`

	helpful := 0
	if feedback.Helpful {
		helpful = 1
	}

	_, err := s.db.Exec(
		query,
		feedback.TurnID,
		helpful,
		feedback.Comment,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	return nil
}
