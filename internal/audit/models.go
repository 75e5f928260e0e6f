package audit

import "time"

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	EventIntentClassified = "intent_classified"
	EventBiasDetected     = "bias_detected"
	EventFactCheck        = "fact_check"
	EventHandoffTriggered = "handoff_triggered"
	EventClarification    = "clarification_issued"
	EventCacheServed      = "cache_served"
	EventScorerFailure    = "scorer_failure"
)

// Event is an append-only decision record. Events are write-once; the
// pipeline produces them and only the sink consumes them.
type Event struct {
	ID              string            `json:"id"`
	Timestamp       time.Time         `json:"timestamp"`
	EventType       string            `json:"eventType"`
	Severity        string            `json:"severity"`
	ConversationID  string            `json:"conversationId,omitempty"`
	UserID          string            `json:"userId,omitempty"`
	Message         string            `json:"message"`
	Details         map[string]string `json:"details,omitempty"`
	ComplianceFlags []string          `json:"complianceFlags,omitempty"`
	ReviewRequired  bool              `json:"reviewRequired"`
}

// Turn is the persisted record of one moderated exchange, read back by
// the history endpoint.
type Turn struct {
	ID                string
	ConversationID    string
	UserID            string
	Message           string
	Response          string
	Intent            string
	Confidence        float64
	BiasScore         float64
	HallucinationRisk float64
	Grounded          bool
	Ambiguous         bool
	HandoffReason     string
	LatencyMS         int
	CreatedAt         time.Time
}

type HandoffTicket struct {
	ID             int
	ConversationID string
	TurnID         string
	Reason         string
	Priority       string
	Expert         string
	Summary        string
	CreatedAt      time.Time
}

type Feedback struct {
	ID        int
	TurnID    string
	Helpful   bool
	Comment   string
	CreatedAt time.Time
}
