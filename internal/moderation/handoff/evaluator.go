// Package handoff decides whether a turn escalates to a human. The rules
// form an ordered decision list: the first matching rule wins and later
// rules are never evaluated.
package handoff

import (
	"strings"

	"github.com/supportchat/backend/internal/moderation/rules"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	lowConfidenceFloor    = 0.60
	biasCeiling           = 0.6
	hallucinationCeiling  = 0.6
	historyWindow         = 6
	clarificationsToTrip  = 3
	clarificationFragment = "clarif"
)

// Signals aggregates the upstream scorer outputs. Score fields are
// pointers: a nil score means the signal was never computed this turn
// and its rule is skipped, which is different from a zero score.
type Signals struct {
	Confidence        *float64
	BiasScore         *float64
	HallucinationRisk *float64
	Intent            string
	Message           string
	History           []HistoryEntry
}

type HistoryEntry struct {
	Sender string
	Text   string
}

type Trigger struct {
	ShouldHandoff   bool   `json:"shouldHandoff"`
	Reason          string `json:"reason,omitempty"`
	Priority        string `json:"priority"`
	SuggestedExpert string `json:"suggestedExpert,omitempty"`
	ContextSummary  string `json:"contextSummary"`
}

type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

func (e *Evaluator) Evaluate(s Signals) Trigger {
	if s.Intent == rules.IntentEmergency {
		return escalate(rules.HandoffEmergency, PriorityUrgent)
	}

	if s.Confidence != nil && *s.Confidence < lowConfidenceFloor {
		return escalate(rules.HandoffLowConfidence, PriorityHigh)
	}

	if s.BiasScore != nil && *s.BiasScore > biasCeiling {
		return escalate(rules.HandoffBiasDetected, PriorityHigh)
	}

	if s.HallucinationRisk != nil && *s.HallucinationRisk > hallucinationCeiling {
		return escalate(rules.HandoffHallucinationRisk, PriorityHigh)
	}

	if s.Intent == rules.IntentLegal && rules.ComplexLegalPattern.MatchString(s.Message) {
		return escalate(rules.HandoffComplexLegal, PriorityHigh)
	}

	if rules.FrustrationPattern.MatchString(s.Message) {
		return escalate(rules.HandoffUserFrustration, PriorityMedium)
	}

	if rules.HumanRequestPattern.MatchString(s.Message) {
		return escalate(rules.HandoffExplicitRequest, PriorityMedium)
	}

	if repeatedClarifications(s.History) {
		return escalate(rules.HandoffRepeatedClarification, PriorityMedium)
	}

	return Trigger{
		Priority:       PriorityLow,
		ContextSummary: "No escalation rule matched; turn stays automated.",
	}
}

func escalate(reason, priority string) Trigger {
	return Trigger{
		ShouldHandoff:   true,
		Reason:          reason,
		Priority:        priority,
		SuggestedExpert: rules.HandoffExperts[reason],
		ContextSummary:  rules.HandoffSummaries[reason],
	}
}

// repeatedClarifications reports whether the last six history entries
// contain at least three bot clarification turns.
func repeatedClarifications(history []HistoryEntry) bool {
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}

	count := 0
	for _, entry := range history[start:] {
		if entry.Sender == "bot" && strings.Contains(strings.ToLower(entry.Text), clarificationFragment) {
			count++
		}
	}
	return count >= clarificationsToTrip
}
