package handoff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supportchat/backend/internal/moderation/rules"
)

func f(v float64) *float64 { return &v }

func TestEmergencyAlwaysEscalates(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentEmergency,
		Confidence: f(0.99),
		BiasScore:  f(0.0),
	})

	assert.True(t, trigger.ShouldHandoff)
	assert.Equal(t, rules.HandoffEmergency, trigger.Reason)
	assert.Equal(t, PriorityUrgent, trigger.Priority)
	assert.NotEmpty(t, trigger.SuggestedExpert)
}

func TestExplicitRequestBeatsHighConfidence(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentContact,
		Confidence: f(0.9),
		Message:    "I want to speak to a human",
	})

	assert.True(t, trigger.ShouldHandoff)
	assert.Equal(t, rules.HandoffExplicitRequest, trigger.Reason)
	assert.Equal(t, PriorityMedium, trigger.Priority)
}

func TestLowConfidenceWinsOverExplicitRequest(t *testing.T) {
	e := NewEvaluator()

	// Both rules match; the earlier one in the decision list wins.
	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentContact,
		Confidence: f(0.5),
		Message:    "I want to speak to a human",
	})

	assert.Equal(t, rules.HandoffLowConfidence, trigger.Reason)
	assert.Equal(t, PriorityHigh, trigger.Priority)
}

func TestBiasAboveCeiling(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentFinancial,
		Confidence: f(0.9),
		BiasScore:  f(0.7),
	})

	assert.Equal(t, rules.HandoffBiasDetected, trigger.Reason)
	assert.Equal(t, PriorityHigh, trigger.Priority)
}

func TestHallucinationAboveCeiling(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:            rules.IntentFinancial,
		Confidence:        f(0.9),
		BiasScore:         f(0.1),
		HallucinationRisk: f(0.8),
	})

	assert.Equal(t, rules.HandoffHallucinationRisk, trigger.Reason)
}

func TestComplexLegal(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentLegal,
		Confidence: f(0.9),
		Message:    "Can I sue my insurance company over the denied claim?",
	})

	assert.Equal(t, rules.HandoffComplexLegal, trigger.Reason)
	assert.Equal(t, PriorityHigh, trigger.Priority)
}

func TestFrustration(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentFeedback,
		Confidence: f(0.9),
		Message:    "This is ridiculous, nothing works",
	})

	assert.Equal(t, rules.HandoffUserFrustration, trigger.Reason)
	assert.Equal(t, PriorityMedium, trigger.Priority)
}

func TestRepeatedClarifications(t *testing.T) {
	e := NewEvaluator()

	clarify := HistoryEntry{Sender: "bot", Text: "Could you clarify what you mean?"}
	userMsg := HistoryEntry{Sender: "user", Text: "I already told you"}

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentInformation,
		Confidence: f(0.9),
		Message:    "the grant thing",
		History:    []HistoryEntry{clarify, userMsg, clarify, userMsg, clarify, userMsg},
	})

	assert.Equal(t, rules.HandoffRepeatedClarification, trigger.Reason)
	assert.Equal(t, PriorityMedium, trigger.Priority)
}

func TestTwoClarificationsDoNotTrip(t *testing.T) {
	e := NewEvaluator()

	clarify := HistoryEntry{Sender: "bot", Text: "Could you clarify what you mean?"}
	userMsg := HistoryEntry{Sender: "user", Text: "I already told you"}

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentInformation,
		Confidence: f(0.9),
		Message:    "the grant thing",
		History:    []HistoryEntry{clarify, userMsg, clarify, userMsg},
	})

	assert.False(t, trigger.ShouldHandoff)
}

func TestClarificationWindowIsBounded(t *testing.T) {
	e := NewEvaluator()

	clarify := HistoryEntry{Sender: "bot", Text: "Could you clarify what you mean?"}
	userMsg := HistoryEntry{Sender: "user", Text: "I already told you"}

	// Three clarifications, but two of them have aged out of the
	// six-entry window.
	history := []HistoryEntry{
		clarify, clarify,
		userMsg, userMsg, userMsg, userMsg, userMsg, clarify,
	}

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentInformation,
		Confidence: f(0.9),
		Message:    "the grant thing",
		History:    history,
	})

	assert.False(t, trigger.ShouldHandoff)
}

func TestNilSignalsSkipTheirRules(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:  rules.IntentStatus,
		Message: "Where is my application?",
	})

	assert.False(t, trigger.ShouldHandoff)
	assert.Empty(t, trigger.Reason)
	assert.Equal(t, PriorityLow, trigger.Priority)
	assert.NotEmpty(t, trigger.ContextSummary)
}

func TestNoHandoffOmitsReasonInJSON(t *testing.T) {
	e := NewEvaluator()

	trigger := e.Evaluate(Signals{
		Intent:     rules.IntentStatus,
		Confidence: f(0.9),
		Message:    "Where is my application?",
	})

	data, err := json.Marshal(trigger)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), `"reason"`)
}
