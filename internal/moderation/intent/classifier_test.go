package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supportchat/backend/internal/moderation/rules"
)

func TestClassifySingleTokenIsAmbiguous(t *testing.T) {
	c := NewClassifier()

	result := c.Classify("fire", nil)

	assert.Equal(t, rules.IntentAmbiguous, result.PrimaryIntent)
	assert.Equal(t, 0.3, result.Confidence)
	assert.True(t, result.RequiresClarification)
	assert.NotEmpty(t, result.SuggestedClarifications)
}

func TestClassifyEmptyMessageIsAmbiguous(t *testing.T) {
	c := NewClassifier()

	result := c.Classify("  ", nil)

	assert.Equal(t, rules.IntentAmbiguous, result.PrimaryIntent)
	assert.True(t, result.RequiresClarification)
}

func TestClassifyEmergency(t *testing.T) {
	c := NewClassifier()

	result := c.Classify("There is a fire right now, this is an emergency, we need to evacuate immediately", nil)

	assert.Equal(t, rules.IntentEmergency, result.PrimaryIntent)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
	assert.False(t, result.RequiresClarification)
}

func TestClassifySecondaryIntents(t *testing.T) {
	c := NewClassifier()

	result := c.Classify("How do I apply for a grant payment?", nil)

	assert.Equal(t, rules.IntentProcess, result.PrimaryIntent)
	assert.Contains(t, result.SecondaryIntents, rules.IntentFinancial)
	assert.NotContains(t, result.SecondaryIntents, result.PrimaryIntent)
	assert.LessOrEqual(t, len(result.SecondaryIntents), 2)
}

func TestClassifyLowConfidenceRequiresClarification(t *testing.T) {
	c := NewClassifier()

	result := c.Classify("How do I apply for a grant payment?", nil)

	assert.Less(t, result.Confidence, 0.65)
	assert.True(t, result.RequiresClarification)
	assert.NotEmpty(t, result.SuggestedClarifications)
	assert.LessOrEqual(t, len(result.SuggestedClarifications), 3)
}

func TestClassifyNoMatchFallsBackToInformation(t *testing.T) {
	c := NewClassifier()

	result := c.Classify("The weather seems nice today", nil)

	assert.Equal(t, rules.IntentInformation, result.PrimaryIntent)
	assert.Equal(t, 0.4, result.Confidence)
	assert.True(t, result.RequiresClarification)
}

func TestClassifyTopicBoost(t *testing.T) {
	c := NewClassifier()
	message := "When will I get my grant payment?"

	plain := c.Classify(message, nil)
	boosted := c.Classify(message, &Context{Topic: "grants"})

	assert.Equal(t, rules.IntentFinancial, plain.PrimaryIntent)
	assert.Equal(t, rules.IntentFinancial, boosted.PrimaryIntent)
	assert.Greater(t, boosted.Confidence, plain.Confidence)
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()
	message := "How do I apply for a grant payment?"

	first := c.Classify(message, nil)
	second := c.Classify(message, nil)

	assert.Equal(t, first, second)
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := NewClassifier()

	messages := []string{
		"fire",
		"There is a fire right now, this is an emergency, we need to evacuate immediately",
		"How do I apply for a grant payment?",
		"The weather seems nice today",
		"Where is the nearest office located?",
	}

	for _, msg := range messages {
		result := c.Classify(msg, nil)
		assert.GreaterOrEqual(t, result.Confidence, 0.0, "message %q", msg)
		assert.LessOrEqual(t, result.Confidence, 1.0, "message %q", msg)
	}
}

func TestExtractEntities(t *testing.T) {
	c := NewClassifier()

	entities := c.ExtractEntities("I lost my insurance policy in Altadena on 01/15", nil)

	assert.Equal(t, "Altadena", entities.Location)
	assert.Equal(t, "insurance policy", entities.DocumentType)
	assert.Equal(t, "01/15", entities.DateTime)
}

func TestExtractEntitiesContextFallback(t *testing.T) {
	c := NewClassifier()

	entities := c.ExtractEntities("I need help with my application", &Context{
		Location: "Malibu",
		Topic:    "insurance",
	})

	assert.Equal(t, "Malibu", entities.Location)
	assert.Equal(t, "insurance", entities.Topic)
}

func TestExtractEntitiesGazetteerBeatsContext(t *testing.T) {
	c := NewClassifier()

	entities := c.ExtractEntities("My house in Pasadena burned down", &Context{Location: "Malibu"})

	assert.Equal(t, "Pasadena", entities.Location)
}
