package factcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckFabricatedClaimConflicts(t *testing.T) {
	c := NewChecker()

	result := c.Check("All fire survivors receive automatic compensation of $50,000 from the state", nil)

	assert.False(t, result.Verified)
	assert.Equal(t, ReliabilityUnverified, result.Reliability)
	assert.Greater(t, result.HallucinationRisk, 0.6)
	if assert.Len(t, result.Conflicts, 1) {
		assert.Equal(t, "negation_mismatch", result.Conflicts[0].Reason)
	}
	assert.NotEmpty(t, result.Recommendations)
}

func TestCheckVerifiedClaim(t *testing.T) {
	c := NewChecker()

	result := c.Check("FEMA assistance applications must be submitted within 60 days of the disaster declaration.", nil)

	assert.True(t, result.Verified)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
	assert.InDelta(t, 0.1, result.HallucinationRisk, 0.001)
	assert.Equal(t, ReliabilityHigh, result.Reliability)
	assert.Contains(t, result.Sources, "FEMA")
	assert.Empty(t, result.Conflicts)
}

func TestCheckNumericMismatch(t *testing.T) {
	c := NewChecker()

	result := c.Check("FEMA assistance applications must be submitted within 90 days of the disaster declaration.", nil)

	assert.False(t, result.Verified)
	if assert.Len(t, result.Conflicts, 1) {
		assert.Equal(t, "numeric_mismatch", result.Conflicts[0].Reason)
	}
	assert.InDelta(t, 0.8, result.HallucinationRisk, 0.001)
}

func TestCheckSourcedFallback(t *testing.T) {
	c := NewChecker()

	result := c.Check("The community center program is available on weekdays.", &Context{
		Sources: []string{"knowledge-base"},
	})

	assert.True(t, result.Verified)
	assert.InDelta(t, 0.2, result.HallucinationRisk, 0.001)
	assert.Equal(t, ReliabilityMedium, result.Reliability)
	assert.Equal(t, []string{"knowledge-base"}, result.Sources)
}

func TestCheckHallucinationIndicator(t *testing.T) {
	c := NewChecker()

	result := c.Check("Everyone is guaranteed to get approved quickly.", nil)

	assert.False(t, result.Verified)
	assert.InDelta(t, 0.6, result.HallucinationRisk, 0.001)
	assert.Equal(t, ReliabilityUnverified, result.Reliability)
}

func TestCheckNoClaims(t *testing.T) {
	c := NewChecker()

	result := c.Check("Hello! Thanks for reaching out.", nil)

	assert.False(t, result.Verified)
	assert.Equal(t, 0.5, result.Confidence)
	assert.InDelta(t, 0.3, result.HallucinationRisk, 0.001)
	assert.Empty(t, result.Conflicts)
}

func TestCheckMixedClaims(t *testing.T) {
	c := NewChecker()

	response := "FEMA assistance applications must be submitted within 60 days of the disaster declaration. " +
		"Everyone is guaranteed to get approved quickly."

	result := c.Check(response, nil)

	// One verified claim and one flagged one: below the 0.8 share.
	assert.False(t, result.Verified)
	assert.InDelta(t, 0.5, result.Confidence, 0.001)
	assert.InDelta(t, 0.35, result.HallucinationRisk, 0.001)
}

func TestRecommendationsBounded(t *testing.T) {
	c := NewChecker()

	responses := []string{
		"All fire survivors receive automatic compensation of $50,000 from the state",
		"FEMA assistance applications must be submitted within 60 days of the disaster declaration.",
		"Hello! Thanks for reaching out.",
	}

	for _, resp := range responses {
		result := c.Check(resp, nil)
		assert.NotEmpty(t, result.Recommendations, "response %q", resp)
		assert.LessOrEqual(t, len(result.Recommendations), 3, "response %q", resp)
	}
}

func TestVerifiedImpliesHighShare(t *testing.T) {
	c := NewChecker()

	verified := c.Check("FEMA assistance applications must be submitted within 60 days of the disaster declaration.", nil)
	assert.True(t, verified.Verified)
	assert.GreaterOrEqual(t, verified.Confidence, 0.8)

	unverified := c.Check("Hello! Thanks for reaching out.", nil)
	assert.False(t, unverified.Verified)
}
