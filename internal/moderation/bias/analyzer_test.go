package bias

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supportchat/backend/internal/moderation/rules"
)

func TestAnalyzeCleanText(t *testing.T) {
	a := NewAnalyzer()

	analysis := a.Analyze("Here are the resources available to you.")

	assert.False(t, analysis.Detected)
	assert.Equal(t, 0.0, analysis.BiasScore)
	assert.Empty(t, analysis.BiasTypes)
	assert.Empty(t, analysis.CorrectedText)
}

func TestAnalyzePrescriptiveAndAbsolute(t *testing.T) {
	a := NewAnalyzer()

	analysis := a.Analyze("You should always rebuild immediately")

	assert.True(t, analysis.Detected)
	assert.Contains(t, analysis.BiasTypes, rules.BiasPrescriptive)
	assert.Contains(t, analysis.BiasTypes, rules.BiasAbsolute)
	assert.InDelta(t, 1.9/6.0, analysis.BiasScore, 0.001)

	assert.Contains(t, analysis.CorrectedText, "may want to")
	assert.Contains(t, analysis.CorrectedText, "typically")
	assert.NotContains(t, strings.ToLower(analysis.CorrectedText), "should")
	assert.NotContains(t, strings.ToLower(analysis.CorrectedText), "always")
}

func TestCorrectionIsIdempotent(t *testing.T) {
	a := NewAnalyzer()

	first := a.Analyze("You should always rebuild immediately")
	assert.NotEmpty(t, first.CorrectedText)

	second := a.Analyze(first.CorrectedText)

	assert.False(t, second.Detected)
	assert.Empty(t, second.CorrectedText)
}

func TestAnalyzeDetectsWithoutCorrecting(t *testing.T) {
	a := NewAnalyzer()

	// A single exclusive-category hit scores 0.8/3, above the detection
	// threshold but below the correction threshold.
	analysis := a.Analyze("Only homeowners can use this program.")

	assert.True(t, analysis.Detected)
	assert.InDelta(t, 0.8/3.0, analysis.BiasScore, 0.001)
	assert.Equal(t, []string{rules.BiasExclusive}, analysis.BiasTypes)
	assert.Empty(t, analysis.CorrectedText)
}

func TestAnalyzeCapsSuggestions(t *testing.T) {
	a := NewAnalyzer()

	analysis := a.Analyze("Obviously you should always just pay, lazy people never qualify.")

	assert.True(t, analysis.Detected)
	assert.GreaterOrEqual(t, len(analysis.BiasTypes), 4)
	assert.Len(t, analysis.Suggestions, 3)
}

func TestAnalyzeEconomicSubstitution(t *testing.T) {
	a := NewAnalyzer()

	analysis := a.Analyze("You should just pay a contractor, everyone knows permits always take weeks.")

	assert.True(t, analysis.Detected)
	if assert.NotEmpty(t, analysis.CorrectedText) {
		assert.Contains(t, analysis.CorrectedText, "assistance programs may be available")
		assert.NotContains(t, strings.ToLower(analysis.CorrectedText), "just pay")
	}
}

func TestCustomThresholds(t *testing.T) {
	strict := NewAnalyzerWithThresholds(0.1, 0.1)
	lenient := NewAnalyzerWithThresholds(0.5, 0.5)
	text := "They must file this form."

	assert.True(t, strict.Analyze(text).Detected)
	assert.NotEmpty(t, strict.Analyze(text).CorrectedText)

	assert.False(t, lenient.Analyze(text).Detected)
	assert.Empty(t, lenient.Analyze(text).CorrectedText)
}

func TestSeverityBands(t *testing.T) {
	assert.Equal(t, SeverityCritical, Severity(0.75))
	assert.Equal(t, SeverityHigh, Severity(0.55))
	assert.Equal(t, SeverityMedium, Severity(0.35))
	assert.Equal(t, SeverityLow, Severity(0.1))
}

func TestCheckRepresentation(t *testing.T) {
	advisories := CheckRepresentation("Contact the chairman for help.")
	assert.NotEmpty(t, advisories)

	clean := CheckRepresentation("Contact the support office for help.")
	assert.Empty(t, clean)
}
