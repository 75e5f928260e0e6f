// Package bias scores text against seven weighted pattern categories and
// can rewrite flagged phrasing with deterministic substitutions.
package bias

import (
	"strings"

	"github.com/supportchat/backend/internal/moderation/rules"
)

const (
	// DefaultDetectThreshold and DefaultCorrectThreshold differ on
	// purpose: detection is permissive, correction only kicks in once
	// the weighted score is clearly above noise.
	DefaultDetectThreshold  = 0.2
	DefaultCorrectThreshold = 0.3

	maxSuggestions = 3
	scoreDivisor   = 3.0
)

const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

type Analysis struct {
	Detected      bool     `json:"detected"`
	BiasScore     float64  `json:"biasScore"`
	BiasTypes     []string `json:"biasTypes"`
	Patterns      []string `json:"patterns"`
	Suggestions   []string `json:"suggestions"`
	CorrectedText string   `json:"correctedText,omitempty"`
}

type Analyzer struct {
	detectThreshold  float64
	correctThreshold float64
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		detectThreshold:  DefaultDetectThreshold,
		correctThreshold: DefaultCorrectThreshold,
	}
}

// NewAnalyzerWithThresholds lets deployments tune the detect/correct
// split from config.
func NewAnalyzerWithThresholds(detect, correct float64) *Analyzer {
	return &Analyzer{detectThreshold: detect, correctThreshold: correct}
}

// Analyze folds the text over every category's pattern list. Each match
// adds the category weight to the running total; the score normalizes by
// three times the match count, so it reflects average severity rather
// than raw volume.
func (a *Analyzer) Analyze(text string) Analysis {
	var (
		totalScore   float64
		patternCount int
		biasTypes    []string
		patterns     []string
		suggestions  []string
	)

	seenPattern := make(map[string]bool)

	for _, cat := range rules.BiasCategories {
		categoryHits := 0
		for _, p := range cat.Patterns {
			matches := p.FindAllString(text, -1)
			categoryHits += len(matches)
			for _, m := range matches {
				key := strings.ToLower(m)
				if !seenPattern[key] {
					seenPattern[key] = true
					patterns = append(patterns, key)
				}
			}
		}

		if categoryHits > 0 {
			totalScore += float64(categoryHits) * cat.Weight
			patternCount += categoryHits
			biasTypes = append(biasTypes, cat.Name)
			if len(suggestions) < maxSuggestions {
				suggestions = append(suggestions, cat.Suggestion)
			}
		}
	}

	var score float64
	if patternCount > 0 {
		score = totalScore / (float64(patternCount) * scoreDivisor)
		if score > 1.0 {
			score = 1.0
		}
	}

	analysis := Analysis{
		Detected:    score > a.detectThreshold,
		BiasScore:   score,
		BiasTypes:   biasTypes,
		Patterns:    patterns,
		Suggestions: suggestions,
	}

	if score > a.correctThreshold {
		corrected := a.correct(text, biasTypes)
		if corrected != text {
			analysis.CorrectedText = corrected
		}
	}

	return analysis
}

// Severity classifies the score band, separate from the detection
// threshold.
func Severity(score float64) string {
	switch {
	case score >= 0.7:
		return SeverityCritical
	case score >= 0.5:
		return SeverityHigh
	case score >= 0.3:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// correct applies each detected category's substitutions. Replacement
// text never re-matches its own pattern, so running correction twice is
// a no-op for already-neutralized categories.
func (a *Analyzer) correct(text string, detectedTypes []string) string {
	detected := make(map[string]bool, len(detectedTypes))
	for _, t := range detectedTypes {
		detected[t] = true
	}

	corrected := text
	for _, cat := range rules.BiasCategories {
		if !detected[cat.Name] {
			continue
		}
		for _, sub := range cat.Substitutions {
			corrected = sub.Pattern.ReplaceAllString(corrected, sub.Replacement)
		}
	}
	return corrected
}
