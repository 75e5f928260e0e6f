// Package intent classifies one inbound chat message into a ranked set
// of intent categories and extracts structured entities. Classification
// is a pure function of (message, context): same input, same result.
package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/supportchat/backend/internal/moderation/rules"
)

const (
	scoreFloor        = 0.2
	clarifyConfidence = 0.65
	secondaryClarify  = 0.80
	topicBoost        = 1.2
	maxSecondary      = 2
	maxClarifications = 3
)

// Context is the optional per-conversation hint set supplied by the
// orchestrator.
type Context struct {
	Location    string
	Topic       string
	PageContext string
}

type Result struct {
	PrimaryIntent           string   `json:"primaryIntent"`
	SecondaryIntents        []string `json:"secondaryIntents"`
	Confidence              float64  `json:"confidence"`
	Entities                Entities `json:"entities"`
	RequiresClarification   bool     `json:"requiresClarification"`
	SuggestedClarifications []string `json:"suggestedClarifications,omitempty"`
}

type Entities struct {
	Location     string `json:"location,omitempty"`
	DateTime     string `json:"dateTime,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Topic        string `json:"topic,omitempty"`
}

type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

type scored struct {
	name  string
	score float64
	order int
}

// Classify runs the weighted keyword/pattern fold over the category
// table. Degenerate input (under 3 characters or a single token) skips
// scoring entirely.
func (c *Classifier) Classify(message string, ctx *Context) Result {
	words := wordCount(message)

	if len(strings.TrimSpace(message)) < 3 || words <= 1 {
		return Result{
			PrimaryIntent:           rules.IntentAmbiguous,
			SecondaryIntents:        []string{},
			Confidence:              0.3,
			Entities:                c.ExtractEntities(message, ctx),
			RequiresClarification:   true,
			SuggestedClarifications: []string{rules.GenericClarification},
		}
	}

	lower := strings.ToLower(message)

	var ranked []scored
	for i, cat := range rules.Intents {
		score := cat.Weight * (0.5*keywordHitRatio(lower, cat.Keywords) + 0.5*patternHitRatio(message, cat.Patterns))
		if ctx != nil && ctx.Topic != "" && rules.TopicBoosts[strings.ToLower(ctx.Topic)] == cat.Name {
			score *= topicBoost
		}
		if score > scoreFloor {
			ranked = append(ranked, scored{name: cat.Name, score: score, order: i})
		}
	}

	// Ties keep the table's declaration order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	result := Result{
		SecondaryIntents: []string{},
		Entities:         c.ExtractEntities(message, ctx),
	}

	if len(ranked) == 0 {
		result.PrimaryIntent = rules.IntentInformation
		result.Confidence = 0.4
		result.RequiresClarification = true
	} else {
		result.PrimaryIntent = ranked[0].name
		result.Confidence = minFloat(ranked[0].score, 1.0)
		for _, s := range ranked[1:] {
			if len(result.SecondaryIntents) == maxSecondary {
				break
			}
			result.SecondaryIntents = append(result.SecondaryIntents, s.name)
		}
		result.RequiresClarification = needsClarification(message, words, result.Confidence, len(result.SecondaryIntents))
	}

	if result.RequiresClarification {
		result.SuggestedClarifications = c.suggestClarifications(result.PrimaryIntent, result.SecondaryIntents)
	}

	return result
}

func needsClarification(message string, words int, confidence float64, secondaries int) bool {
	if confidence < clarifyConfidence {
		return true
	}
	if words < 3 {
		return true
	}
	if secondaries >= maxSecondary && confidence < secondaryClarify {
		return true
	}
	if words < 6 {
		for _, p := range rules.VaguePatterns {
			if p.MatchString(message) {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) suggestClarifications(primary string, secondaries []string) []string {
	templates, ok := rules.ClarificationTemplates[primary]
	if !ok || len(templates) == 0 {
		return []string{rules.GenericClarification}
	}

	out := make([]string, 0, maxClarifications)
	out = append(out, templates...)
	if len(secondaries) > 0 && len(out) < maxClarifications {
		out = append(out, fmt.Sprintf(rules.SecondaryIntentHint, strings.ReplaceAll(secondaries[0], "_", " ")))
	}
	if len(out) > maxClarifications {
		out = out[:maxClarifications]
	}
	return out
}

func keywordHitRatio(lowerMessage string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lowerMessage, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func patternHitRatio(message string, patterns []*regexp.Regexp) float64 {
	if len(patterns) == 0 {
		return 0
	}
	hits := 0
	for _, p := range patterns {
		if p.MatchString(message) {
			hits++
		}
	}
	return float64(hits) / float64(len(patterns))
}

// wordCount tokenizes with prose and counts tokens that carry letters or
// digits, so trailing punctuation does not inflate the count. Falls back
// to whitespace splitting if tokenization fails.
func wordCount(message string) int {
	doc, err := prose.NewDocument(message,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return len(strings.Fields(message))
	}

	count := 0
	for _, tok := range doc.Tokens() {
		if strings.ContainsAny(tok.Text, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") {
			count++
		}
	}
	return count
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
