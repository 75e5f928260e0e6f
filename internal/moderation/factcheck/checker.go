// Package factcheck extracts factual claims from a drafted response and
// verifies them against the fixed fact table using term-overlap
// similarity, producing a hallucination-risk estimate and a reliability
// band.
package factcheck

import (
	"strconv"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/supportchat/backend/internal/moderation/rules"
)

const (
	similarityFloor  = 0.3
	numericTolerance = 0.1
	verifiedShare    = 0.8

	riskVerified   = 0.1
	riskSourced    = 0.2
	riskDefault    = 0.3
	riskIndicative = 0.6
	riskConflict   = 0.8

	maxRecommendations = 3
)

const (
	ReliabilityHigh       = "high"
	ReliabilityMedium     = "medium"
	ReliabilityLow        = "low"
	ReliabilityUnverified = "unverified"
)

const consultLine = "Consult official sources to confirm deadlines, amounts and eligibility."

type Context struct {
	Location string
	Topic    string
	Intent   string
	Sources  []string
}

type Conflict struct {
	Claim  string `json:"claim"`
	Fact   string `json:"fact"`
	Reason string `json:"reason"`
}

type Result struct {
	Verified          bool       `json:"verified"`
	Confidence        float64    `json:"confidence"`
	Sources           []string   `json:"sources"`
	Conflicts         []Conflict `json:"conflicts,omitempty"`
	HallucinationRisk float64    `json:"hallucinationRisk"`
	Reliability       string     `json:"reliability"`
	Recommendations   []string   `json:"recommendations"`
}

type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// Check runs claim extraction, per-claim verification and aggregation.
func (c *Checker) Check(response string, ctx *Context) Result {
	claims := extractClaims(response)

	var (
		verifiedCount int
		riskSum       float64
		sources       []string
		conflicts     []Conflict
	)
	seenSource := make(map[string]bool)

	for _, claim := range claims {
		verdict := c.verifyClaim(claim, ctx)
		riskSum += verdict.risk
		if verdict.verified {
			verifiedCount++
		}
		for _, s := range verdict.sources {
			if !seenSource[s] {
				seenSource[s] = true
				sources = append(sources, s)
			}
		}
		if verdict.conflict != nil {
			conflicts = append(conflicts, *verdict.conflict)
		}
	}

	result := Result{
		Confidence:        0.5,
		HallucinationRisk: riskDefault,
		Sources:           sources,
		Conflicts:         conflicts,
	}

	if len(claims) > 0 {
		result.Confidence = float64(verifiedCount) / float64(len(claims))
		result.HallucinationRisk = riskSum / float64(len(claims))
		result.Verified = float64(verifiedCount) >= verifiedShare*float64(len(claims))
	}

	result.Reliability = band(result.Confidence, result.HallucinationRisk)
	result.Recommendations = recommend(result)

	return result
}

type verdict struct {
	verified bool
	risk     float64
	sources  []string
	conflict *Conflict
}

func (c *Checker) verifyClaim(claim string, ctx *Context) verdict {
	terms := rules.ExtractTerms(claim)

	var (
		bestFact *rules.VerifiedFact
		bestSim  float64
	)
	for i := range rules.VerifiedFacts {
		sim := jaccard(terms, rules.VerifiedFacts[i].Terms)
		if sim > bestSim {
			bestSim = sim
			bestFact = &rules.VerifiedFacts[i]
		}
	}

	if bestFact != nil && bestSim > similarityFloor {
		if reason := checkConsistency(claim, bestFact.Statement); reason != "" {
			return verdict{
				risk: riskConflict,
				conflict: &Conflict{
					Claim:  claim,
					Fact:   bestFact.Statement,
					Reason: reason,
				},
			}
		}
		return verdict{verified: true, risk: riskVerified, sources: []string{bestFact.Source}}
	}

	if ctx != nil && len(ctx.Sources) > 0 {
		return verdict{verified: true, risk: riskSourced, sources: ctx.Sources}
	}

	for _, p := range rules.HallucinationIndicators {
		if p.MatchString(claim) {
			return verdict{risk: riskIndicative}
		}
	}

	return verdict{risk: riskDefault}
}

// checkConsistency returns a non-empty reason when the claim and the
// matched fact disagree on negation or on numeric values.
func checkConsistency(claim, fact string) string {
	if rules.NegationPattern.MatchString(claim) != rules.NegationPattern.MatchString(fact) {
		return "negation_mismatch"
	}

	claimNums := numbers(claim)
	factNums := numbers(fact)
	if len(claimNums) == 0 || len(factNums) == 0 {
		return ""
	}

	for _, cn := range claimNums {
		matched := false
		for _, fn := range factNums {
			if fn == 0 {
				if cn == 0 {
					matched = true
					break
				}
				continue
			}
			diff := cn - fn
			if diff < 0 {
				diff = -diff
			}
			if diff/fn <= numericTolerance {
				matched = true
				break
			}
		}
		if !matched {
			return "numeric_mismatch"
		}
	}

	return ""
}

func extractClaims(response string) []string {
	var claims []string
	for _, sentence := range sentences(response) {
		s := strings.TrimSpace(sentence)
		if s == "" {
			continue
		}
		if rules.ConversationalOpener.MatchString(s) {
			continue
		}
		if rules.FactualIndicator.MatchString(s) {
			claims = append(claims, s)
		}
	}
	return claims
}

// sentences segments with prose, falling back to a naive split if the
// tokenizer errors.
func sentences(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.FieldsFunc(text, func(r rune) bool {
			return r == '.' || r == '!' || r == '?'
		})
	}

	out := make([]string, 0, len(doc.Sentences()))
	for _, s := range doc.Sentences() {
		out = append(out, s.Text)
	}
	return out
}

func numbers(text string) []float64 {
	var out []float64
	for _, m := range rules.NumberPattern.FindAllString(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for term := range a {
		if b[term] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func band(confidence, risk float64) string {
	switch {
	case confidence >= 0.9 && risk < 0.2:
		return ReliabilityHigh
	case confidence >= 0.7 && risk < 0.4:
		return ReliabilityMedium
	case confidence >= 0.5 && risk < 0.6:
		return ReliabilityLow
	default:
		return ReliabilityUnverified
	}
}

func recommend(r Result) []string {
	var recs []string
	if len(r.Conflicts) > 0 {
		recs = append(recs, "The drafted answer conflicts with verified records; correct the flagged statements before relying on them.")
	}
	if r.HallucinationRisk > 0.6 {
		recs = append(recs, "High hallucination risk; remove unverifiable specifics such as exact figures or guarantees.")
	} else if r.Confidence < 0.5 {
		recs = append(recs, "Few claims could be verified; hedge uncertain statements.")
	}
	recs = append(recs, consultLine)
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
