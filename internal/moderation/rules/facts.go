package rules

import (
	"regexp"
	"strings"
)

// VerifiedFact is an entry in the fixed fact table. Terms are the
// normalized content words, precomputed once so per-claim comparison is a
// set intersection.
type VerifiedFact struct {
	Statement string
	Source    string
	Terms     map[string]bool
}

var VerifiedFacts = []VerifiedFact{
	{
		Statement: "Wildfire survivors may receive state disaster compensation grants of up to $18,000, which are not automatic.",
		Source:    "State Disaster Recovery Office",
	},
	{
		Statement: "FEMA assistance applications must be submitted within 60 days of the disaster declaration.",
		Source:    "FEMA",
	},
	{
		Statement: "Rebuilding permits are required before any structural reconstruction can begin.",
		Source:    "County Building Department",
	},
	{
		Statement: "Temporary housing assistance is available for up to 18 months after a declared disaster.",
		Source:    "FEMA",
	},
	{
		Statement: "Replacing a lost birth certificate costs $29 through the county recorder.",
		Source:    "County Recorder",
	},
	{
		Statement: "Small business disaster loans are available at interest rates below 4 percent.",
		Source:    "Small Business Administration",
	},
	{
		Statement: "Debris removal from residential lots is free when arranged through the county program.",
		Source:    "County Public Works",
	},
	{
		Statement: "Insurance claims for total loss must be filed within 12 months of the event.",
		Source:    "Department of Insurance",
	},
}

// Stopwords excluded from claim/fact term sets.
var Stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"will": true, "your": true, "they": true, "them": true, "been": true,
	"were": true, "what": true, "when": true, "about": true, "there": true,
	"their": true, "would": true, "could": true, "should": true,
	"which": true, "these": true, "those": true, "after": true,
	"before": true, "more": true, "most": true, "some": true, "such": true,
	"than": true, "then": true, "into": true, "only": true, "also": true,
	"very": true, "must": true, "each": true, "other": true, "while": true,
	"where": true, "through": true, "during": true,
}

var (
	// FactualIndicator gates which sentences count as claims at all.
	FactualIndicator = regexp.MustCompile(`(?i)\b(is|are|will|must|required|receive[sd]?|deadline|date|cost|costs|fee|fees|program|available)\b`)

	// ConversationalOpener drops greeting and filler sentences before
	// claim extraction.
	ConversationalOpener = regexp.MustCompile(`(?i)^\s*(hi|hello|hey|thanks|thank you|i understand|i'm sorry|i am sorry|sure|of course|feel free|please let me know|happy to help)`)

	NegationPattern = regexp.MustCompile(`(?i)\b(not|no|never|cannot|can'?t|won'?t|isn'?t|aren'?t)\b`)

	NumberPattern = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)

	WordPattern = regexp.MustCompile(`[a-zA-Z]+`)
)

// HallucinationIndicators mark unverifiable claims that read as certain:
// overly specific figures, absolutes, guarantees, first-person anecdotes.
var HallucinationIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bguarantee[ds]?\b`),
	regexp.MustCompile(`(?i)\b(all|every)\b.{0,40}\b(receive|get|qualify)\b`),
	regexp.MustCompile(`(?i)\bautomatic(ally)?\b`),
	regexp.MustCompile(`(?i)\bexactly \$?\d`),
	regexp.MustCompile(`(?i)\b(i personally|in my experience|when i)\b`),
	regexp.MustCompile(`(?i)\b(always|never)\b`),
}

func init() {
	for i := range VerifiedFacts {
		VerifiedFacts[i].Terms = ExtractTerms(VerifiedFacts[i].Statement)
	}
}

// ExtractTerms lowercases, keeps alphabetic words longer than 3 chars and
// drops stopwords. Numbers are handled separately via NumberPattern.
func ExtractTerms(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, word := range WordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) > 3 && !Stopwords[word] {
			terms[word] = true
		}
	}
	return terms
}
