// Package rules holds the heuristic tables the moderation scorers fold
// over: intent categories, bias categories, verified facts, escalation
// patterns and clarification templates. Everything here is built once at
// package init and treated as immutable afterwards, so scoring stays a
// generic walk over data instead of per-category branches.
package rules

import "regexp"

const (
	IntentEmergency        = "emergency"
	IntentStatus           = "status"
	IntentProcess          = "process"
	IntentComparative      = "comparative"
	IntentLocation         = "location"
	IntentLegal            = "legal"
	IntentFinancial        = "financial"
	IntentEmotionalSupport = "emotional_support"
	IntentEligibility      = "eligibility"
	IntentContact          = "contact"
	IntentFeedback         = "feedback"
	IntentInformation      = "information"

	// IntentAmbiguous is the short-circuit result for degenerate input;
	// it is not a scored category.
	IntentAmbiguous = "ambiguous"
)

type IntentCategory struct {
	Name     string
	Weight   float64
	Keywords []string
	Patterns []*regexp.Regexp
}

// Intents is in fixed declaration order; ties in the ranking keep this
// order, so the slice order is part of the contract.
var Intents = []IntentCategory{
	{
		Name:   IntentEmergency,
		Weight: 1.5,
		Keywords: []string{
			"emergency", "urgent", "danger", "evacuate",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(fire|gas leak|smoke|flooding|injured)\b`),
			regexp.MustCompile(`(?i)\b(right now|immediately)\b`),
		},
	},
	{
		Name:   IntentStatus,
		Weight: 1.2,
		Keywords: []string{
			"status", "update", "progress", "pending",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(where is|how long)\b`),
			regexp.MustCompile(`(?i)\bstill (waiting|processing|pending)\b`),
		},
	},
	{
		Name:   IntentProcess,
		Weight: 1.1,
		Keywords: []string{
			"how do i", "steps", "process", "apply",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bhow (do|can|should) i\b`),
			regexp.MustCompile(`(?i)\bwhat (are|is) the (steps|process)\b`),
		},
	},
	{
		Name:   IntentComparative,
		Weight: 1.0,
		Keywords: []string{
			"difference", "compare", "versus", "better",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(vs\.?|versus)\b`),
			regexp.MustCompile(`(?i)\bwhich (one|option) (is|would)\b`),
		},
	},
	{
		Name:   IntentLocation,
		Weight: 1.0,
		Keywords: []string{
			"where", "located", "address", "nearest",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwhere (is|can i find)\b`),
			regexp.MustCompile(`(?i)\bnear(est)? (me|by)\b`),
		},
	},
	{
		Name:   IntentLegal,
		Weight: 1.2,
		Keywords: []string{
			"legal", "lawyer", "rights", "insurance claim",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(lawsuit|court|attorney|liability|sue)\b`),
			regexp.MustCompile(`(?i)\bmy rights\b`),
		},
	},
	{
		Name:   IntentFinancial,
		Weight: 1.2,
		Keywords: []string{
			"money", "payment", "grant", "loan",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`\$\d`),
			regexp.MustCompile(`(?i)\b(afford|reimburse|compensation|assistance)\b`),
		},
	},
	{
		Name:   IntentEmotionalSupport,
		Weight: 1.1,
		Keywords: []string{
			"stressed", "overwhelmed", "scared", "lost everything",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bi('m| am) (feeling|so)\b`),
			regexp.MustCompile(`(?i)\b(anxious|depressed|hopeless|exhausted)\b`),
		},
	},
	{
		Name:   IntentEligibility,
		Weight: 1.1,
		Keywords: []string{
			"eligible", "qualify", "requirements", "criteria",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(do|am|would) i (qualify|be eligible)\b`),
			regexp.MustCompile(`(?i)\bwho (can|is able to)\b`),
		},
	},
	{
		Name:   IntentContact,
		Weight: 1.0,
		Keywords: []string{
			"contact", "phone", "email", "speak",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(call|phone|email) (you|someone)\b`),
			regexp.MustCompile(`(?i)\bspeak (to|with)\b`),
		},
	},
	{
		Name:   IntentFeedback,
		Weight: 0.9,
		Keywords: []string{
			"feedback", "complaint", "suggestion", "terrible",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bthis is (not working|terrible|awful)\b`),
			regexp.MustCompile(`(?i)\bi want to (complain|report)\b`),
		},
	},
	{
		Name:   IntentInformation,
		Weight: 0.8,
		Keywords: []string{
			"what is", "tell me", "information", "explain",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwhat (is|are)\b`),
			regexp.MustCompile(`(?i)\btell me about\b`),
		},
	},
}

// TopicBoosts maps context topics to the category that gets the 1.2x
// multiplier when the topic agrees with the category.
var TopicBoosts = map[string]string{
	"emergency":  IntentEmergency,
	"status":     IntentStatus,
	"rebuilding": IntentProcess,
	"permits":    IntentProcess,
	"legal":      IntentLegal,
	"insurance":  IntentLegal,
	"financial":  IntentFinancial,
	"grants":     IntentFinancial,
	"wellbeing":  IntentEmotionalSupport,
	"housing":    IntentEligibility,
}

// VaguePatterns flag under-specified messages; combined with a short word
// count they force a clarification turn.
var VaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(help|info|question)\b`),
	regexp.MustCompile(`(?i)\b(something|anything|stuff|things)\b`),
	regexp.MustCompile(`(?i)\bnot sure\b`),
	regexp.MustCompile(`(?i)\bwhat (do i do|now|next)\s*\??\s*$`),
}
