package rules

import "regexp"

const (
	BiasPrescriptive = "prescriptive"
	BiasAbsolute     = "absolute"
	BiasAssumptive   = "assumptive"
	BiasDemographic  = "demographic"
	BiasEconomic     = "economic"
	BiasJudgmental   = "judgmental"
	BiasExclusive    = "exclusive"
)

// Substitution is a deterministic rewrite applied during correction. The
// replacement text must never re-match the pattern, so correction stays
// idempotent.
type Substitution struct {
	Pattern     *regexp.Regexp
	Replacement string
}

type BiasCategory struct {
	Name          string
	Weight        float64
	Patterns      []*regexp.Regexp
	Substitutions []Substitution
	Suggestion    string
}

// BiasCategories: demographic and judgmental carry the maximum weight,
// all weights stay in [0.8, 1.0].
var BiasCategories = []BiasCategory{
	{
		Name:   BiasPrescriptive,
		Weight: 0.95,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(you|they|everyone) (should|must)\b`),
			regexp.MustCompile(`(?i)\bhave to\b`),
			regexp.MustCompile(`(?i)\bneed to\b`),
		},
		Substitutions: []Substitution{
			{regexp.MustCompile(`(?i)\bshould\b`), "may want to"},
			{regexp.MustCompile(`(?i)\bmust\b`), "it is recommended to"},
		},
		Suggestion: "Offer options instead of directives; not every reader is in a position to follow instructions.",
	},
	{
		Name:   BiasAbsolute,
		Weight: 0.95,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\balways\b`),
			regexp.MustCompile(`(?i)\bnever\b`),
			regexp.MustCompile(`(?i)\bevery time\b`),
		},
		Substitutions: []Substitution{
			{regexp.MustCompile(`(?i)\balways\b`), "typically"},
			{regexp.MustCompile(`(?i)\bnever\b`), "rarely"},
		},
		Suggestion: "Soften absolute claims; exceptions exist for most programs and timelines.",
	},
	{
		Name:   BiasAssumptive,
		Weight: 0.9,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bobviously,?\s`),
			regexp.MustCompile(`(?i)\bclearly,?\s`),
			regexp.MustCompile(`(?i)\beveryone knows\b`),
			regexp.MustCompile(`(?i)\bof course\b`),
		},
		Substitutions: []Substitution{
			{regexp.MustCompile(`(?i)\bobviously,?\s+`), ""},
			{regexp.MustCompile(`(?i)\bclearly,?\s+`), ""},
			{regexp.MustCompile(`(?i)\beveryone knows that\s+`), ""},
		},
		Suggestion: "Drop assumptive framing; what is obvious to one reader is new to another.",
	},
	{
		Name:   BiasDemographic,
		Weight: 1.0,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(elderly|old) people (can'?t|cannot|don'?t|struggle)\b`),
			regexp.MustCompile(`(?i)\byoung people (are|always|never)\b`),
			regexp.MustCompile(`(?i)\b(men|women) are (better|worse|more|less)\b`),
			regexp.MustCompile(`(?i)\bnormal (families|people|households)\b`),
		},
		Suggestion: "Remove generalizations about demographic groups; describe the situation, not the group.",
	},
	{
		Name:   BiasEconomic,
		Weight: 0.85,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bjust (pay|buy|hire)\b`),
			regexp.MustCompile(`(?i)\bsimply afford\b`),
			regexp.MustCompile(`(?i)\beveryone can afford\b`),
		},
		Substitutions: []Substitution{
			{regexp.MustCompile(`(?i)\bjust pay\b`), "pay (assistance programs may be available)"},
			{regexp.MustCompile(`(?i)\bsimply afford\b`), "afford (assistance programs may be available)"},
		},
		Suggestion: "Avoid assuming financial capacity; mention assistance programs where cost comes up.",
	},
	{
		Name:   BiasJudgmental,
		Weight: 1.0,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(lazy|irresponsible|careless|negligent)\b`),
			regexp.MustCompile(`(?i)\b(should have known|your own fault)\b`),
			regexp.MustCompile(`(?i)\bfailed to\b`),
		},
		Suggestion: "Rephrase judgmental language; state what happened without assigning blame.",
	},
	{
		Name:   BiasExclusive,
		Weight: 0.8,
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bonly (homeowners|citizens|english speakers|property owners)\b`),
			regexp.MustCompile(`(?i)\breal (residents|victims|survivors)\b`),
		},
		Suggestion: "Check whether renters, non-citizens and non-English speakers are covered before narrowing.",
	},
}

// Representation side-check patterns. Matches produce advisory strings
// only; they never feed the bias score.
var (
	ExclusionaryPhrasing = regexp.MustCompile(`(?i)\bonly (homeowners|property owners|those who own)\b`)
	GenderedLanguage     = regexp.MustCompile(`(?i)\b(chairman|fireman|policeman|mailman|manpower|his or her)\b`)
	AgeGeneralization    = regexp.MustCompile(`(?i)\b(seniors|elderly|older people) (can'?t|cannot|struggle to|won'?t)\b`)
	LanguageAssistance   = regexp.MustCompile(`(?i)\b(interpret\w*|translat\w*|language assistance|español)\b`)
)

// LongResponseChars marks the length past which a response is expected to
// mention language assistance.
const LongResponseChars = 400
