package rules

import "regexp"

const (
	HandoffEmergency             = "emergency"
	HandoffLowConfidence         = "low_confidence"
	HandoffBiasDetected          = "bias_detected"
	HandoffHallucinationRisk     = "hallucination_risk"
	HandoffComplexLegal          = "complex_legal"
	HandoffUserFrustration       = "user_frustration"
	HandoffExplicitRequest       = "explicit_request"
	HandoffRepeatedClarification = "repeated_clarification"
)

var (
	ComplexLegalPattern = regexp.MustCompile(`(?i)\b(lawsuit|court|attorney|liability|sue|suing)\b`)

	FrustrationPattern = regexp.MustCompile(`(?i)\b(frustrated|frustrating|ridiculous|fed up|angry|furious|useless|waste of time|going in circles)\b`)

	HumanRequestPattern = regexp.MustCompile(`(?i)\b((speak|talk) (to|with) (a |an )?(human|person|agent|representative)|real person|human being|live agent)\b`)
)

// HandoffExperts maps each escalation reason to the contact surfaced in
// the response package.
var HandoffExperts = map[string]string{
	HandoffEmergency:             "Emergency response coordinator",
	HandoffLowConfidence:         "General support specialist",
	HandoffBiasDetected:          "Senior support specialist",
	HandoffHallucinationRisk:     "Knowledge base specialist",
	HandoffComplexLegal:          "Legal aid coordinator",
	HandoffUserFrustration:       "Customer care lead",
	HandoffExplicitRequest:       "Support agent",
	HandoffRepeatedClarification: "Senior support agent",
}

var HandoffSummaries = map[string]string{
	HandoffEmergency:             "Message classified as an emergency; route ahead of queue.",
	HandoffLowConfidence:         "Automated classification confidence too low to answer reliably.",
	HandoffBiasDetected:          "Bias score above threshold; response needs human review.",
	HandoffHallucinationRisk:     "Fact-check flagged a high hallucination risk in the drafted answer.",
	HandoffComplexLegal:          "Legal question beyond the scope of automated guidance.",
	HandoffUserFrustration:       "User language indicates frustration with automated support.",
	HandoffExplicitRequest:       "User explicitly asked for a human.",
	HandoffRepeatedClarification: "Multiple clarification loops without resolution.",
}
