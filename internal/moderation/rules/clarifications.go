package rules

// ClarificationTemplates are the follow-up questions offered instead of
// an answer when intent is ambiguous, keyed by primary intent.
var ClarificationTemplates = map[string][]string{
	IntentEmergency: {
		"Are you currently in danger or is this about a past emergency?",
		"Do you need emergency services, or information about emergency resources?",
	},
	IntentStatus: {
		"Which application or request would you like a status update on?",
		"Do you have a reference or case number I can look up?",
	},
	IntentProcess: {
		"Which process would you like help with, for example permits, insurance or assistance applications?",
		"Are you starting from scratch or partway through the process?",
	},
	IntentLocation: {
		"Which area or neighborhood are you asking about?",
		"Are you looking for an office, a service center or a drop-off location?",
	},
	IntentLegal: {
		"Is this about an insurance claim, a contract dispute or something else?",
		"Would you like a referral to free legal aid resources?",
	},
	IntentFinancial: {
		"Are you asking about grants, loans or reimbursement programs?",
		"Is this for personal, household or business expenses?",
	},
	IntentEmotionalSupport: {
		"Would you like to talk about what you're going through, or find support services near you?",
	},
	IntentEligibility: {
		"Which program are you checking eligibility for?",
		"Can you tell me a bit about your situation, like whether you rent or own?",
	},
	IntentContact: {
		"Who are you trying to reach, and is phone or email better for you?",
	},
	IntentInformation: {
		"What topic would you like to know more about?",
		"Could you share a little more detail about what you're looking for?",
	},
}

// SecondaryIntentHint is appended when a clarification also references
// the strongest secondary intent.
const SecondaryIntentHint = "Or is your question more about %s?"

// GenericClarification is the fallback when no template exists for the
// primary intent.
const GenericClarification = "Could you tell me a bit more about what you need help with?"
