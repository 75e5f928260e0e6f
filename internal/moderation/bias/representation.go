package bias

import "github.com/supportchat/backend/internal/moderation/rules"

// CheckRepresentation runs the demographic-representation side-check.
// Results are advisory strings only and never feed the bias score.
func CheckRepresentation(text string) []string {
	var advisories []string

	if rules.ExclusionaryPhrasing.MatchString(text) {
		advisories = append(advisories, "Phrasing limits the audience to property owners; confirm whether renters are also covered.")
	}

	if rules.GenderedLanguage.MatchString(text) {
		advisories = append(advisories, "Gendered wording found; an ungendered alternative would read the same for everyone.")
	}

	if rules.AgeGeneralization.MatchString(text) {
		advisories = append(advisories, "Age-based generalization found; describe the task difficulty, not the age group.")
	}

	if len(text) > rules.LongResponseChars && !rules.LanguageAssistance.MatchString(text) {
		advisories = append(advisories, "Long response with no mention of language assistance; consider pointing to interpretation services.")
	}

	return advisories
}
