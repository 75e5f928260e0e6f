package intent

import (
	"strings"

	"github.com/supportchat/backend/internal/moderation/rules"
)

// ExtractEntities is a deterministic sub-step separate from scoring.
// Extraction never fails; absent entities stay empty and are omitted
// from serialized output.
func (c *Classifier) ExtractEntities(message string, ctx *Context) Entities {
	lower := strings.ToLower(message)

	var entities Entities

	for _, loc := range rules.Locations {
		if strings.Contains(lower, strings.ToLower(loc)) {
			entities.Location = loc
			break
		}
	}
	if entities.Location == "" && ctx != nil {
		entities.Location = ctx.Location
	}

	for _, p := range rules.DatePatterns {
		if match := p.FindString(message); match != "" {
			entities.DateTime = match
			break
		}
	}

	for _, dt := range rules.DocumentTypes {
		if strings.Contains(lower, dt) {
			entities.DocumentType = dt
			break
		}
	}

	if ctx != nil {
		entities.Topic = ctx.Topic
	}

	return entities
}
