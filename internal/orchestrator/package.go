package orchestrator

import (
	"github.com/supportchat/backend/internal/conversation"
	"github.com/supportchat/backend/internal/moderation/factcheck"
	"github.com/supportchat/backend/internal/moderation/intent"
)

// Request is the inbound contract from the transport layer. History is
// an optional seed used when the conversation is not yet in the store
// (e.g. after a restart, replayed by the client).
type Request struct {
	Message        string
	ConversationID string
	UserID         string
	Context        *intent.Context
	History        []conversation.Message
}

// Package is the assembled outbound response: the moderated text plus
// every verdict the pipeline produced for it.
type Package struct {
	TurnID               string              `json:"turnId"`
	ConversationID       string              `json:"conversationId"`
	Response             string              `json:"response"`
	Confidence           float64             `json:"confidence"`
	Bias                 BiasReport          `json:"bias"`
	Uncertainty          bool                `json:"uncertainty"`
	Grounded             bool                `json:"grounded"`
	Hallucination        bool                `json:"hallucination"`
	HallucinationRisk    float64             `json:"hallucinationRisk"`
	FactCheck            FactReport          `json:"factCheck"`
	Intent               string              `json:"intent"`
	SecondaryIntents     []string            `json:"secondaryIntents"`
	Entities             intent.Entities     `json:"entities"`
	Ambiguous            bool                `json:"ambiguous"`
	ClarificationOptions []string            `json:"clarificationOptions,omitempty"`
	HandoffRequired      bool                `json:"handoffRequired,omitempty"`
	HandoffReason        string              `json:"handoffReason,omitempty"`
	HandoffPriority      string              `json:"handoffPriority,omitempty"`
	HandoffContact       string              `json:"handoffContact,omitempty"`
}

type BiasReport struct {
	Detected bool     `json:"detected"`
	Score    float64  `json:"score"`
	Types    []string `json:"types"`
	Severity string   `json:"severity"`
}

type FactReport struct {
	Verified        bool                `json:"verified"`
	Reliability     string              `json:"reliability"`
	Sources         []string            `json:"sources"`
	Conflicts       []factcheck.Conflict `json:"conflicts,omitempty"`
	Recommendations []string            `json:"recommendations"`
}
