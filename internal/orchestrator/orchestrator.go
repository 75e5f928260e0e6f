// Package orchestrator sequences the moderation pipeline for one turn:
// classify, bias-check, retrieve, draft, fact-check, evaluate handoff,
// assemble the response package and emit audit records. Scorer failures
// degrade to safe defaults; external-collaborator failures degrade to
// the not-grounded fallback. Nothing in here is fatal to the process.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportchat/backend/internal/audit"
	"github.com/supportchat/backend/internal/conversation"
	"github.com/supportchat/backend/internal/metrics"
	"github.com/supportchat/backend/internal/moderation/bias"
	"github.com/supportchat/backend/internal/moderation/factcheck"
	"github.com/supportchat/backend/internal/moderation/handoff"
	"github.com/supportchat/backend/internal/moderation/intent"
	"github.com/supportchat/backend/internal/moderation/rules"
	"github.com/supportchat/backend/internal/retrieval"
	"github.com/supportchat/backend/pkg/logger"
	"github.com/supportchat/backend/pkg/utils"
)

const notGroundedResponse = "I couldn't find information about that in our knowledge base. " +
	"Could you rephrase your question, or would you like me to connect you with a support agent?"

// Retriever and Embedder are the vector-search collaborator boundary.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]retrieval.Match, error)
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	GenerateReply(ctx context.Context, message string, passages []string) (string, error)
}

type Sink interface {
	Record(event audit.Event)
}

type TurnStore interface {
	InsertTurn(turn *audit.Turn) error
	InsertHandoffTicket(ticket *audit.HandoffTicket) error
}

type PackageCache interface {
	GetPackage(ctx context.Context, key string, pkg interface{}) (bool, error)
	SetPackage(ctx context.Context, key string, pkg interface{}) error
	IncrementCounter(ctx context.Context, name string) error
}

type Config struct {
	TopK             int
	GroundedMaxDist  float64
	UncertaintyFloor float64
	BiasDetect       float64
	BiasCorrect      float64
}

type Orchestrator struct {
	store      *conversation.Store
	classifier *intent.Classifier
	analyzer   *bias.Analyzer
	checker    *factcheck.Checker
	evaluator  *handoff.Evaluator

	retriever Retriever
	embedder  Embedder
	generator Generator
	sink      Sink
	turns     TurnStore
	cache     PackageCache

	cfg Config
}

// New wires the pipeline. retriever, embedder, generator, sink, turns
// and cache may each be nil; the corresponding stage then runs in its
// degraded mode.
func New(store *conversation.Store, retriever Retriever, embedder Embedder, generator Generator, sink Sink, turns TurnStore, cache PackageCache, cfg Config) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.GroundedMaxDist <= 0 {
		cfg.GroundedMaxDist = 2.0
	}
	if cfg.UncertaintyFloor <= 0 {
		cfg.UncertaintyFloor = 0.65
	}

	analyzer := bias.NewAnalyzer()
	if cfg.BiasDetect > 0 && cfg.BiasCorrect > 0 {
		analyzer = bias.NewAnalyzerWithThresholds(cfg.BiasDetect, cfg.BiasCorrect)
	}

	return &Orchestrator{
		store:      store,
		classifier: intent.NewClassifier(),
		analyzer:   analyzer,
		checker:    factcheck.NewChecker(),
		evaluator:  handoff.NewEvaluator(),
		retriever:  retriever,
		embedder:   embedder,
		generator:  generator,
		sink:       sink,
		turns:      turns,
		cache:      cache,
		cfg:        cfg,
	}
}

func (o *Orchestrator) Process(ctx context.Context, req Request) (*Package, error) {
	startTime := time.Now()
	turnID := uuid.New().String()

	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}

	logger.Info("Processing turn",
		zap.String("turn_id", turnID),
		zap.String("conversation_id", req.ConversationID),
	)

	o.seedHistory(req)
	o.store.Append(req.ConversationID, conversation.Message{
		Sender:    conversation.SenderUser,
		Text:      req.Message,
		CreatedAt: time.Now(),
	})
	convCtx := o.store.GetOrCreate(req.ConversationID)

	cacheKey := utils.HashString(req.ConversationID + "|" + req.Message)
	if o.cache != nil {
		var cached Package
		hit, err := o.cache.GetPackage(ctx, cacheKey, &cached)
		if err != nil {
			logger.Warn("Package cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("package").Inc()
			return o.replayCached(req, turnID, &cached, startTime), nil
		}
		metrics.CacheMisses.WithLabelValues("package").Inc()
	}

	intentRes := o.classifySafe(req, turnID)
	metrics.IntentConfidence.Observe(intentRes.Confidence)

	o.record(audit.Event{
		EventType:      audit.EventIntentClassified,
		Severity:       audit.SeverityInfo,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Message:        fmt.Sprintf("Intent %q at confidence %.2f", intentRes.PrimaryIntent, intentRes.Confidence),
		Details: map[string]string{
			"intent":     intentRes.PrimaryIntent,
			"confidence": fmt.Sprintf("%.2f", intentRes.Confidence),
		},
	})

	var pkg *Package
	if intentRes.RequiresClarification {
		pkg = o.clarificationPackage(req, turnID, intentRes)
	} else {
		pkg = o.answerPackage(ctx, req, turnID, intentRes, convCtx)
	}

	o.store.Append(req.ConversationID, conversation.Message{
		Sender:    conversation.SenderBot,
		Text:      pkg.Response,
		CreatedAt: time.Now(),
	})
	if req.Context != nil && req.Context.PageContext != "" {
		o.store.SetPageContext(req.ConversationID, req.Context.PageContext)
	}
	metrics.ActiveConversations.Set(float64(o.store.Len()))

	latency := int(time.Since(startTime).Milliseconds())
	o.persistTurn(req, turnID, pkg, latency)

	if o.cache != nil {
		if err := o.cache.SetPackage(ctx, cacheKey, pkg); err != nil {
			logger.Warn("Package cache write failed", zap.Error(err))
		}
	}

	metrics.TurnsTotal.WithLabelValues("ok").Inc()
	metrics.TurnDuration.WithLabelValues("chat").Observe(time.Since(startTime).Seconds())

	logger.Info("Turn processed",
		zap.String("turn_id", turnID),
		zap.String("intent", pkg.Intent),
		zap.Bool("ambiguous", pkg.Ambiguous),
		zap.Bool("handoff", pkg.HandoffRequired),
		zap.Int("latency_ms", latency),
	)

	return pkg, nil
}

// replayCached finishes a turn whose scored fields came from the package
// cache. Only the scoring is reused: the turn still gets a fresh id, a
// history append, an audit record and a persisted row.
func (o *Orchestrator) replayCached(req Request, turnID string, pkg *Package, startTime time.Time) *Package {
	pkg.TurnID = turnID
	pkg.ConversationID = req.ConversationID

	o.record(audit.Event{
		EventType:      audit.EventCacheServed,
		Severity:       audit.SeverityInfo,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Message:        "Response replayed from package cache",
		Details:        map[string]string{"intent": pkg.Intent},
	})

	o.store.Append(req.ConversationID, conversation.Message{
		Sender:    conversation.SenderBot,
		Text:      pkg.Response,
		CreatedAt: time.Now(),
	})
	metrics.ActiveConversations.Set(float64(o.store.Len()))

	latency := int(time.Since(startTime).Milliseconds())
	o.persistTurn(req, turnID, pkg, latency)

	metrics.TurnsTotal.WithLabelValues("cached").Inc()
	metrics.TurnDuration.WithLabelValues("chat").Observe(time.Since(startTime).Seconds())

	logger.Info("Turn served from cache",
		zap.String("turn_id", turnID),
		zap.String("conversation_id", req.ConversationID),
	)

	return pkg
}

// clarificationPackage is the ambiguous branch: retrieval, fact-check
// and handoff are skipped entirely.
func (o *Orchestrator) clarificationPackage(req Request, turnID string, intentRes intent.Result) *Package {
	metrics.ClarificationsTotal.Inc()

	options := intentRes.SuggestedClarifications
	if len(options) == 0 {
		options = []string{rules.GenericClarification}
	}

	// The templates are house copy, but the bias check still runs so a
	// bad template edit cannot ship uncorrected.
	clarText := options[0]
	clarBias := o.analyzeSafe(req, turnID, clarText)
	if clarBias.CorrectedText != "" {
		clarText = clarBias.CorrectedText
	}

	o.record(audit.Event{
		EventType:      audit.EventClarification,
		Severity:       audit.SeverityInfo,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Message:        fmt.Sprintf("Clarification issued for intent %q", intentRes.PrimaryIntent),
		Details: map[string]string{
			"intent":  intentRes.PrimaryIntent,
			"options": fmt.Sprintf("%d", len(options)),
		},
	})

	return &Package{
		TurnID:               turnID,
		ConversationID:       req.ConversationID,
		Response:             clarText,
		Confidence:           intentRes.Confidence,
		Bias:                 biasReport(clarBias),
		Uncertainty:          true,
		Grounded:             false,
		FactCheck:            FactReport{Reliability: factcheck.ReliabilityUnverified, Sources: []string{}, Recommendations: []string{}},
		Intent:               intentRes.PrimaryIntent,
		SecondaryIntents:     intentRes.SecondaryIntents,
		Entities:             intentRes.Entities,
		Ambiguous:            true,
		ClarificationOptions: options,
	}
}

func (o *Orchestrator) answerPackage(ctx context.Context, req Request, turnID string, intentRes intent.Result, convCtx conversation.Context) *Package {
	messageBias := o.analyzeSafe(req, turnID, req.Message)

	matches, grounded := o.retrieve(ctx, req.Message)
	if grounded {
		metrics.GroundedTotal.WithLabelValues("grounded").Inc()
	} else {
		metrics.GroundedTotal.WithLabelValues("not_grounded").Inc()
	}

	response := o.draftResponse(ctx, req.Message, matches, grounded)

	responseBias := o.analyzeSafe(req, turnID, response)
	if responseBias.CorrectedText != "" {
		response = responseBias.CorrectedText
	}
	metrics.BiasScore.Observe(responseBias.BiasScore)

	if responseBias.Detected || messageBias.Detected {
		o.record(audit.Event{
			EventType:      audit.EventBiasDetected,
			Severity:       audit.SeverityWarning,
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			Message:        "Bias patterns detected during turn",
			Details: map[string]string{
				"message_score":  fmt.Sprintf("%.2f", messageBias.BiasScore),
				"response_score": fmt.Sprintf("%.2f", responseBias.BiasScore),
				"types":          strings.Join(responseBias.BiasTypes, ","),
				"advisories":     strings.Join(bias.CheckRepresentation(response), " | "),
			},
			ComplianceFlags: []string{"bias"},
			ReviewRequired:  responseBias.BiasScore > 0.6,
		})
	}

	factCtx := &factcheck.Context{Intent: intentRes.PrimaryIntent}
	if req.Context != nil {
		factCtx.Location = req.Context.Location
		factCtx.Topic = req.Context.Topic
	}
	if grounded {
		for _, m := range matches {
			factCtx.Sources = append(factCtx.Sources, m.Source)
		}
	}

	factRes := o.checkSafe(req, turnID, response, factCtx)
	metrics.HallucinationRisk.Observe(factRes.HallucinationRisk)

	o.record(audit.Event{
		EventType:      audit.EventFactCheck,
		Severity:       factCheckSeverity(factRes),
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Message:        fmt.Sprintf("Fact check: reliability %s, risk %.2f", factRes.Reliability, factRes.HallucinationRisk),
		Details: map[string]string{
			"reliability": factRes.Reliability,
			"confidence":  fmt.Sprintf("%.2f", factRes.Confidence),
			"risk":        fmt.Sprintf("%.2f", factRes.HallucinationRisk),
			"conflicts":   fmt.Sprintf("%d", len(factRes.Conflicts)),
		},
		ReviewRequired: len(factRes.Conflicts) > 0,
	})

	biasForHandoff := messageBias.BiasScore
	if responseBias.BiasScore > biasForHandoff {
		biasForHandoff = responseBias.BiasScore
	}

	trigger := o.evaluateSafe(req, turnID, handoff.Signals{
		Confidence:        &intentRes.Confidence,
		BiasScore:         &biasForHandoff,
		HallucinationRisk: &factRes.HallucinationRisk,
		Intent:            intentRes.PrimaryIntent,
		Message:           req.Message,
		History:           historyEntries(convCtx.History),
	})

	if trigger.ShouldHandoff {
		metrics.HandoffsTotal.WithLabelValues(trigger.Reason).Inc()
		if o.cache != nil {
			if err := o.cache.IncrementCounter(ctx, "handoffs:"+trigger.Reason); err != nil {
				logger.Warn("Failed to increment handoff counter", zap.Error(err))
			}
		}
		o.record(audit.Event{
			EventType:      audit.EventHandoffTriggered,
			Severity:       audit.SeverityWarning,
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			Message:        fmt.Sprintf("Handoff triggered: %s (%s)", trigger.Reason, trigger.Priority),
			Details: map[string]string{
				"reason":   trigger.Reason,
				"priority": trigger.Priority,
				"expert":   trigger.SuggestedExpert,
			},
			ComplianceFlags: []string{"escalation"},
			ReviewRequired:  true,
		})
		if o.turns != nil {
			err := o.turns.InsertHandoffTicket(&audit.HandoffTicket{
				ConversationID: req.ConversationID,
				TurnID:         turnID,
				Reason:         trigger.Reason,
				Priority:       trigger.Priority,
				Expert:         trigger.SuggestedExpert,
				Summary:        trigger.ContextSummary,
				CreatedAt:      time.Now(),
			})
			if err != nil {
				logger.Warn("Failed to insert handoff ticket", zap.Error(err))
			}
		}
	}

	pkg := &Package{
		TurnID:            turnID,
		ConversationID:    req.ConversationID,
		Response:          response,
		Confidence:        intentRes.Confidence,
		Bias:              biasReport(responseBias),
		Uncertainty:       intentRes.Confidence < o.cfg.UncertaintyFloor,
		Grounded:          grounded,
		Hallucination:     factRes.HallucinationRisk > 0.6,
		HallucinationRisk: factRes.HallucinationRisk,
		FactCheck: FactReport{
			Verified:        factRes.Verified,
			Reliability:     factRes.Reliability,
			Sources:         factRes.Sources,
			Conflicts:       factRes.Conflicts,
			Recommendations: factRes.Recommendations,
		},
		Intent:           intentRes.PrimaryIntent,
		SecondaryIntents: intentRes.SecondaryIntents,
		Entities:         intentRes.Entities,
	}
	if pkg.FactCheck.Sources == nil {
		pkg.FactCheck.Sources = []string{}
	}

	if trigger.ShouldHandoff {
		pkg.HandoffRequired = true
		pkg.HandoffReason = trigger.Reason
		pkg.HandoffPriority = trigger.Priority
		pkg.HandoffContact = trigger.SuggestedExpert
	}

	return pkg
}

// retrieve runs the vector search; any failure or an empty result set
// degrades to "not grounded" instead of failing the turn.
func (o *Orchestrator) retrieve(ctx context.Context, message string) ([]retrieval.Match, bool) {
	if o.retriever == nil || o.embedder == nil {
		return nil, false
	}

	embedding, err := o.embedder.GenerateEmbedding(ctx, message)
	if err != nil {
		logger.Warn("Embedding generation failed", zap.Error(err))
		return nil, false
	}

	matches, err := o.retriever.Search(ctx, embedding, o.cfg.TopK)
	if err != nil {
		logger.Warn("Vector retrieval failed", zap.Error(err))
		return nil, false
	}

	if len(matches) == 0 || matches[0].Distance > o.cfg.GroundedMaxDist {
		return matches, false
	}

	return matches, true
}

func (o *Orchestrator) draftResponse(ctx context.Context, message string, matches []retrieval.Match, grounded bool) string {
	if !grounded {
		return notGroundedResponse
	}

	passages := make([]string, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, m.Text)
	}

	if o.generator != nil {
		reply, err := o.generator.GenerateReply(ctx, message, passages)
		if err == nil && reply != "" {
			return reply
		}
		logger.Warn("Reply generation failed, stitching chunks", zap.Error(err))
	}

	return "Here is what I found: " + strings.Join(passages, " ")
}

func (o *Orchestrator) seedHistory(req Request) {
	if len(req.History) == 0 {
		return
	}
	existing := o.store.GetOrCreate(req.ConversationID)
	if len(existing.History) > 0 {
		return
	}
	for _, msg := range req.History {
		o.store.Append(req.ConversationID, msg)
	}
}

func (o *Orchestrator) persistTurn(req Request, turnID string, pkg *Package, latencyMS int) {
	if o.turns == nil {
		return
	}

	err := o.turns.InsertTurn(&audit.Turn{
		ID:                turnID,
		ConversationID:    req.ConversationID,
		UserID:            req.UserID,
		Message:           req.Message,
		Response:          pkg.Response,
		Intent:            pkg.Intent,
		Confidence:        pkg.Confidence,
		BiasScore:         pkg.Bias.Score,
		HallucinationRisk: pkg.HallucinationRisk,
		Grounded:          pkg.Grounded,
		Ambiguous:         pkg.Ambiguous,
		HandoffReason:     pkg.HandoffReason,
		LatencyMS:         latencyMS,
		CreatedAt:         time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to persist turn", zap.Error(err))
	}
}

func (o *Orchestrator) record(event audit.Event) {
	metrics.AuditEventsTotal.WithLabelValues(event.EventType).Inc()
	if o.sink != nil {
		o.sink.Record(event)
	}
}

// The *Safe wrappers downgrade scorer panics to safe defaults so a
// malformed context can never take down a turn.

func (o *Orchestrator) classifySafe(req Request, turnID string) (result intent.Result) {
	defer o.recoverScorer(req, turnID, "classifier", func() {
		result = intent.Result{
			PrimaryIntent:    rules.IntentInformation,
			SecondaryIntents: []string{},
			Confidence:       0.4,
		}
	})
	return o.classifier.Classify(req.Message, req.Context)
}

func (o *Orchestrator) analyzeSafe(req Request, turnID, text string) (result bias.Analysis) {
	defer o.recoverScorer(req, turnID, "bias", func() {
		result = bias.Analysis{BiasTypes: []string{}, Patterns: []string{}, Suggestions: []string{}}
	})
	return o.analyzer.Analyze(text)
}

func (o *Orchestrator) checkSafe(req Request, turnID, response string, factCtx *factcheck.Context) (result factcheck.Result) {
	defer o.recoverScorer(req, turnID, "factcheck", func() {
		result = factcheck.Result{
			Confidence:        0.5,
			HallucinationRisk: 0,
			Reliability:       factcheck.ReliabilityUnverified,
			Sources:           []string{},
			Recommendations:   []string{},
		}
	})
	return o.checker.Check(response, factCtx)
}

func (o *Orchestrator) evaluateSafe(req Request, turnID string, signals handoff.Signals) (result handoff.Trigger) {
	defer o.recoverScorer(req, turnID, "handoff", func() {
		result = handoff.Trigger{Priority: handoff.PriorityLow, ContextSummary: "Handoff evaluation unavailable."}
	})
	return o.evaluator.Evaluate(signals)
}

func (o *Orchestrator) recoverScorer(req Request, turnID, scorer string, fallback func()) {
	if r := recover(); r != nil {
		logger.Error("Scorer panicked, using safe default",
			zap.String("scorer", scorer),
			zap.String("turn_id", turnID),
			zap.Any("panic", r),
		)
		o.record(audit.Event{
			EventType:      audit.EventScorerFailure,
			Severity:       audit.SeverityCritical,
			ConversationID: req.ConversationID,
			Message:        fmt.Sprintf("Scorer %q failed; safe default applied", scorer),
			Details:        map[string]string{"scorer": scorer},
			ReviewRequired: true,
		})
		fallback()
	}
}

func biasReport(a bias.Analysis) BiasReport {
	types := a.BiasTypes
	if types == nil {
		types = []string{}
	}
	return BiasReport{
		Detected: a.Detected,
		Score:    a.BiasScore,
		Types:    types,
		Severity: bias.Severity(a.BiasScore),
	}
}

func factCheckSeverity(r factcheck.Result) string {
	if len(r.Conflicts) > 0 || r.HallucinationRisk > 0.6 {
		return audit.SeverityWarning
	}
	return audit.SeverityInfo
}

func historyEntries(history []conversation.Message) []handoff.HistoryEntry {
	out := make([]handoff.HistoryEntry, 0, len(history))
	for _, msg := range history {
		out = append(out, handoff.HistoryEntry{Sender: msg.Sender, Text: msg.Text})
	}
	return out
}
