package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/supportchat/backend/internal/audit"
	"github.com/supportchat/backend/internal/conversation"
	"github.com/supportchat/backend/internal/moderation/rules"
	"github.com/supportchat/backend/internal/retrieval"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeRetriever struct {
	calls   int
	matches []retrieval.Match
	err     error
}

func (f *fakeRetriever) Search(_ context.Context, _ []float32, _ int) ([]retrieval.Match, error) {
	f.calls++
	return f.matches, f.err
}

type fakeGenerator struct {
	calls int
	reply string
	err   error
}

func (f *fakeGenerator) GenerateReply(_ context.Context, _ string, _ []string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSink struct {
	events []audit.Event
}

func (f *fakeSink) Record(event audit.Event) {
	f.events = append(f.events, event)
}

func (f *fakeSink) eventTypes() []string {
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return types
}

type fakeTurnStore struct {
	turns   []*audit.Turn
	tickets []*audit.HandoffTicket
}

func (f *fakeTurnStore) InsertTurn(turn *audit.Turn) error {
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeTurnStore) InsertHandoffTicket(ticket *audit.HandoffTicket) error {
	f.tickets = append(f.tickets, ticket)
	return nil
}

type fakeCache struct {
	data     map[string][]byte
	sets     int
	counters map[string]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte), counters: make(map[string]int)}
}

func (f *fakeCache) IncrementCounter(_ context.Context, name string) error {
	f.counters[name]++
	return nil
}

func (f *fakeCache) GetPackage(_ context.Context, key string, pkg interface{}) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, pkg)
}

func (f *fakeCache) SetPackage(_ context.Context, key string, pkg interface{}) error {
	raw, err := json.Marshal(pkg)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.sets++
	return nil
}

const statusMessage = "How long will my status update stay pending, it is still processing?"

func newTestStore(t *testing.T) *conversation.Store {
	t.Helper()
	s := conversation.NewStore(conversation.Config{SweepInterval: time.Hour})
	t.Cleanup(s.Stop)
	return s
}

func TestProcessAmbiguousSkipsRetrieval(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{}
	generator := &fakeGenerator{reply: "should not be used"}
	sink := &fakeSink{}

	o := New(newTestStore(t), retriever, embedder, generator, sink, nil, nil, Config{})

	pkg, err := o.Process(context.Background(), Request{Message: "fire", ConversationID: "c1"})

	assert.NoError(t, err)
	assert.True(t, pkg.Ambiguous)
	assert.Equal(t, rules.IntentAmbiguous, pkg.Intent)
	assert.NotEmpty(t, pkg.ClarificationOptions)
	assert.Equal(t, pkg.ClarificationOptions[0], pkg.Response)
	assert.False(t, pkg.Grounded)
	assert.True(t, pkg.Uncertainty)

	assert.Zero(t, embedder.calls)
	assert.Zero(t, retriever.calls)
	assert.Zero(t, generator.calls)

	assert.Contains(t, sink.eventTypes(), audit.EventIntentClassified)
	assert.Contains(t, sink.eventTypes(), audit.EventClarification)
}

func TestProcessGroundedTurn(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{matches: []retrieval.Match{
		{Text: "Applications are reviewed in the order received.", Source: "support-kb", Distance: 0.5},
	}}
	generator := &fakeGenerator{reply: "Your application is still processing."}
	sink := &fakeSink{}
	turns := &fakeTurnStore{}
	cache := newFakeCache()

	o := New(newTestStore(t), retriever, embedder, generator, sink, turns, cache, Config{})

	pkg, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1", UserID: "u1"})

	assert.NoError(t, err)
	assert.Equal(t, rules.IntentStatus, pkg.Intent)
	assert.False(t, pkg.Ambiguous)
	assert.True(t, pkg.Grounded)
	assert.Equal(t, "Your application is still processing.", pkg.Response)
	assert.False(t, pkg.Hallucination)
	assert.False(t, pkg.HandoffRequired)
	assert.Empty(t, pkg.HandoffReason)

	// The retrieval sources back the fact check.
	assert.True(t, pkg.FactCheck.Verified)
	assert.Contains(t, pkg.FactCheck.Sources, "support-kb")

	assert.Len(t, turns.turns, 1)
	assert.Empty(t, turns.tickets)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, sink.eventTypes(), audit.EventFactCheck)
}

func TestProcessWithoutRetrieverIsNotGrounded(t *testing.T) {
	o := New(newTestStore(t), nil, nil, nil, &fakeSink{}, nil, nil, Config{})

	pkg, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})

	assert.NoError(t, err)
	assert.False(t, pkg.Grounded)
	assert.Contains(t, pkg.Response, "couldn't find information")
}

func TestProcessDistanceGate(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{matches: []retrieval.Match{
		{Text: "loosely related chunk", Source: "support-kb", Distance: 5.0},
	}}
	generator := &fakeGenerator{reply: "irrelevant"}

	o := New(newTestStore(t), retriever, embedder, generator, &fakeSink{}, nil, nil, Config{GroundedMaxDist: 2.0})

	pkg, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})

	assert.NoError(t, err)
	assert.False(t, pkg.Grounded)
	assert.Zero(t, generator.calls)
	assert.Contains(t, pkg.Response, "couldn't find information")
}

func TestProcessRetrievalErrorDegrades(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{err: errors.New("milvus down")}

	o := New(newTestStore(t), retriever, embedder, nil, &fakeSink{}, nil, nil, Config{})

	pkg, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})

	assert.NoError(t, err)
	assert.False(t, pkg.Grounded)
}

func TestProcessGeneratorErrorStitchesChunks(t *testing.T) {
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{matches: []retrieval.Match{
		{Text: "Applications are reviewed in the order received.", Source: "support-kb", Distance: 0.5},
	}}
	generator := &fakeGenerator{err: errors.New("llm timeout")}

	o := New(newTestStore(t), retriever, embedder, generator, &fakeSink{}, nil, nil, Config{})

	pkg, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})

	assert.NoError(t, err)
	assert.True(t, pkg.Grounded)
	assert.Contains(t, pkg.Response, "Applications are reviewed in the order received.")
}

func TestProcessEmergencyHandoff(t *testing.T) {
	sink := &fakeSink{}
	turns := &fakeTurnStore{}
	cache := newFakeCache()

	o := New(newTestStore(t), nil, nil, nil, sink, turns, cache, Config{})

	pkg, err := o.Process(context.Background(), Request{
		Message:        "There is a fire right now, this is an emergency, we need to evacuate immediately",
		ConversationID: "c1",
	})

	assert.NoError(t, err)
	assert.Equal(t, rules.IntentEmergency, pkg.Intent)
	assert.True(t, pkg.HandoffRequired)
	assert.Equal(t, rules.HandoffEmergency, pkg.HandoffReason)
	assert.Equal(t, "urgent", pkg.HandoffPriority)
	assert.NotEmpty(t, pkg.HandoffContact)

	assert.Len(t, turns.tickets, 1)
	assert.Contains(t, sink.eventTypes(), audit.EventHandoffTriggered)
	assert.Equal(t, 1, cache.counters["handoffs:"+rules.HandoffEmergency])
}

func TestProcessAssignsConversationID(t *testing.T) {
	o := New(newTestStore(t), nil, nil, nil, &fakeSink{}, nil, nil, Config{})

	pkg, err := o.Process(context.Background(), Request{Message: statusMessage})

	assert.NoError(t, err)
	assert.NotEmpty(t, pkg.ConversationID)
	assert.NotEmpty(t, pkg.TurnID)
}

func TestProcessCacheHit(t *testing.T) {
	cache := newFakeCache()
	retriever := &fakeRetriever{}
	embedder := &fakeEmbedder{}
	store := newTestStore(t)

	o := New(store, retriever, embedder, nil, &fakeSink{}, nil, cache, Config{})

	first, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})
	assert.NoError(t, err)

	embedderCallsAfterFirst := embedder.calls

	second, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})
	assert.NoError(t, err)

	// The scoring is reused, the turn identity is not.
	assert.Equal(t, first.Response, second.Response)
	assert.NotEqual(t, first.TurnID, second.TurnID)
	assert.Equal(t, embedderCallsAfterFirst, embedder.calls)
}

// A cached reply is still a turn: both messages land in history, an
// audit record is written and the turn is persisted.
func TestProcessCacheHitStillRecordsTurn(t *testing.T) {
	cache := newFakeCache()
	sink := &fakeSink{}
	turns := &fakeTurnStore{}
	store := newTestStore(t)

	o := New(store, nil, nil, nil, sink, turns, cache, Config{})

	_, err := o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})
	assert.NoError(t, err)

	eventsAfterFirst := len(sink.events)
	historyAfterFirst := len(store.GetOrCreate("c1").History)

	_, err = o.Process(context.Background(), Request{Message: statusMessage, ConversationID: "c1"})
	assert.NoError(t, err)

	assert.Greater(t, len(sink.events), eventsAfterFirst)
	assert.Contains(t, sink.eventTypes(), audit.EventCacheServed)
	assert.Equal(t, historyAfterFirst+2, len(store.GetOrCreate("c1").History))
	assert.Len(t, turns.turns, 2)
}

func TestProcessHistorySeed(t *testing.T) {
	store := newTestStore(t)
	o := New(store, nil, nil, nil, &fakeSink{}, nil, nil, Config{})

	seed := []conversation.Message{
		{Sender: conversation.SenderUser, Text: "earlier question", CreatedAt: time.Now()},
		{Sender: conversation.SenderBot, Text: "earlier answer", CreatedAt: time.Now()},
	}

	_, err := o.Process(context.Background(), Request{
		Message:        statusMessage,
		ConversationID: "c1",
		History:        seed,
	})
	assert.NoError(t, err)

	ctx := store.GetOrCreate("c1")
	assert.Equal(t, "earlier question", ctx.History[0].Text)
	// Seed plus the user turn and the bot reply.
	assert.Len(t, ctx.History, 4)
}
