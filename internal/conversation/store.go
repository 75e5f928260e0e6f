// Package conversation holds the per-conversation rolling state: the
// last few turns, the page context and the user profile. Mutations are
// serialized per conversation id with striped locks, so two concurrent
// turns for the same id cannot interleave their read-modify-write.
package conversation

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/supportchat/backend/pkg/logger"
)

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

const stripeCount = 32

// Message is an immutable turn record; it is never mutated after append.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Context struct {
	History     []Message         `json:"history"`
	PageContext string            `json:"pageContext,omitempty"`
	UserProfile map[string]string `json:"userProfile"`
}

type Config struct {
	HistoryLimit     int
	MaxConversations int
	IdleTTL          time.Duration
	SweepInterval    time.Duration
}

// entry.lastAccess is unix nanos stored atomically: accessors touch it
// under a stripe mutex while the evictor and sweeper read it under s.mu,
// and the two locks are never held together.
type entry struct {
	ctx        Context
	lastAccess atomic.Int64
}

func (e *entry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stripes [stripeCount]sync.Mutex

	historyLimit     int
	maxConversations int
	idleTTL          time.Duration

	sweeper *time.Ticker
	done    chan struct{}
}

func NewStore(cfg Config) *Store {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 5
	}
	if cfg.MaxConversations <= 0 {
		cfg.MaxConversations = 10000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	s := &Store{
		entries:          make(map[string]*entry),
		historyLimit:     cfg.HistoryLimit,
		maxConversations: cfg.MaxConversations,
		idleTTL:          cfg.IdleTTL,
		sweeper:          time.NewTicker(cfg.SweepInterval),
		done:             make(chan struct{}),
	}

	go s.sweep()

	return s
}

// GetOrCreate returns a snapshot of the conversation's context, creating
// it lazily on first reference.
func (s *Store) GetOrCreate(id string) Context {
	e := s.lookup(id)

	stripe := s.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	e.touch()
	return snapshot(e.ctx)
}

// Append adds a turn and enforces the FIFO history cap: the oldest entry
// is evicted first.
func (s *Store) Append(id string, msg Message) {
	e := s.lookup(id)

	stripe := s.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	e.ctx.History = append(e.ctx.History, msg)
	if len(e.ctx.History) > s.historyLimit {
		e.ctx.History = e.ctx.History[len(e.ctx.History)-s.historyLimit:]
	}
	e.touch()
}

// MergeProfile overlays the partial profile onto the stored one.
func (s *Store) MergeProfile(id string, partial map[string]string) {
	if len(partial) == 0 {
		return
	}

	e := s.lookup(id)

	stripe := s.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	if e.ctx.UserProfile == nil {
		e.ctx.UserProfile = make(map[string]string, len(partial))
	}
	for k, v := range partial {
		e.ctx.UserProfile[k] = v
	}
	e.touch()
}

func (s *Store) SetPageContext(id, pageContext string) {
	e := s.lookup(id)

	stripe := s.stripe(id)
	stripe.Lock()
	defer stripe.Unlock()

	e.ctx.PageContext = pageContext
	e.touch()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Stop() {
	s.sweeper.Stop()
	close(s.done)
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok = s.entries[id]; ok {
		return e
	}

	if len(s.entries) >= s.maxConversations {
		s.evictOldestLocked()
	}

	e = &entry{ctx: Context{UserProfile: make(map[string]string)}}
	e.touch()
	s.entries[id] = e
	return e
}

// evictOldestLocked drops the least recently touched conversation.
// Caller holds the write lock.
func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldestAt int64
	)
	for id, e := range s.entries {
		if at := e.lastAccess.Load(); oldestID == "" || at < oldestAt {
			oldestID = id
			oldestAt = at
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
		logger.Debug("Conversation evicted", zap.String("conversation_id", oldestID))
	}
}

func (s *Store) sweep() {
	for {
		select {
		case <-s.done:
			return
		case <-s.sweeper.C:
			cutoff := time.Now().Add(-s.idleTTL).UnixNano()
			s.mu.Lock()
			for id, e := range s.entries {
				if e.lastAccess.Load() < cutoff {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Store) stripe(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.stripes[h.Sum32()%stripeCount]
}

// snapshot deep-copies the context so pipeline stages never observe a
// concurrent mutation.
func snapshot(ctx Context) Context {
	out := Context{
		PageContext: ctx.PageContext,
		History:     make([]Message, len(ctx.History)),
		UserProfile: make(map[string]string, len(ctx.UserProfile)),
	}
	copy(out.History, ctx.History)
	for k, v := range ctx.UserProfile {
		out.UserProfile[k] = v
	}
	return out
}
