package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestStore(cfg Config) *Store {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Hour
	}
	return NewStore(cfg)
}

func TestHistoryFIFOCap(t *testing.T) {
	s := newTestStore(Config{HistoryLimit: 5})
	defer s.Stop()

	for i := 0; i < 7; i++ {
		s.Append("conv", Message{Sender: SenderUser, Text: fmt.Sprintf("msg-%d", i)})
	}

	ctx := s.GetOrCreate("conv")
	assert.Len(t, ctx.History, 5)
	assert.Equal(t, "msg-2", ctx.History[0].Text)
	assert.Equal(t, "msg-6", ctx.History[4].Text)
}

func TestGetOrCreateStartsEmpty(t *testing.T) {
	s := newTestStore(Config{})
	defer s.Stop()

	ctx := s.GetOrCreate("fresh")

	assert.Empty(t, ctx.History)
	assert.NotNil(t, ctx.UserProfile)
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestStore(Config{})
	defer s.Stop()

	s.Append("conv", Message{Sender: SenderUser, Text: "original"})
	s.MergeProfile("conv", map[string]string{"name": "Sam"})

	snap := s.GetOrCreate("conv")
	snap.History[0].Text = "mutated"
	snap.UserProfile["name"] = "changed"

	fresh := s.GetOrCreate("conv")
	assert.Equal(t, "original", fresh.History[0].Text)
	assert.Equal(t, "Sam", fresh.UserProfile["name"])
}

func TestMergeProfileOverlays(t *testing.T) {
	s := newTestStore(Config{})
	defer s.Stop()

	s.MergeProfile("conv", map[string]string{"name": "Sam", "city": "Altadena"})
	s.MergeProfile("conv", map[string]string{"city": "Pasadena"})

	ctx := s.GetOrCreate("conv")
	assert.Equal(t, "Sam", ctx.UserProfile["name"])
	assert.Equal(t, "Pasadena", ctx.UserProfile["city"])
}

func TestSetPageContext(t *testing.T) {
	s := newTestStore(Config{})
	defer s.Stop()

	s.SetPageContext("conv", "/rebuilding/permits")

	assert.Equal(t, "/rebuilding/permits", s.GetOrCreate("conv").PageContext)
}

func TestEvictionAtCapacity(t *testing.T) {
	s := newTestStore(Config{MaxConversations: 3})
	defer s.Stop()

	for i := 0; i < 3; i++ {
		s.Append(fmt.Sprintf("conv-%d", i), Message{Sender: SenderUser, Text: "hi"})
		time.Sleep(5 * time.Millisecond)
	}

	// Touch conv-0 so conv-1 becomes the oldest.
	s.GetOrCreate("conv-0")
	time.Sleep(5 * time.Millisecond)

	s.Append("conv-3", Message{Sender: SenderUser, Text: "hi"})

	assert.Equal(t, 3, s.Len())
	assert.NotEmpty(t, s.GetOrCreate("conv-0").History)
	assert.NotEmpty(t, s.GetOrCreate("conv-3").History)
}

func TestIdleSweep(t *testing.T) {
	s := NewStore(Config{
		IdleTTL:       20 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})
	defer s.Stop()

	s.Append("conv", Message{Sender: SenderUser, Text: "hi"})
	assert.Equal(t, 1, s.Len())

	assert.Eventually(t, func() bool {
		return s.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestConcurrentAppendsSameConversation(t *testing.T) {
	s := newTestStore(Config{HistoryLimit: 5})
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append("conv", Message{Sender: SenderUser, Text: fmt.Sprintf("msg-%d", n)})
		}(i)
	}
	wg.Wait()

	ctx := s.GetOrCreate("conv")
	assert.Len(t, ctx.History, 5)
	assert.Equal(t, 1, s.Len())
}

// Eviction scans lastAccess under the map lock while appenders update it
// under their stripe locks; run with -race to verify the two never conflict.
func TestConcurrentAppendsUnderEvictionPressure(t *testing.T) {
	s := newTestStore(Config{MaxConversations: 2})
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				id := fmt.Sprintf("conv-%d", (n+j)%4)
				s.Append(id, Message{Sender: SenderUser, Text: "hello"})
				s.GetOrCreate(id)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 2)
}

func TestConcurrentDistinctConversations(t *testing.T) {
	s := newTestStore(Config{})
	defer s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("conv-%d", n)
			s.Append(id, Message{Sender: SenderUser, Text: "hello"})
			s.MergeProfile(id, map[string]string{"idx": fmt.Sprintf("%d", n)})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 40, s.Len())
	for i := 0; i < 40; i++ {
		ctx := s.GetOrCreate(fmt.Sprintf("conv-%d", i))
		assert.Len(t, ctx.History, 1)
	}
}
