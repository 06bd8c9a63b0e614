package backend

import (
	"context"
	"sync"
	"time"
)

// MemoryFeed fans change signals out to in-process listeners.
type MemoryFeed struct {
	mu        sync.Mutex
	listeners map[string]map[*memoryListener]struct{}
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{listeners: make(map[string]map[*memoryListener]struct{})}
}

type memoryListener struct {
	feed  *MemoryFeed
	topic string
	ch    chan struct{}
	once  sync.Once
}

func (l *memoryListener) C() <-chan struct{} { return l.ch }

func (l *memoryListener) Close() error {
	l.once.Do(func() {
		l.feed.mu.Lock()
		defer l.feed.mu.Unlock()
		delete(l.feed.listeners[l.topic], l)
		close(l.ch)
	})
	return nil
}

func (f *MemoryFeed) Publish(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for l := range f.listeners[topic] {
		// Buffer of one: a pending signal already covers this change.
		select {
		case l.ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(_ context.Context, topic string) (Listener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := &memoryListener{feed: f, topic: topic, ch: make(chan struct{}, 1)}
	if f.listeners[topic] == nil {
		f.listeners[topic] = make(map[*memoryListener]struct{})
	}
	f.listeners[topic][l] = struct{}{}
	return l, nil
}

// MemorySessions keeps revoked token ids until their TTL passes.
type MemorySessions struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{revoked: make(map[string]time.Time), now: time.Now}
}

func (s *MemorySessions) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[tokenID] = s.now().Add(ttl)
	return nil
}

func (s *MemorySessions) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if s.now().After(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
