package conversation

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNilConversation      = errors.New("conversation is nil")
	ErrInvalidSession       = errors.New("session id is empty")
)

const (
	defaultMemoryTTL      = 24 * time.Hour
	defaultMemoryCapacity = 10000
)

// Store is the persistence contract used by the orchestrator. Single writer
// per session is assumed; concurrent turns for one session must be serialized
// by the caller.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, sessionID string) error
}

// GetOrCreate loads the session's conversation, creating one seeded with the
// system prompt when the store has no entry.
func GetOrCreate(ctx context.Context, store Store, sessionID, systemPrompt string, now time.Time) (*Conversation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	conv, err := store.Load(ctx, sessionID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}
	return New(sessionID, systemPrompt, now), nil
}

// MemoryOption customizes MemoryStore.
type MemoryOption func(*MemoryStore)

func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func WithCapacity(capacity int) MemoryOption {
	return func(s *MemoryStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

func withClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// MemoryStore is the default volatile backend. Sessions expire after the
// configured TTL and, when the capacity cap is exceeded, the stalest
// conversations (by UpdatedAt) are evicted on the next write.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	ttl           time.Duration
	capacity      int
	now           func() time.Time
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		conversations: make(map[string]*Conversation),
		ttl:           defaultMemoryTTL,
		capacity:      defaultMemoryCapacity,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Conversation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	s.mu.RLock()
	conv, ok := s.conversations[sessionID]
	s.mu.RUnlock()
	if !ok || s.expired(conv) {
		return nil, ErrConversationNotFound
	}
	// Detached copy: an aborted turn mutating the loaded value must not
	// change the stored transcript until Save.
	return conv.clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, conv *Conversation) error {
	if conv == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(conv.SessionID) == "" {
		return ErrInvalidSession
	}
	if err := conv.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.SessionID] = conv.clone()
	s.evictLocked()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
	return nil
}

// Len reports live (non-expired) sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, conv := range s.conversations {
		if !s.expired(conv) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(conv *Conversation) bool {
	return s.ttl > 0 && s.now().Sub(conv.UpdatedAt) > s.ttl
}

func (s *MemoryStore) evictLocked() {
	for id, conv := range s.conversations {
		if s.expired(conv) {
			delete(s.conversations, id)
		}
	}
	if len(s.conversations) <= s.capacity {
		return
	}

	type entry struct {
		id        string
		updatedAt time.Time
	}
	entries := make([]entry, 0, len(s.conversations))
	for id, conv := range s.conversations {
		entries = append(entries, entry{id: id, updatedAt: conv.UpdatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].updatedAt.Before(entries[j].updatedAt)
	})
	for _, e := range entries[:len(entries)-s.capacity] {
		delete(s.conversations, e.id)
	}
}
