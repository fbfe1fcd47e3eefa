package session

import (
	"container/list"
	"context"
	"sync"
	"time"

	"candybowl/internal/agent"
)

// Session is the local handle for one conversation. History is the whole
// exchange, since the model APIs keep no server-side state.
type Session struct {
	ID         string          `json:"id"`
	Mode       Mode            `json:"mode"`
	CreatedAt  time.Time       `json:"created_at"`
	LastActive time.Time       `json:"last_active"`
	History    []agent.Message `json:"history"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]agent.Message(nil), s.History...)
	return &out
}

// Registry maps session ids to sessions. Get reports ok=false for unknown or
// expired ids.
type Registry interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, bool, error)
}

// MemoryRegistry keeps sessions in process memory with LRU eviction past
// capacity and expiry after ttl of inactivity. Zero capacity or ttl disables
// that limit.
type MemoryRegistry struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element
}

type memoryEntry struct {
	session *Session
	touched time.Time
}

func NewMemoryRegistry(capacity int, ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (r *MemoryRegistry) Put(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if el, ok := r.entries[s.ID]; ok {
		el.Value = &memoryEntry{session: s.clone(), touched: now}
		r.order.MoveToFront(el)
		return nil
	}
	r.entries[s.ID] = r.order.PushFront(&memoryEntry{session: s.clone(), touched: now})
	r.evictLocked(now)
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.entries[id]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	now := r.now()
	if r.expired(entry, now) {
		r.removeLocked(el)
		return nil, false, nil
	}
	entry.touched = now
	r.order.MoveToFront(el)
	return entry.session.clone(), true, nil
}

// Len counts entries, including expired ones not yet swept.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}

func (r *MemoryRegistry) expired(e *memoryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(e.touched) > r.ttl
}

func (r *MemoryRegistry) evictLocked(now time.Time) {
	for el := r.order.Back(); el != nil; {
		prev := el.Prev()
		if r.expired(el.Value.(*memoryEntry), now) {
			r.removeLocked(el)
		}
		el = prev
	}
	for r.capacity > 0 && r.order.Len() > r.capacity {
		r.removeLocked(r.order.Back())
	}
}

func (r *MemoryRegistry) removeLocked(el *list.Element) {
	entry := el.Value.(*memoryEntry)
	delete(r.entries, entry.session.ID)
	r.order.Remove(el)
}
