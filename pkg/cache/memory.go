package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryStore created with a non-positive capacity.
const DefaultMaxEntries = 4096

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// MemoryStore is a bounded LRU with per-entry expiry.
type MemoryStore struct {
	mu       sync.Mutex
	list     *list.List
	items    map[string]*list.Element
	capacity int
	now      func() time.Time
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}
	return &MemoryStore{
		list:     list.New(),
		items:    make(map[string]*list.Element),
		capacity: capacity,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.live(key)
	if !ok {
		return "", ErrNotFound
	}
	s.list.MoveToFront(elem)
	return elem.Value.(*memoryEntry).value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set(key, value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.set(key, value, ttl)
	return true, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.list.Init()
	s.items = make(map[string]*list.Element)
	return nil
}

// Len reports the number of stored entries, expired ones included until touched.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Len()
}

// live returns the element for key, dropping it if it has expired. Caller holds mu.
func (s *MemoryStore) live(key string) (*list.Element, bool) {
	elem, ok := s.items[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*memoryEntry)
	if !ent.expiresAt.IsZero() && !s.now().Before(ent.expiresAt) {
		s.list.Remove(elem)
		delete(s.items, key)
		return nil, false
	}
	return elem, true
}

func (s *MemoryStore) set(key, value string, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	if elem, ok := s.items[key]; ok {
		ent := elem.Value.(*memoryEntry)
		ent.value = value
		ent.expiresAt = expiresAt
		s.list.MoveToFront(elem)
		return
	}

	s.items[key] = s.list.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	for s.list.Len() > s.capacity {
		victim := s.list.Back()
		s.list.Remove(victim)
		delete(s.items, victim.Value.(*memoryEntry).key)
	}
}
