package cache

import (
	"fmt"

	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds a MemoryStore when no size is configured.
const DefaultMemoryEntries = 256

// MemoryStore is a bounded in-process LRU with per-entry TTL.
type MemoryStore struct {
	entries    *lru.Cache[string, *Entry]
	ttlSeconds int
}

// NewMemoryStore creates a store holding at most size entries.
func NewMemoryStore(size, ttlSeconds int) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	entries, err := lru.New[string, *Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}
	return &MemoryStore{entries: entries, ttlSeconds: ttlSeconds}, nil
}

// Get returns the entry for key.
func (s *MemoryStore) Get(key string) (*Entry, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	if entry.IsExpired() {
		s.entries.Remove(key)
		return nil, ErrExpired
	}
	return entry, nil
}

// Set stores data under key, evicting the least recently used entry if full.
func (s *MemoryStore) Set(key string, data json.RawMessage) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.entries.Add(key, NewEntry(key, data, s.ttlSeconds))
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s.entries.Remove(key)
	return nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear() error {
	s.entries.Purge()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int { return s.entries.Len() }
