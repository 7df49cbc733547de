package cache

import (
	"context"
	"sync"
	"time"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// Entry is the persistent tier's single named payload: the full record list
// plus the time it was fetched from origin.
type Entry struct {
	Images    []photarium.ImageRecord `json:"images"`
	Timestamp time.Time               `json:"timestamp"`
}

// PersistentStore is the cross-process durable tier. A miss is (nil, nil);
// implementations convert malformed payloads into misses rather than errors
// where they can tell the difference.
type PersistentStore interface {
	Load(ctx context.Context) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
}

const defaultEntryKey = "photarium:image-cache"

type kvStore struct {
	kv  photarium.KV
	key string
	ttl time.Duration
}

// NewKVStore returns a persistent tier over a KV store (Redis in
// production). ttl bounds the stored entry's lifetime server-side; staleness
// is additionally checked against Entry.Timestamp on load.
func NewKVStore(kv photarium.KV, key string, ttl time.Duration) PersistentStore {
	if key == "" {
		key = defaultEntryKey
	}
	return &kvStore{kv: kv, key: key, ttl: ttl}
}

func (s *kvStore) Load(ctx context.Context) (*Entry, error) {
	var entry Entry
	found, err := s.kv.GetStruct(ctx, s.key, &entry)
	if err != nil || !found {
		return nil, err
	}
	return &entry, nil
}

func (s *kvStore) Save(ctx context.Context, entry *Entry) error {
	return s.kv.SetStruct(ctx, s.key, entry, s.ttl)
}

type memoryStore struct {
	mu    sync.Mutex
	entry *Entry
}

// NewMemoryStore returns a process-local PersistentStore, useful for tests
// and single-process deployments without a durable tier.
func NewMemoryStore() PersistentStore {
	return &memoryStore{}
}

func (s *memoryStore) Load(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, nil
}

func (s *memoryStore) Save(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = entry
	return nil
}
