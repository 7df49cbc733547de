package redis

import (
	"context"
	"sync"
	"time"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

type mockRedis struct {
	mu     sync.Mutex
	lookup map[string][]byte
}

// NewMockClient returns an in-memory KV useful for tests. Expirations are
// ignored; entries live until deleted.
func NewMockClient() photarium.KV {
	return &mockRedis{
		lookup: make(map[string][]byte),
	}
}

func (m *mockRedis) Ping(ctx context.Context) error {
	return nil
}

func (m *mockRedis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookup[key] = []byte(value)
	return nil
}

func (m *mockRedis) Get(ctx context.Context, key string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ba, ok := m.lookup[key]
	if !ok {
		return false, "", nil
	}
	return true, string(ba), nil
}

func (m *mockRedis) SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error {
	ba, err := marshaler.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookup[key] = ba
	return nil
}

func (m *mockRedis) GetStruct(ctx context.Context, key string, target any) (bool, error) {
	m.mu.Lock()
	ba, ok := m.lookup[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := marshaler.Unmarshal(ba, target); err != nil {
		return false, err
	}
	return true, nil
}

func (m *mockRedis) Delete(ctx context.Context, keys []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := true
	for _, k := range keys {
		if _, ok := m.lookup[k]; !ok {
			all = false
			continue
		}
		delete(m.lookup, k)
	}
	return all, nil
}
