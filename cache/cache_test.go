package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
	"github.com/bleeckerj/nfl-photarium-sub000/redis"
)

type fakeOrigin struct {
	mu     sync.Mutex
	calls  int
	images []photarium.ImageRecord
	err    error
	gate   chan struct{}
}

func (f *fakeOrigin) ListImages(ctx context.Context, pageSize, maxPages int) ([]photarium.ImageRecord, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

func (f *fakeOrigin) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDeleter struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeDeleter) DeleteVectors(ctx context.Context, imageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, imageID)
	return nil
}

func records(ids ...string) []photarium.ImageRecord {
	out := make([]photarium.ImageRecord, len(ids))
	for i, id := range ids {
		out[i] = photarium.ImageRecord{ID: id, Filename: id + ".jpg"}
	}
	return out
}

func withClock(t *testing.T, start time.Time) func(d time.Duration) {
	t.Helper()
	current := start
	var mu sync.Mutex
	Now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	t.Cleanup(func() { Now = time.Now })
	return func(d time.Duration) {
		mu.Lock()
		current = current.Add(d)
		mu.Unlock()
	}
}

func waitForCalls(t *testing.T, origin *fakeOrigin, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if origin.callCount() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d origin calls, got %d", want, origin.callCount())
}

func TestSingleFlight(t *testing.T) {
	origin := &fakeOrigin{images: records("a", "b"), gate: make(chan struct{})}
	c := New(DefaultOptions(), nil, origin, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]photarium.ImageRecord, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.Get(ctx)
			if err != nil {
				t.Errorf("Get failed: %v", err)
			}
			results[i] = r
		}(i)
	}
	// Let both callers reach the coalesced fetch, then release it.
	time.Sleep(50 * time.Millisecond)
	close(origin.gate)
	wg.Wait()

	if got := origin.callCount(); got != 1 {
		t.Errorf("expected exactly one origin fetch, got %d", got)
	}
	if len(results[0]) != 2 || len(results[1]) != 2 {
		t.Errorf("expected both callers to receive the full result set, got %d and %d", len(results[0]), len(results[1]))
	}
}

func TestTTLLadder(t *testing.T) {
	advance := withClock(t, time.Unix(1_700_000_000, 0))
	origin := &fakeOrigin{images: records("a")}
	c := New(Options{MemoryTTL: 5 * time.Minute, PersistentTTL: time.Hour, PageSize: 50}, nil, origin, nil)
	ctx := context.Background()

	// t=0: populates, one origin fetch.
	if _, err := c.Get(ctx); err != nil {
		t.Fatal(err)
	}
	if origin.callCount() != 1 {
		t.Fatalf("expected 1 origin fetch, got %d", origin.callCount())
	}

	// t=1min: served from memory, no new fetch.
	advance(time.Minute)
	if _, err := c.Get(ctx); err != nil {
		t.Fatal(err)
	}
	if origin.callCount() != 1 {
		t.Fatalf("expected still 1 origin fetch, got %d", origin.callCount())
	}

	// t=6min: memory TTL expired, stale data served while a fresh origin
	// fetch runs.
	advance(5 * time.Minute)
	imgs, err := c.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 1 {
		t.Errorf("expected stale-but-valid data, got %d records", len(imgs))
	}
	waitForCalls(t, origin, 2)
}

func TestPersistentTierHit(t *testing.T) {
	withClock(t, time.Unix(1_700_000_000, 0))
	origin := &fakeOrigin{images: records("fresh")}
	store := NewMemoryStore()
	store.Save(context.Background(), &Entry{Images: records("persisted"), Timestamp: Now()})

	c := New(DefaultOptions(), store, origin, nil)
	imgs, err := c.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 1 || imgs[0].ID != "persisted" {
		t.Fatalf("expected persisted tier entry, got %v", imgs)
	}
	if origin.callCount() != 0 {
		t.Errorf("expected zero origin fetches, got %d", origin.callCount())
	}
}

func TestExpiredPersistentTierFallsThrough(t *testing.T) {
	advance := withClock(t, time.Unix(1_700_000_000, 0))
	origin := &fakeOrigin{images: records("fresh")}
	store := NewMemoryStore()
	store.Save(context.Background(), &Entry{Images: records("old"), Timestamp: Now()})

	advance(2 * time.Hour)
	c := New(DefaultOptions(), store, origin, nil)
	imgs, err := c.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 1 || imgs[0].ID != "fresh" {
		t.Fatalf("expected origin data, got %v", imgs)
	}
	if origin.callCount() != 1 {
		t.Errorf("expected one origin fetch, got %d", origin.callCount())
	}
}

func TestMalformedPersistedEntryIsAMiss(t *testing.T) {
	kv := redis.NewMockClient()
	kv.Set(context.Background(), defaultEntryKey, "{not json", 0)
	store := NewKVStore(kv, "", time.Hour)

	origin := &fakeOrigin{images: records("a")}
	c := New(DefaultOptions(), store, origin, nil)
	imgs, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("malformed persisted entry must not fail the caller: %v", err)
	}
	if len(imgs) != 1 || origin.callCount() != 1 {
		t.Errorf("expected origin fallback, got %v after %d fetches", imgs, origin.callCount())
	}
}

func TestRefreshFallsBackToSnapshot(t *testing.T) {
	origin := &fakeOrigin{images: records("a", "b")}
	c := New(DefaultOptions(), nil, origin, nil)
	ctx := context.Background()
	if _, err := c.Get(ctx); err != nil {
		t.Fatal(err)
	}

	origin.err = errors.New("origin down")
	imgs, err := c.Refresh(ctx, true)
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if len(imgs) != 2 {
		t.Errorf("expected last good snapshot, got %v", imgs)
	}
}

func TestRefreshPropagatesWithoutSnapshot(t *testing.T) {
	origin := &fakeOrigin{err: errors.New("origin down")}
	c := New(DefaultOptions(), nil, origin, nil)
	if _, err := c.Refresh(context.Background(), true); err == nil {
		t.Fatal("expected error with no snapshot to fall back to")
	}
}

func TestUpsertAndRemove(t *testing.T) {
	origin := &fakeOrigin{images: records("a")}
	deleter := &fakeDeleter{}
	c := New(DefaultOptions(), nil, origin, deleter)
	ctx := context.Background()
	if _, err := c.Get(ctx); err != nil {
		t.Fatal(err)
	}

	c.Upsert(ctx, photarium.ImageRecord{ID: "b", Filename: "b.jpg"})
	rec, err := c.Lookup(ctx, "b")
	if err != nil || rec == nil {
		t.Fatalf("expected record b after upsert, err: %v", err)
	}

	// Replacement, not duplication.
	c.Upsert(ctx, photarium.ImageRecord{ID: "b", Filename: "b2.jpg"})
	imgs, _ := c.Get(ctx)
	if len(imgs) != 2 {
		t.Errorf("expected 2 records, got %d", len(imgs))
	}
	rec, _ = c.Lookup(ctx, "b")
	if rec.Filename != "b2.jpg" {
		t.Errorf("expected updated filename, got %s", rec.Filename)
	}

	c.Remove(ctx, "b")
	rec, _ = c.Lookup(ctx, "b")
	if rec != nil {
		t.Error("record b still present after remove")
	}
	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	if len(deleter.ids) != 1 || deleter.ids[0] != "b" {
		t.Errorf("expected vector delete for b, got %v", deleter.ids)
	}
}

// recordingStore keeps every saved entry so tests can assert on what reached
// the persistent tier, not just its final state.
type recordingStore struct {
	mu      sync.Mutex
	entries []*Entry
}

func (s *recordingStore) Load(ctx context.Context) (*Entry, error) { return nil, nil }

func (s *recordingStore) Save(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingStore) saved() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Entry(nil), s.entries...)
}

func TestUpsertOnColdCacheHydratesFirst(t *testing.T) {
	origin := &fakeOrigin{images: records("a", "b")}
	store := &recordingStore{}
	c := New(DefaultOptions(), store, origin, nil)
	ctx := context.Background()

	c.Upsert(ctx, photarium.ImageRecord{ID: "c", Filename: "c.jpg"})
	if origin.callCount() != 1 {
		t.Fatalf("expected upsert on a cold cache to hydrate from origin, got %d fetches", origin.callCount())
	}

	imgs, err := c.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 3 {
		t.Fatalf("expected the whole collection plus the upsert, got %d records", len(imgs))
	}
	if origin.callCount() != 1 {
		t.Errorf("expected the hydrated snapshot to satisfy Get, got %d fetches", origin.callCount())
	}

	// Everything saved to the persistent tier describes the whole collection;
	// the 1-record view must never reach it.
	deadline := time.Now().Add(2 * time.Second)
	for {
		saved := store.saved()
		for _, entry := range saved {
			if len(entry.Images) < 2 {
				t.Fatalf("partial snapshot reached the persistent tier: %v", entry.Images)
			}
		}
		done := false
		for _, entry := range saved {
			if len(entry.Images) == 3 {
				done = true
			}
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("upserted collection never reached the persistent tier, saves: %d", len(saved))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUpsertOnColdCacheWithDeadOrigin(t *testing.T) {
	origin := &fakeOrigin{err: errors.New("origin down")}
	store := &recordingStore{}
	c := New(DefaultOptions(), store, origin, nil)
	ctx := context.Background()

	c.Upsert(ctx, photarium.ImageRecord{ID: "c", Filename: "c.jpg"})

	// The record is readable locally while origin is down.
	rec, err := c.Lookup(ctx, "c")
	if err != nil || rec == nil {
		t.Fatalf("expected record c after upsert, err: %v", err)
	}

	// The never-hydrated snapshot must not overwrite the persistent tier's
	// whole-collection entry.
	time.Sleep(50 * time.Millisecond)
	if saved := store.saved(); len(saved) != 0 {
		t.Errorf("partial snapshot reached the persistent tier: %v", saved)
	}
}

func TestReset(t *testing.T) {
	origin := &fakeOrigin{images: records("a")}
	c := New(DefaultOptions(), nil, origin, nil)
	ctx := context.Background()
	if _, err := c.Get(ctx); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	if _, err := c.Get(ctx); err != nil {
		t.Fatal(err)
	}
	if origin.callCount() != 2 {
		t.Errorf("expected a fresh origin fetch after Reset, got %d", origin.callCount())
	}
}
