package photarium

import (
	"context"
	"time"
)

// KV is the minimal key/value cache surface the retrieval core needs from a
// cross-process store. The redis subpackage provides the production
// implementation; tests use in-memory fakes.
type KV interface {
	// Set stores a string value with the given expiration. A zero expiration
	// means no expiry; a negative expiration disables caching.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	// Get fetches a string value. The bool result reports whether the key
	// was found; a missing key is not an error.
	Get(ctx context.Context, key string) (bool, string, error)
	// SetStruct marshals value and stores it with the given expiration.
	SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error
	// GetStruct fetches and unmarshals into target. The bool result reports
	// whether the key was found.
	GetStruct(ctx context.Context, key string, target any) (bool, error)
	// Delete removes the given keys. The bool result reports whether all
	// keys existed.
	Delete(ctx context.Context, keys []string) (bool, error)
	// Ping tests connectivity to the store.
	Ping(ctx context.Context) error
}
