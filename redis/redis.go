package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

type client struct {
	conn *Connection
}

var marshaler = photarium.NewMarshaler()

// NewClient returns a KV wrapper over the process-wide connection. The
// connection is established lazily on first command.
func NewClient() photarium.KV {
	return &client{}
}

// getConn returns the memoized connection, dialing lazily when needed.
func (c *client) getConn(ctx context.Context) (*Connection, error) {
	if c.conn != nil && c.conn.Client != nil {
		return c.conn, nil
	}
	conn := GetConnection(ctx)
	if conn == nil || conn.Client == nil {
		return nil, fmt.Errorf("redis connection is not open, 'can't create new client")
	}
	c.conn = conn
	return conn, nil
}

// keyNotFound will detect whether error signifies key not found by Redis.
func (c *client) keyNotFound(err error) bool {
	return err == redis.Nil
}

// Ping tests connectivity for redis (PONG should be returned).
func (c *client) Ping(ctx context.Context) error {
	conn, err := c.getConn(ctx)
	if err != nil {
		return err
	}
	return conn.Client.Ping(ctx).Err()
}

// Set executes the redis Set command.
func (c *client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	conn, err := c.getConn(ctx)
	if err != nil {
		return err
	}
	// No caching if expiration < 0.
	if expiration < 0 {
		return nil
	}
	return conn.Client.Set(ctx, key, value, expiration).Err()
}

// Get executes the redis Get command.
func (c *client) Get(ctx context.Context, key string) (bool, string, error) {
	conn, err := c.getConn(ctx)
	if err != nil {
		return false, "", err
	}
	s, err := conn.Client.Get(ctx, key).Result()
	// Convert key not found into returning false and nil err.
	r := err == nil
	if c.keyNotFound(err) {
		err = nil
	}
	return r, s, err
}

// SetStruct serializes the value to JSON and stores it via Set.
func (c *client) SetStruct(ctx context.Context, key string, value any, expiration time.Duration) error {
	if value == nil {
		return fmt.Errorf("value can't be nil")
	}
	ba, err := marshaler.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(ba), expiration)
}

// GetStruct fetches a JSON value and deserializes it into target.
func (c *client) GetStruct(ctx context.Context, key string, target any) (bool, error) {
	if target == nil {
		return false, fmt.Errorf("target can't be nil")
	}
	found, s, err := c.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := marshaler.Unmarshal([]byte(s), target); err != nil {
		return false, err
	}
	return true, nil
}

// Delete executes the redis Del command. The bool result reports whether all
// keys were found and deleted.
func (c *client) Delete(ctx context.Context, keys []string) (bool, error) {
	conn, err := c.getConn(ctx)
	if err != nil {
		return false, err
	}
	n, err := conn.Client.Del(ctx, keys...).Result()
	if err != nil {
		return false, err
	}
	return n == int64(len(keys)), nil
}
