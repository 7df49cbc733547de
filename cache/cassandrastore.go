package cache

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gocql/gocql"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// CassandraConfig contains configuration for connecting to a Cassandra
// cluster hosting the persistent cache tier.
type CassandraConfig struct {
	// ClusterHosts lists contact points for the Cassandra cluster.
	ClusterHosts []string
	// Keyspace is the keyspace holding the cache table.
	Keyspace string
	// Consistency is the default consistency level for queries.
	Consistency gocql.Consistency
	// ConnectionTimeout is the session connection timeout.
	ConnectionTimeout time.Duration
	// Authenticator is used when the cluster requires authentication.
	Authenticator gocql.Authenticator
}

// CassandraConnection wraps a Cassandra session and its configuration.
type CassandraConnection struct {
	Session *gocql.Session
	Config  CassandraConfig
}

var cassConnection *CassandraConnection
var cassMux sync.Mutex

// OpenCassandraConnection returns the existing global connection or opens a
// new one using the provided config.
func OpenCassandraConnection(config CassandraConfig) (*CassandraConnection, error) {
	if cassConnection != nil {
		return cassConnection, nil
	}
	cassMux.Lock()
	defer cassMux.Unlock()
	if cassConnection != nil {
		return cassConnection, nil
	}

	if config.Keyspace == "" {
		config.Keyspace = "photarium"
	}
	cluster := gocql.NewCluster(config.ClusterHosts...)
	cluster.Keyspace = config.Keyspace
	if config.Consistency != gocql.Any {
		cluster.Consistency = config.Consistency
	}
	if config.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectionTimeout
	}
	if config.Authenticator != nil {
		cluster.Authenticator = config.Authenticator
	}
	s, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Cassandra cluster: %w", err)
	}
	cassConnection = &CassandraConnection{
		Session: s,
		Config:  config,
	}
	return cassConnection, nil
}

// CloseCassandraConnection closes the global connection if open.
func CloseCassandraConnection() {
	cassMux.Lock()
	defer cassMux.Unlock()
	if cassConnection != nil {
		cassConnection.Session.Close()
		cassConnection = nil
	}
}

type cassandraStore struct {
	conn *CassandraConnection
	name string
	ttl  time.Duration
}

var cassMarshaler = photarium.NewMarshaler()

// NewCassandraStore returns a persistent tier over a Cassandra table. The
// entry lives in one row named by name (defaulting like the KV store's key)
// with a server-side TTL.
func NewCassandraStore(conn *CassandraConnection, name string, ttl time.Duration) PersistentStore {
	if name == "" {
		name = defaultEntryKey
	}
	return &cassandraStore{conn: conn, name: name, ttl: ttl}
}

// EnsureCassandraSchema creates the cache table if it does not exist.
func EnsureCassandraSchema(conn *CassandraConnection) error {
	q := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s.image_cache (name text PRIMARY KEY, payload text, ts timestamp);",
		conn.Config.Keyspace)
	return conn.Session.Query(q).Exec()
}

func (s *cassandraStore) Load(ctx context.Context) (*Entry, error) {
	if s.conn == nil || s.conn.Session == nil {
		return nil, fmt.Errorf("cassandra connection is not open")
	}
	q := fmt.Sprintf("SELECT payload FROM %s.image_cache WHERE name = ?;", s.conn.Config.Keyspace)
	var payload string
	if err := s.conn.Session.Query(q, s.name).WithContext(ctx).Scan(&payload); err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var entry Entry
	if err := cassMarshaler.Unmarshal([]byte(payload), &entry); err != nil {
		// Malformed row: a miss, not a failure.
		log.Warn(fmt.Sprintf("malformed cassandra cache entry %s, treating as miss, details: %v", s.name, err))
		return nil, nil
	}
	return &entry, nil
}

func (s *cassandraStore) Save(ctx context.Context, entry *Entry) error {
	if s.conn == nil || s.conn.Session == nil {
		return fmt.Errorf("cassandra connection is not open")
	}
	ba, err := cassMarshaler.Marshal(entry)
	if err != nil {
		return err
	}
	ttlSeconds := int(s.ttl / time.Second)
	q := fmt.Sprintf("INSERT INTO %s.image_cache (name, payload, ts) VALUES (?, ?, ?) USING TTL ?;", s.conn.Config.Keyspace)
	return s.conn.Session.Query(q, s.name, string(ba), entry.Timestamp, ttlSeconds).WithContext(ctx).Exec()
}
