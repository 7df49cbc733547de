package main

import (
	"context"
	"os"

	log "log/slog"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
	"github.com/bleeckerj/nfl-photarium-sub000/cache"
	"github.com/bleeckerj/nfl-photarium-sub000/embed"
	"github.com/bleeckerj/nfl-photarium-sub000/origin"
	"github.com/bleeckerj/nfl-photarium-sub000/redis"
	"github.com/bleeckerj/nfl-photarium-sub000/rest_api"
	"github.com/bleeckerj/nfl-photarium-sub000/vector"
)

var ctx = context.TODO()

var redisConfig = redis.Options{
	Address:  envOr("PHOTARIUM_REDIS_ADDRESS", "localhost:6379"),
	Password: os.Getenv("PHOTARIUM_REDIS_PASSWORD"),
	DB:       0,
	URL:      os.Getenv("PHOTARIUM_REDIS_URL"),
}

var originConfig = origin.Config{
	BaseURL: os.Getenv("PHOTARIUM_ORIGIN_URL"),
	Token:   os.Getenv("PHOTARIUM_ORIGIN_TOKEN"),
}

func init() {
	photarium.ConfigureLogging()
	redis.SetOptions(redisConfig)
}

func main() {
	var embedder vector.TextEmbedder
	if script := os.Getenv("PHOTARIUM_CLIP_SCRIPT"); script != "" {
		embedder = embed.NewCLIPProcess(envOr("PHOTARIUM_CLIP_PYTHON", "python3"), script)
	} else if url := os.Getenv("PHOTARIUM_OLLAMA_URL"); url != "" {
		embedder = embed.NewOllama(url, envOr("PHOTARIUM_OLLAMA_MODEL", "clip"))
	}

	vectors := vector.NewStore(embedder)
	if vectors.SearchModuleAvailable(ctx) {
		if err := vectors.EnsureIndex(ctx); err != nil {
			log.Error("create vector index failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("redis search module unavailable, vector search endpoints will fail")
	}

	images := cache.New(cache.DefaultOptions(), persistentStore(), originLister(), vectors)

	rest_api.Main(rest_api.NewImagesRestApi(images, vectors))
}

// originLister picks the listing provider: an S3-compatible bucket when one
// is configured, otherwise the paginated host API.
func originLister() cache.Origin {
	bucket := os.Getenv("PHOTARIUM_S3_BUCKET")
	if bucket == "" {
		return origin.NewHostClient(originConfig)
	}
	client := origin.Connect(origin.S3Config{
		HostEndpointUrl: os.Getenv("PHOTARIUM_S3_ENDPOINT"),
		Region:          envOr("PHOTARIUM_S3_REGION", "us-east-1"),
		Username:        os.Getenv("PHOTARIUM_S3_USERNAME"),
		Password:        os.Getenv("PHOTARIUM_S3_PASSWORD"),
	})
	return origin.NewS3Lister(client, bucket)
}

// persistentStore picks the warm tier backend: Cassandra when a cluster is
// configured, otherwise the shared Redis connection.
func persistentStore() cache.PersistentStore {
	hosts := os.Getenv("PHOTARIUM_CASSANDRA_HOSTS")
	if hosts == "" {
		return cache.NewKVStore(redis.NewClient(), "", 0)
	}
	conn, err := cache.OpenCassandraConnection(cache.CassandraConfig{
		ClusterHosts: []string{hosts},
		Keyspace:     envOr("PHOTARIUM_CASSANDRA_KEYSPACE", "photarium"),
	})
	if err != nil {
		log.Error("cassandra connect failed", "error", err)
		os.Exit(1)
	}
	if err := cache.EnsureCassandraSchema(conn); err != nil {
		log.Error("cassandra schema setup failed", "error", err)
		os.Exit(1)
	}
	return cache.NewCassandraStore(conn, "image-cache", 0)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
