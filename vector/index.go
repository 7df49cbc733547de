package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
	rc "github.com/bleeckerj/nfl-photarium-sub000/redis"
)

const (
	// IndexName is the fixed RediSearch schema name.
	IndexName = "idx:photarium:images"
	// KeyPrefix prefixes every image's hash record key.
	KeyPrefix = "img:"
)

// Data carries the index record fields of one image. A nil vector slice or
// empty string means "not submitted": StoreVectors writes only the fields
// present, so submitting only a color histogram does not erase an existing
// semantic vector.
type Data struct {
	Semantic       []float32 `json:"semantic,omitempty"`
	Color          []float32 `json:"color,omitempty"`
	Filename       string    `json:"filename,omitempty"`
	Folder         string    `json:"folder,omitempty"`
	DominantColors []string  `json:"dominantColors,omitempty"`
	AverageColor   string    `json:"averageColor,omitempty"`
}

// Store is the vector index service. It shares the process-wide Redis
// connection; there is no per-request connection.
type Store struct {
	embedder TextEmbedder
}

// NewStore creates a vector index service. The embedder backs SearchByText
// and may be nil when text search is not needed.
func NewStore(embedder TextEmbedder) *Store {
	return &Store{embedder: embedder}
}

// Key returns the record key for an image id.
func Key(imageID string) string {
	return KeyPrefix + imageID
}

func (s *Store) client(ctx context.Context) (*redis.Client, error) {
	conn := rc.GetConnection(ctx)
	if conn == nil || conn.Client == nil {
		return nil, fmt.Errorf("redis connection is not open")
	}
	return conn.Client, nil
}

// EnsureIndex probes for the schema by name and creates it when absent. The
// probe-then-create pair is not atomic: concurrent first calls may both
// attempt creation, and the loser's "already exists" error is swallowed.
func (s *Store) EnsureIndex(ctx context.Context) error {
	cl, err := s.client(ctx)
	if err != nil {
		return err
	}
	if err := cl.FTInfo(ctx, IndexName).Err(); err == nil {
		return nil
	}
	// Probe failure means the schema is absent, the expected state on first use.
	err = cl.FTCreate(ctx, IndexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{KeyPrefix},
		},
		&redis.FieldSchema{
			FieldName: string(photarium.SpaceSemantic),
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            photarium.SemanticDim,
					DistanceMetric: "COSINE",
				},
			},
		},
		&redis.FieldSchema{
			FieldName: string(photarium.SpaceColor),
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            photarium.ColorDim,
					DistanceMetric: "COSINE",
				},
			},
		},
		&redis.FieldSchema{FieldName: "filename", FieldType: redis.SearchFieldTypeText, Sortable: true},
		&redis.FieldSchema{FieldName: "folder", FieldType: redis.SearchFieldTypeTag, Sortable: true},
		&redis.FieldSchema{FieldName: "dominant_colors", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "average_color", FieldType: redis.SearchFieldTypeTag},
	).Err()
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		// Lost the creation race; the schema is there, which is all we need.
		return nil
	}
	return err
}

// SearchModuleAvailable reports whether the connected store has the ANN
// search capability loaded. Probe failures mean "not available", never error.
func (s *Store) SearchModuleAvailable(ctx context.Context) bool {
	cl, err := s.client(ctx)
	if err != nil {
		return false
	}
	res, err := cl.Do(ctx, "MODULE", "LIST").Result()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(fmt.Sprintf("%v", res)), "search")
}

// fields maps Data to the stored hash fields, skipping absent values.
func (d Data) fields() map[string]interface{} {
	out := map[string]interface{}{}
	if d.Semantic != nil {
		out[string(photarium.SpaceSemantic)] = Encode(d.Semantic)
	}
	if d.Color != nil {
		out[string(photarium.SpaceColor)] = Encode(d.Color)
	}
	if d.Filename != "" {
		out["filename"] = d.Filename
	}
	if d.Folder != "" {
		out["folder"] = d.Folder
	}
	if len(d.DominantColors) > 0 {
		out["dominant_colors"] = strings.Join(d.DominantColors, ",")
	}
	if d.AverageColor != "" {
		out["average_color"] = d.AverageColor
	}
	return out
}

// StoreVectors writes the fields present in data to the image's record.
// Partial updates are allowed; existing fields not present in data are kept.
func (s *Store) StoreVectors(ctx context.Context, imageID string, data Data) error {
	if data.Semantic != nil && len(data.Semantic) != photarium.SemanticDim {
		return fmt.Errorf("semantic vector must have %d elements, got %d", photarium.SemanticDim, len(data.Semantic))
	}
	if data.Color != nil && len(data.Color) != photarium.ColorDim {
		return fmt.Errorf("color histogram must have %d elements, got %d", photarium.ColorDim, len(data.Color))
	}
	fields := data.fields()
	if len(fields) == 0 {
		return nil
	}
	cl, err := s.client(ctx)
	if err != nil {
		return err
	}
	return cl.HSet(ctx, Key(imageID), fields).Err()
}

// GetVectors reads an image's full record. A missing record returns nil, not
// an error.
func (s *Store) GetVectors(ctx context.Context, imageID string) (*Data, error) {
	cl, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	m, err := cl.HGetAll(ctx, Key(imageID)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	d := &Data{
		Filename:     m["filename"],
		Folder:       m["folder"],
		AverageColor: m["average_color"],
	}
	if v, ok := m[string(photarium.SpaceSemantic)]; ok {
		d.Semantic = Decode([]byte(v))
	}
	if v, ok := m[string(photarium.SpaceColor)]; ok {
		d.Color = Decode([]byte(v))
	}
	if v := m["dominant_colors"]; v != "" {
		d.DominantColors = strings.Split(v, ",")
	}
	return d, nil
}

// DeleteVectors removes an image's record entirely.
func (s *Store) DeleteVectors(ctx context.Context, imageID string) error {
	cl, err := s.client(ctx)
	if err != nil {
		return err
	}
	return cl.Del(ctx, Key(imageID)).Err()
}

// FetchStatuses pipelines a lightweight read for many images at once:
// presence flags for the two vectors plus the color summary fields. It is
// what the UI's status dots poll, so it never pulls vector payloads.
func (s *Store) FetchStatuses(ctx context.Context, imageIDs []string) ([]photarium.VectorStatus, error) {
	cl, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	pipe := cl.Pipeline()
	type probes struct {
		semantic *redis.BoolCmd
		color    *redis.BoolCmd
		summary  *redis.SliceCmd
	}
	cmds := make([]probes, len(imageIDs))
	for i, id := range imageIDs {
		k := Key(id)
		cmds[i] = probes{
			semantic: pipe.HExists(ctx, k, string(photarium.SpaceSemantic)),
			color:    pipe.HExists(ctx, k, string(photarium.SpaceColor)),
			summary:  pipe.HMGet(ctx, k, "dominant_colors", "average_color"),
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make([]photarium.VectorStatus, len(imageIDs))
	for i, id := range imageIDs {
		st := photarium.VectorStatus{ImageID: id}
		st.HasSemantic, _ = cmds[i].semantic.Result()
		st.HasColor, _ = cmds[i].color.Result()
		if vals, err := cmds[i].summary.Result(); err == nil && len(vals) == 2 {
			if v, ok := vals[0].(string); ok && v != "" {
				st.DominantColors = strings.Split(v, ",")
			}
			if v, ok := vals[1].(string); ok {
				st.AverageColor = v
			}
		}
		out[i] = st
	}
	return out, nil
}
