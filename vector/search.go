package vector

import (
	"context"
	"fmt"
	log "log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// TextEmbedder converts a text query to a semantic-space vector. The embed
// subpackage provides implementations.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 10

// knnQuery builds the dialect-2 k-nearest-neighbor query string for the
// given field, optionally pre-filtered by a scalar expression.
func knnQuery(space photarium.EmbeddingSpace, k int, filter string) string {
	pre := "*"
	if filter != "" {
		pre = "(" + filter + ")"
	}
	return fmt.Sprintf("%s=>[KNN %d @%s $vec AS score]", pre, k, space)
}

// SearchByVector runs a k-nearest-neighbor query over the chosen embedding
// space, sorted by the store's own score field ascending (lower cosine
// distance first). filter, when non-empty, is a scalar pre-filter expression
// such as `@folder:{travel}`. Returns up to limit results with the
// denormalized filename/folder attached.
func (s *Store) SearchByVector(ctx context.Context, space photarium.EmbeddingSpace, queryVector []float32, limit int, filter string) ([]photarium.SearchResult, error) {
	dim := space.Dim()
	if dim == 0 {
		return nil, fmt.Errorf("unknown embedding space %q", space)
	}
	if len(queryVector) != dim {
		return nil, fmt.Errorf("query vector for %s must have %d elements, got %d", space, dim, len(queryVector))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	cl, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	res, err := cl.FTSearchWithArgs(ctx, IndexName, knnQuery(space, limit, filter), &redis.FTSearchOptions{
		Params: map[string]interface{}{
			"vec": string(Encode(queryVector)),
		},
		SortBy:         []redis.FTSearchSortBy{{FieldName: "score", Asc: true}},
		Limit:          limit,
		Return:         []redis.FTSearchReturn{{FieldName: "score"}, {FieldName: "filename"}, {FieldName: "folder"}},
		DialectVersion: 2,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("knn search on %s failed: %w", space, err)
	}

	out := make([]photarium.SearchResult, 0, len(res.Docs))
	for _, doc := range res.Docs {
		r := photarium.SearchResult{
			ImageID:  trimKey(doc.ID),
			Filename: doc.Fields["filename"],
			Folder:   doc.Fields["folder"],
		}
		if sv, err := strconv.ParseFloat(doc.Fields["score"], 64); err == nil {
			r.Score = sv
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// SearchByText embeds the query text and searches the semantic space. An
// embedding failure yields an empty result list, not an error: text search
// degrades to "nothing found" when the embedder is down.
func (s *Store) SearchByText(ctx context.Context, query string, limit int) ([]photarium.SearchResult, error) {
	if s.embedder == nil {
		log.Warn("text search requested but no embedder is configured")
		return []photarium.SearchResult{}, nil
	}
	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		log.Warn(fmt.Sprintf("text embedding failed, returning no results, details: %v", err))
		return []photarium.SearchResult{}, nil
	}
	return s.SearchByVector(ctx, photarium.SpaceSemantic, vec, limit, "")
}

// SearchByHexColor searches the color space with a synthetic histogram
// representing the given "#rrggbb" color.
func (s *Store) SearchByHexColor(ctx context.Context, hex string, limit int) ([]photarium.SearchResult, error) {
	r, g, b, err := HexToRGB(hex)
	if err != nil {
		return nil, err
	}
	return s.SearchByVector(ctx, photarium.SpaceColor, HistogramForRGB(r, g, b), limit, "")
}

func trimKey(key string) string {
	if len(key) > len(KeyPrefix) && key[:len(KeyPrefix)] == KeyPrefix {
		return key[len(KeyPrefix):]
	}
	return key
}
