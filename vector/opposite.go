package vector

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// Strategy names one of the opposite-search query transforms. Each strategy
// turns "find the most similar" into "find the least similar" in its own way;
// they are a closed set so each can be tested on its own.
type Strategy string

const (
	// StrategyNegation negates every element of the query vector and runs an
	// ordinary nearest-neighbor search on the result. In a cosine space the
	// vector pointing the opposite direction is on average least similar.
	StrategyNegation Strategy = "negation"
	// StrategyStranger over-fetches the nearest neighbors of the original
	// query and returns the tail of that list, most distant first.
	StrategyStranger Strategy = "stranger"
	// StrategyCentroid reflects the query through the corpus centroid and
	// searches near the reflected point.
	StrategyCentroid Strategy = "centroid"
	// StrategyComplement rotates the query color's hue by 180 degrees
	// (color space, hex queries only).
	StrategyComplement Strategy = "complement"
	// StrategyLightnessInvert inverts the query color's lightness and
	// saturation (color space, hex queries only).
	StrategyLightnessInvert Strategy = "lightness_invert"
	// StrategyHistogramInvert replaces each histogram bin with max-value
	// (color space).
	StrategyHistogramInvert Strategy = "histogram_invert"
	// StrategyNegativeSpace negates every bin value directly (color space).
	StrategyNegativeSpace Strategy = "negative_space"
)

// Negate returns the elementwise negation of v. Negating twice returns the
// original vector exactly.
func Negate(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = -f
	}
	return out
}

// Centroid returns the elementwise mean of the vectors, or nil when there are
// none.
func Centroid(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float32, len(vecs[0]))
	for _, v := range vecs {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	n := float32(len(vecs))
	for i := range out {
		out[i] /= n
	}
	return out
}

// Reflect returns the point 2*centroid - q, the query mirrored through the
// centroid. Reflecting the centroid itself returns the centroid.
func Reflect(centroid, q []float32) []float32 {
	out := make([]float32, len(q))
	for i := range q {
		c := float32(0)
		if i < len(centroid) {
			c = centroid[i]
		}
		out[i] = 2*c - q[i]
	}
	return out
}

// strangerFetchCount is the over-fetch heuristic for StrategyStranger.
func strangerFetchCount(limit int) int {
	n := limit * 5
	if n < 50 {
		n = 50
	}
	return n
}

// strangerTail takes the n least-similar results of an over-fetched
// nearest-neighbor list and reverses them so the most distant comes first.
func strangerTail(results []photarium.SearchResult, n int) []photarium.SearchResult {
	if n > len(results) {
		n = len(results)
	}
	out := make([]photarium.SearchResult, 0, n)
	for i := len(results) - 1; i >= len(results)-n; i-- {
		out = append(out, results[i])
	}
	return out
}

// exclude drops excludeID from results and truncates to limit. When the
// exclusion leaves nothing, the empty list is the answer, not an error.
func exclude(results []photarium.SearchResult, excludeID string, limit int) []photarium.SearchResult {
	out := make([]photarium.SearchResult, 0, limit)
	for _, r := range results {
		if excludeID != "" && r.ImageID == excludeID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SearchOpposite locates the least similar images to the query vector in the
// given space using the chosen strategy. excludeID, usually the query image
// itself, is dropped from the results; the over-fetch of limit+1 keeps the
// list full when it appears.
func (s *Store) SearchOpposite(ctx context.Context, space photarium.EmbeddingSpace, queryVector []float32, limit int, strategy Strategy, excludeID string) ([]photarium.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	switch strategy {
	case StrategyNegation:
		res, err := s.SearchByVector(ctx, space, Negate(queryVector), limit+1, "")
		if err != nil {
			return nil, err
		}
		return exclude(res, excludeID, limit), nil

	case StrategyStranger:
		// Approximation: the store only answers "nearest" queries, so the
		// furthest neighbors are taken from the tail of an over-fetched
		// nearest list, bounded by corpus size. Not an exact global
		// furthest-neighbor search.
		res, err := s.SearchByVector(ctx, space, queryVector, strangerFetchCount(limit), "")
		if err != nil {
			return nil, err
		}
		return exclude(strangerTail(res, limit+1), excludeID, limit), nil

	case StrategyCentroid:
		vecs, err := s.scanVectors(ctx, space)
		if err != nil {
			return nil, err
		}
		centroid := Centroid(vecs)
		if centroid == nil {
			return []photarium.SearchResult{}, nil
		}
		res, err := s.SearchByVector(ctx, space, Reflect(centroid, queryVector), limit+1, "")
		if err != nil {
			return nil, err
		}
		return exclude(res, excludeID, limit), nil

	case StrategyHistogramInvert:
		res, err := s.SearchByVector(ctx, space, InvertHistogram(queryVector), limit+1, "")
		if err != nil {
			return nil, err
		}
		return exclude(res, excludeID, limit), nil

	case StrategyNegativeSpace:
		res, err := s.SearchByVector(ctx, space, Negate(queryVector), limit+1, "")
		if err != nil {
			return nil, err
		}
		return exclude(res, excludeID, limit), nil
	}
	return nil, fmt.Errorf("strategy %q does not apply to vector queries", strategy)
}

// SearchOppositeColorHex runs the color-specific opposite strategies that
// transform a hex color query before searching the color space.
func (s *Store) SearchOppositeColorHex(ctx context.Context, hex string, limit int, strategy Strategy) ([]photarium.SearchResult, error) {
	var transformed string
	var err error
	switch strategy {
	case StrategyComplement:
		transformed, err = ComplementaryHex(hex)
	case StrategyLightnessInvert:
		transformed, err = InvertLightnessHex(hex)
	case StrategyHistogramInvert, StrategyNegativeSpace:
		r, g, b, herr := HexToRGB(hex)
		if herr != nil {
			return nil, herr
		}
		return s.SearchOpposite(ctx, photarium.SpaceColor, HistogramForRGB(r, g, b), limit, strategy, "")
	default:
		return nil, fmt.Errorf("strategy %q does not apply to hex color queries", strategy)
	}
	if err != nil {
		return nil, err
	}
	return s.SearchByHexColor(ctx, transformed, limit)
}

// scanVectors reads every stored vector of a space: a full corpus read with
// no pagination limit. The centroid is recomputed from it on every call, so
// reflection always sees the current corpus; records written mid-scan may be
// missed, which is accepted as eventual consistency.
func (s *Store) scanVectors(ctx context.Context, space photarium.EmbeddingSpace) ([][]float32, error) {
	cl, err := s.client(ctx)
	if err != nil {
		return nil, err
	}
	dim := space.Dim()
	var out [][]float32
	var cursor uint64
	for {
		keys, next, err := cl.Scan(ctx, cursor, KeyPrefix+"*", 512).Result()
		if err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			pipe := cl.Pipeline()
			cmds := make([]*redis.StringCmd, len(keys))
			for i, k := range keys {
				cmds[i] = pipe.HGet(ctx, k, string(space))
			}
			if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
				return nil, err
			}
			for _, cmd := range cmds {
				v, err := cmd.Result()
				if err != nil {
					// Record has no vector in this space.
					continue
				}
				vec := Decode([]byte(v))
				if len(vec) == dim {
					out = append(out, vec)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
