package photarium

import (
	"time"
)

// EmbeddingSpace names one of the two vector fields maintained per image.
type EmbeddingSpace string

const (
	// SpaceSemantic is the CLIP-style visual/semantic embedding field.
	SpaceSemantic EmbeddingSpace = "clip_embedding"
	// SpaceColor is the 4x4x4 RGB color histogram field.
	SpaceColor EmbeddingSpace = "color_histogram"
)

// Declared dimensions of the two embedding spaces. The codec does not
// validate these; the index and its callers do.
const (
	SemanticDim = 512
	ColorDim    = 64
)

// Dim returns the declared dimension of the space, or 0 if unknown.
func (s EmbeddingSpace) Dim() int {
	switch s {
	case SpaceSemantic:
		return SemanticDim
	case SpaceColor:
		return ColorDim
	}
	return 0
}

// ImageMeta is the typed form of an origin image's opaque metadata blob.
// Only allowlisted fields survive extraction; anything else the origin
// attached is dropped silently.
type ImageMeta struct {
	Folder                string            `json:"folder,omitempty"`
	Tags                  []string          `json:"tags,omitempty"`
	Description           string            `json:"description,omitempty"`
	OriginalURL           string            `json:"originalUrl,omitempty"`
	SourceURL             string            `json:"sourceUrl,omitempty"`
	NormalizedOriginalURL string            `json:"normalizedOriginalUrl,omitempty"`
	NormalizedSourceURL   string            `json:"normalizedSourceUrl,omitempty"`
	Namespace             string            `json:"namespace,omitempty"`
	ContentHash           string            `json:"contentHash,omitempty"`
	AltText               string            `json:"altText,omitempty"`
	DisplayName           string            `json:"displayName,omitempty"`
	ParentID              string            `json:"parentId,omitempty"`
	LinkedIDs             []string          `json:"linkedIds,omitempty"`
	VariationSort         string            `json:"variationSort,omitempty"`
	EXIF                  map[string]string `json:"exif,omitempty"`
}

// ImageRecord is one image as known to the metadata cache. Records are
// rebuilt wholesale on every cache refresh and removed individually on
// delete; they are owned by the cache and never shared mutably.
type ImageRecord struct {
	ID       string    `json:"id"`
	Filename string    `json:"filename"`
	Uploaded time.Time `json:"uploaded"`
	Variants []string  `json:"variants,omitempty"`
	Meta     ImageMeta `json:"meta"`
}

// SearchResult is one ranked hit from the vector index. Score is the store's
// cosine distance: lower means more similar. Filename and Folder are
// denormalized alongside the vectors so results render without a second
// lookup.
type SearchResult struct {
	ImageID  string  `json:"imageId"`
	Score    float64 `json:"score"`
	Filename string  `json:"filename,omitempty"`
	Folder   string  `json:"folder,omitempty"`
}

// VectorStatus is the lightweight per-image answer of a batch status fetch:
// which embeddings exist plus the color summary, enough for UI status dots.
type VectorStatus struct {
	ImageID        string   `json:"imageId"`
	HasSemantic    bool     `json:"hasSemantic"`
	HasColor       bool     `json:"hasColor"`
	DominantColors []string `json:"dominantColors,omitempty"`
	AverageColor   string   `json:"averageColor,omitempty"`
}
