// Package embed provides text-to-vector clients for the semantic embedding
// space. The retrieval core only consumes vectors; generating them is the
// embedder's problem, whether that is a CLIP sidecar process or a local
// model server.
package embed

import "context"

// Embedder converts text to a semantic-space vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
