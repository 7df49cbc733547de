package origin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetadataAllowlist(t *testing.T) {
	meta := ExtractMetadata(map[string]any{
		"folder":      "travel",
		"tags":        []any{"beach", "sunset"},
		"description": "a sunset",
		"altText":     "orange sky over water",
		"contentHash": "abc123",
		"exif":        map[string]any{"Make": "Canon", "ISO": float64(100)},
		// Outside the allowlist: dropped silently.
		"uploadDevice": "phone",
		"secret":       "nope",
	})
	assert.Equal(t, "travel", meta.Folder)
	assert.Equal(t, []string{"beach", "sunset"}, meta.Tags)
	assert.Equal(t, "a sunset", meta.Description)
	assert.Equal(t, "orange sky over water", meta.AltText)
	assert.Equal(t, "abc123", meta.ContentHash)
	assert.Equal(t, map[string]string{"Make": "Canon", "ISO": "100"}, meta.EXIF)
}

func TestExtractMetadataFromJSONString(t *testing.T) {
	meta := ExtractMetadata(`{"folder":"food","tags":["pasta"],"namespace":"main"}`)
	assert.Equal(t, "food", meta.Folder)
	assert.Equal(t, []string{"pasta"}, meta.Tags)
	assert.Equal(t, "main", meta.Namespace)
}

func TestExtractMetadataMalformed(t *testing.T) {
	for _, blob := range []any{nil, "{not json", 42, []byte("also not")} {
		meta := ExtractMetadata(blob)
		assert.Zero(t, meta, "blob %v must yield empty metadata", blob)
	}
}

func TestEnforceMetadataLimitUnderBudget(t *testing.T) {
	in := map[string]any{"folder": "x", "namespace": "main"}
	out, dropped := EnforceMetadataLimit(in, 1024)
	assert.Empty(t, dropped)
	assert.Equal(t, in, out)
}

func TestEnforceMetadataLimitDropOrder(t *testing.T) {
	in := map[string]any{
		"folder":      "travel",
		"namespace":   "main",
		"description": strings.Repeat("d", 200),
		"exif":        map[string]any{"Make": strings.Repeat("x", 300)},
		"displayName": strings.Repeat("n", 200),
	}
	out, dropped := EnforceMetadataLimit(in, 260)
	require.NotEmpty(t, dropped)
	// Least essential go first: exif before displayName before description.
	assert.Equal(t, "exif", dropped[0])
	assert.LessOrEqual(t, payloadSize(out), 260)
	// The essentials survive.
	assert.Contains(t, out, "folder")
	assert.Contains(t, out, "namespace")
}

func TestEnforceMetadataLimitNeverExceedsUnlessExhausted(t *testing.T) {
	in := map[string]any{
		"folder":    strings.Repeat("f", 100),
		"namespace": strings.Repeat("n", 100),
		"exif":      map[string]any{"k": strings.Repeat("v", 500)},
	}
	out, dropped := EnforceMetadataLimit(in, 50)
	// Everything droppable is gone and the rest fits or nothing remains.
	if payloadSize(out) > 50 {
		assert.Empty(t, out, "payload over budget only when nothing droppable remains")
	}
	assert.Len(t, dropped, 3)
}

func TestEnforceMetadataLimitLongestStringsNext(t *testing.T) {
	// Fields outside the fixed order fall back to longest-string dropping.
	in := map[string]any{
		"shortCustom": "ab",
		"longCustom":  strings.Repeat("z", 400),
	}
	out, dropped := EnforceMetadataLimit(in, 64)
	assert.Equal(t, []string{"longCustom"}, dropped)
	assert.Contains(t, out, "shortCustom")
}

func TestEnforceMetadataLimitAccountsForDelta(t *testing.T) {
	in := map[string]any{
		"folder": "travel",
		"exif":   map[string]any{"Make": strings.Repeat("x", 200)},
	}
	before := payloadSize(in)
	out, dropped := EnforceMetadataLimit(in, 64)
	after := payloadSize(out)
	require.Equal(t, []string{"exif"}, dropped)
	// The dropped field accounts for the full size delta.
	entry := map[string]any{"exif": in["exif"]}
	assert.Equal(t, before-after, payloadSize(entry)-len("{}")+len(","))
}
