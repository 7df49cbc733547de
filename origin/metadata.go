// Package origin adapts the image-hosting provider's listing APIs into typed
// image records. Each image arrives with an opaque metadata blob; only an
// explicit allowlist of fields survives extraction, and outbound metadata
// writes are trimmed to the provider's byte budget.
package origin

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"strconv"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// DefaultMetadataLimit is the provider's upper bound on one image's outbound
// metadata payload, in bytes.
const DefaultMetadataLimit = 1024

// ExtractMetadata flattens an opaque per-image metadata blob into the typed
// allowlist. The blob may be a JSON string or an already-decoded object;
// anything outside the allowlist is dropped silently, and a malformed blob
// yields empty metadata after a log line, never an error.
func ExtractMetadata(blob any) photarium.ImageMeta {
	m := blobMap(blob)
	if m == nil {
		return photarium.ImageMeta{}
	}
	return photarium.ImageMeta{
		Folder:                asString(m["folder"]),
		Tags:                  asStringSlice(m["tags"]),
		Description:           asString(m["description"]),
		OriginalURL:           asString(m["originalUrl"]),
		SourceURL:             asString(m["sourceUrl"]),
		NormalizedOriginalURL: asString(m["normalizedOriginalUrl"]),
		NormalizedSourceURL:   asString(m["normalizedSourceUrl"]),
		Namespace:             asString(m["namespace"]),
		ContentHash:           asString(m["contentHash"]),
		AltText:               asString(m["altText"]),
		DisplayName:           asString(m["displayName"]),
		ParentID:              asString(m["parentId"]),
		LinkedIDs:             asStringSlice(m["linkedIds"]),
		VariationSort:         asString(m["variationSort"]),
		EXIF:                  asStringMap(m["exif"]),
	}
}

func blobMap(blob any) map[string]any {
	switch v := blob.(type) {
	case nil:
		return nil
	case map[string]any:
		return v
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			log.Warn(fmt.Sprintf("malformed metadata blob, treating as empty, details: %v", err))
			return nil
		}
		return m
	case json.RawMessage:
		return decodeRaw(v)
	case []byte:
		return decodeRaw(v)
	}
	log.Warn(fmt.Sprintf("unsupported metadata blob type %T, treating as empty", blob))
	return nil
}

func decodeRaw(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Warn(fmt.Sprintf("malformed metadata blob, treating as empty, details: %v", err))
		return nil
	}
	// The blob itself may be a JSON-encoded string of JSON.
	return blobMap(decoded)
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str := asString(e); str != "" {
				out = append(out, str)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

func asStringMap(v any) map[string]string {
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, e := range m {
			out[k] = asString(e)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}

// metadataDropOrder lists droppable outbound fields least essential first.
var metadataDropOrder = []string{
	"exif",
	"normalizedOriginalUrl",
	"normalizedSourceUrl",
	"displayName",
	"filename",
	"contentHash",
	"uploadedAt",
	"createdAt",
	"type",
	"size",
	"parentId",
	"linkedIds",
	"variationSort",
	"description",
	"tags",
	"originalUrl",
	"sourceUrl",
	"namespace",
	"folder",
}

// EnforceMetadataLimit trims an outbound metadata payload to the provider's
// byte budget. Fields are dropped in a fixed priority order, least essential
// first; if the payload is still over budget, the longest remaining
// string-valued fields go next, longest first. Returns the trimmed payload
// and the names of the dropped fields.
func EnforceMetadataLimit(meta map[string]any, limit int) (map[string]any, []string) {
	if limit <= 0 {
		limit = DefaultMetadataLimit
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	dropped := make([]string, 0)

	size := payloadSize(out)
	for _, k := range metadataDropOrder {
		if size <= limit {
			return out, dropped
		}
		if _, ok := out[k]; !ok {
			continue
		}
		delete(out, k)
		dropped = append(dropped, k)
		size = payloadSize(out)
	}

	for size > limit {
		k := longestStringField(out)
		if k == "" {
			break
		}
		delete(out, k)
		dropped = append(dropped, k)
		size = payloadSize(out)
	}
	return out, dropped
}

func payloadSize(m map[string]any) int {
	ba, err := json.Marshal(m)
	if err != nil {
		return 0
	}
	return len(ba)
}

func longestStringField(m map[string]any) string {
	best := ""
	bestLen := -1
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			continue
		}
		// Deterministic tie-break on the key keeps dropping stable.
		if len(s) > bestLen || (len(s) == bestLen && k < best) {
			best, bestLen = k, len(s)
		}
	}
	return best
}
