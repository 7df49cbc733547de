package origin

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// Provider page-size bounds.
const (
	MaxPageSize     = 100
	DefaultPageSize = 50
)

// Config holds connection settings for the image host's listing API.
type Config struct {
	// BaseURL of the host API, e.g. "https://images.example.com/api".
	BaseURL string `json:"base_url"`
	// Token is sent as a bearer token when non-empty.
	Token string `json:"token,omitempty"`
	// HTTPClient overrides the default client (30s timeout) when set.
	HTTPClient *http.Client `json:"-"`
}

// HostClient pages through the origin image host's listing API. The listing
// is slow; it exists to rebuild the metadata cache, not to serve queries.
type HostClient struct {
	cfg Config
	hc  *http.Client
}

// NewHostClient creates a listing client for the image host API.
func NewHostClient(cfg Config) *HostClient {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &HostClient{cfg: cfg, hc: hc}
}

type listImage struct {
	ID       string          `json:"id"`
	Filename string          `json:"filename"`
	Uploaded time.Time       `json:"uploaded"`
	Variants []string        `json:"variants"`
	Meta     json.RawMessage `json:"meta"`
}

type listResponse struct {
	Images []listImage `json:"images"`
}

// ListImages pages through the whole collection. pageSize is clamped to the
// provider maximum; maxPages, when positive, caps pagination so a
// misconfigured origin cannot spin forever.
func (c *HostClient) ListImages(ctx context.Context, pageSize, maxPages int) ([]photarium.ImageRecord, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var out []photarium.ImageRecord
	for page := 1; ; page++ {
		if maxPages > 0 && page > maxPages {
			log.Warn(fmt.Sprintf("origin listing stopped at page guard, %d pages fetched", maxPages))
			break
		}
		images, err := c.listPage(ctx, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("origin listing page %d failed: %w", page, err)
		}
		for _, li := range images {
			out = append(out, photarium.ImageRecord{
				ID:       li.ID,
				Filename: li.Filename,
				Uploaded: li.Uploaded,
				Variants: li.Variants,
				Meta:     ExtractMetadata(li.Meta),
			})
		}
		if len(images) < pageSize {
			break
		}
	}
	return out, nil
}

// listPage fetches one page, retrying transient failures with Fibonacci
// backoff. Client-side errors (4xx) are permanent.
func (c *HostClient) listPage(ctx context.Context, page, perPage int) ([]listImage, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/v1/images")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()

	var images []listImage
	b := retry.NewFibonacci(500 * time.Millisecond)
	err = retry.Do(ctx, retry.WithMaxRetries(3, b), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		if c.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("origin returned %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("origin returned %s", resp.Status)
		}
		var lr listResponse
		if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
			return fmt.Errorf("malformed origin listing: %w", err)
		}
		images = lr.Images
		return nil
	})
	return images, err
}
