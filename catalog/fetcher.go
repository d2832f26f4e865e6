package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/signalsfoundry/conjunction-engine/internal/logging"
)

// DefaultSourceURL is the CelesTrak general-perturbations feed for the
// active-satellite group.
const DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?GROUP=active&FORMAT=tle"

// maxCatalogBytes bounds a fetched catalog body. The full public catalog
// is a few tens of megabytes; anything beyond this is a misbehaving
// source, not a bigger catalog.
const maxCatalogBytes = 256 << 20

// Fetcher retrieves raw catalog data over HTTP with exponential-backoff
// retries. Server-side failures and transport errors retry; client-side
// rejections (4xx) do not.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	maxTries   uint
	log        logging.Logger
}

// NewFetcher creates a Fetcher for the given source URL. An empty URL
// selects the CelesTrak default.
func NewFetcher(sourceURL string, log logging.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxTries: 4,
		log:      log,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string { return f.sourceURL }

// Fetch retrieves the raw catalog body, retrying transient failures.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return f.fetchOnce(ctx)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(f.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			f.log.Warn(ctx, "catalog fetch retrying",
				logging.String("url", f.sourceURL),
				logging.String("error", err.Error()),
				logging.Duration("backoff", next),
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog from %s: %w", f.sourceURL, err)
	}
	return body, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, backoff.Permanent(fmt.Errorf("source rejected request with status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty catalog body")
	}
	return body, nil
}
