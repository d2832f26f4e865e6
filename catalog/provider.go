package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/signalsfoundry/conjunction-engine/internal/logging"
	"github.com/signalsfoundry/conjunction-engine/kb"
)

// Provider assembles validated kb snapshots: live fetch first, written
// through to the cache, with the newest cached catalog as the fallback
// when the source is unreachable. The returned snapshot's source tag
// records which path produced it.
type Provider struct {
	fetcher *Fetcher
	cache   *Cache
	log     logging.Logger
	now     func() time.Time
}

// NewProvider constructs a provider. The cache may be nil, in which case
// there is no fallback and fetch failures are terminal.
func NewProvider(fetcher *Fetcher, cache *Cache, log logging.Logger) *Provider {
	if log == nil {
		log = logging.Noop()
	}
	return &Provider{fetcher: fetcher, cache: cache, log: log, now: time.Now}
}

// Snapshot produces the freshest validated snapshot it can. A live fetch
// that succeeds is cached before parsing; a fetch that fails falls back
// to the newest cached body. Only when both paths fail is the error
// terminal.
func (p *Provider) Snapshot(ctx context.Context) (*kb.Snapshot, error) {
	body, err := p.fetcher.Fetch(ctx)
	if err == nil {
		fetchedAt := p.now().UTC()
		if p.cache != nil {
			if cerr := p.cache.Put(ctx, body, p.fetcher.SourceURL(), fetchedAt); cerr != nil {
				// Cache write failures degrade future fallbacks, not this run.
				p.log.Warn(ctx, "catalog cache write failed",
					logging.String("error", cerr.Error()),
				)
			}
		}
		return p.assemble(ctx, body, fetchedAt, kb.SourceLive)
	}

	if p.cache == nil {
		return nil, err
	}

	p.log.Warn(ctx, "live catalog fetch failed, trying cache",
		logging.String("error", err.Error()),
	)
	body, fetchedAt, cacheErr := p.cache.Latest(ctx)
	if cacheErr != nil {
		if errors.Is(cacheErr, ErrCacheEmpty) {
			return nil, fmt.Errorf("live fetch failed and no cached catalog exists: %w", err)
		}
		return nil, fmt.Errorf("live fetch failed (%v); cache fallback also failed: %w", err, cacheErr)
	}
	return p.assemble(ctx, body, fetchedAt, kb.SourceCache)
}

// FromFile builds a snapshot from a local TLE file, bypassing fetch and
// cache entirely.
func (p *Provider) FromFile(ctx context.Context, path string) (*kb.Snapshot, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	info, err := os.Stat(path)
	asOf := p.now().UTC()
	if err == nil {
		asOf = info.ModTime().UTC()
	}
	return p.assemble(ctx, body, asOf, kb.SourceFile)
}

func (p *Provider) assemble(ctx context.Context, body []byte, asOf time.Time, source kb.Source) (*kb.Snapshot, error) {
	sets, parseRejections, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing catalog (%s): %w", source, err)
	}

	snap := kb.NewSnapshot(sets, asOf, source)
	rejected := len(parseRejections) + len(snap.Rejections())
	if rejected > 0 {
		p.log.Warn(ctx, "catalog entries rejected",
			logging.String("source", string(source)),
			logging.Int("rejected", rejected),
			logging.Int("accepted", snap.Len()),
		)
	}
	if snap.Len() == 0 {
		return nil, fmt.Errorf("catalog from %s contained no valid element sets", source)
	}

	p.log.Info(ctx, "catalog snapshot assembled",
		logging.String("source", string(source)),
		logging.Int("objects", snap.Len()),
		logging.String("as_of", asOf.Format(time.RFC3339)),
	)
	return snap, nil
}
