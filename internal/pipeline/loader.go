// Package pipeline produces the canonical dataset. It reads both raw catalogs
// through the cache, fetches whatever is missing, normalizes, and falls back
// to the last cached canonical result when a source fails.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/star/spacedecay/internal/cache"
	"github.com/star/spacedecay/internal/catalog"
	"github.com/star/spacedecay/internal/metrics"
	"github.com/star/spacedecay/internal/source"
)

// ErrDatasetUnavailable is returned when a source failed and no cached
// canonical dataset exists. It is joined with the source errors.
var ErrDatasetUnavailable = errors.New("canonical dataset unavailable")

const defaultFetchTimeout = 30 * time.Second

// Config holds loader settings.
type Config struct {
	// FetchTimeout bounds each source fetch. Zero means 30s.
	FetchTimeout time.Duration
}

// Loader coordinates the cache, the two source readers and the normalizer.
// Loads are serialized so that each cache key has a single writer.
type Loader struct {
	cache      cache.Store
	readerA    source.Reader[catalog.RawRecordA]
	readerB    source.Reader[catalog.RawRecordB]
	normalizer *catalog.Normalizer
	timeout    time.Duration
	logger     *slog.Logger

	mu       sync.Mutex // serializes loads
	statusMu sync.RWMutex
	statuses []SourceStatus
}

// NewLoader creates a Loader. readerA serves the internal catalog and readerB
// the orbital-decay catalog.
func NewLoader(
	store cache.Store,
	readerA source.Reader[catalog.RawRecordA],
	readerB source.Reader[catalog.RawRecordB],
	normalizer *catalog.Normalizer,
	cfg Config,
	logger *slog.Logger,
) *Loader {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if normalizer == nil {
		normalizer = catalog.NewNormalizer(catalog.DefaultLocale)
	}
	return &Loader{
		cache:      store,
		readerA:    readerA,
		readerB:    readerB,
		normalizer: normalizer,
		timeout:    timeout,
		logger:     logger,
		statuses: []SourceStatus{
			{Source: catalog.SourceCatalogA, Key: cache.KeyNeuraspace},
			{Source: catalog.SourceCatalogB, Key: cache.KeySpaceDecay},
		},
	}
}

// LoadCanonicalDataset returns the canonical dataset, reading raw datasets
// from the cache when present.
func (l *Loader) LoadCanonicalDataset(ctx context.Context) (*catalog.Dataset, error) {
	return l.load(ctx, false)
}

// Refresh is LoadCanonicalDataset with raw cache reads bypassed. Fetched
// datasets are still written through.
func (l *Loader) Refresh(ctx context.Context) (*catalog.Dataset, error) {
	return l.load(ctx, true)
}

// Sources returns the state of each source after the most recent load.
func (l *Loader) Sources() []SourceStatus {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	out := make([]SourceStatus, len(l.statuses))
	copy(out, l.statuses)
	return out
}

func (l *Loader) load(ctx context.Context, force bool) (*catalog.Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	var (
		rawA    []catalog.RawRecordA
		rawB    []catalog.RawRecordB
		statusA SourceStatus
		statusB SourceStatus
	)

	// Each goroutine records its own outcome and returns nil so that one
	// failure never cancels the other fetch.
	var g errgroup.Group
	g.Go(func() error {
		rawA, statusA = loadSource(ctx, l, catalog.SourceCatalogA, cache.KeyNeuraspace, l.readerA, force)
		return nil
	})
	g.Go(func() error {
		rawB, statusB = loadSource(ctx, l, catalog.SourceCatalogB, cache.KeySpaceDecay, l.readerB, force)
		return nil
	})
	_ = g.Wait()

	l.setStatuses(statusA, statusB)

	if statusA.State == StateLoaded && statusB.State == StateLoaded {
		objects := l.normalizer.Normalize(rawA, rawB)
		l.putJSON(ctx, cache.KeyCombined, objects)

		ds := &catalog.Dataset{Objects: objects, LoadedAt: time.Now()}
		l.recordDataset(ds, "fresh")
		l.logger.Info("canonical dataset loaded",
			"objects", len(objects),
			"catalog_a_records", len(rawA),
			"catalog_b_records", len(rawB),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return ds, nil
	}

	srcErr := errors.Join(statusA.Err, statusB.Err)

	var cached []catalog.CanonicalObject
	entry, ok := l.getJSON(ctx, cache.KeyCombined, &cached)
	if ok {
		ds := &catalog.Dataset{Objects: cached, LoadedAt: entry.Time(), Degraded: true}
		l.recordDataset(ds, "degraded")
		l.logger.Warn("serving cached canonical dataset",
			"objects", len(cached),
			"cached_at", entry.Time().UTC().Format(time.RFC3339),
			"error", srcErr,
		)
		return ds, nil
	}

	metrics.IncDatasetLoads("failed")
	l.logger.Error("no canonical dataset available", "error", srcErr)
	return &catalog.Dataset{Objects: []catalog.CanonicalObject{}, LoadedAt: time.Now()},
		errors.Join(ErrDatasetUnavailable, srcErr)
}

// loadSource resolves one raw dataset: cache hit first unless force is set,
// otherwise a bounded fetch that is written back on success.
func loadSource[T any](ctx context.Context, l *Loader, src catalog.SourceTag, key string, reader source.Reader[T], force bool) ([]T, SourceStatus) {
	status := SourceStatus{Source: src, Key: key, State: StateUninitialized}

	if !force {
		var cached []T
		if entry, ok := l.getJSON(ctx, key, &cached); ok {
			status.State = StateLoaded
			status.FromCache = true
			status.Records = len(cached)
			status.UpdatedAt = entry.Time()
			metrics.SetSourceRecords(string(src), len(cached))
			return cached, status
		}
	}

	status.State = StateLoading
	fetchCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	records, err := reader.Fetch(fetchCtx)
	metrics.ObserveSourceFetch(string(src), time.Since(start), err)
	if err != nil {
		status.State = StateFailed
		status.Err = fmt.Errorf("%s: %w", src, err)
		l.logger.Warn("source fetch failed", "source", src, "error", err)
		return nil, status
	}

	if records == nil {
		records = []T{}
	}
	l.putJSON(ctx, key, records)

	status.State = StateLoaded
	status.Records = len(records)
	status.UpdatedAt = time.Now()
	metrics.SetSourceRecords(string(src), len(records))
	l.logger.Info("source fetched",
		"source", src,
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return records, status
}

// getJSON reads key and decodes it into v. Read errors and undecodable
// entries count as misses.
func (l *Loader) getJSON(ctx context.Context, key string, v any) (cache.Entry, bool) {
	entry, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		metrics.IncCacheLookup(key, "error")
		l.logger.Warn("cache read failed", "key", key, "error", err)
		return cache.Entry{}, false
	}
	if !ok {
		metrics.IncCacheLookup(key, "miss")
		return cache.Entry{}, false
	}
	if err := json.Unmarshal(entry.Data, v); err != nil {
		metrics.IncCacheLookup(key, "error")
		l.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return cache.Entry{}, false
	}
	metrics.IncCacheLookup(key, "hit")
	return entry, true
}

// putJSON writes v under key. Failures are logged and never abort a load.
func (l *Loader) putJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = l.cache.Put(ctx, key, data)
	}
	if err != nil {
		metrics.IncCacheWriteErrors(key)
		l.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (l *Loader) setStatuses(statuses ...SourceStatus) {
	l.statusMu.Lock()
	defer l.statusMu.Unlock()
	l.statuses = statuses
}

func (l *Loader) recordDataset(ds *catalog.Dataset, outcome string) {
	metrics.IncDatasetLoads(outcome)
	metrics.SetCanonicalObjects(len(ds.Objects))
	metrics.SetDegraded(ds.Degraded)
}
