// Package pool fans a session's discovered references out to the
// detail fetcher with bounded concurrency and live progress.
package pool

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
	"github.com/varmayadav12345678-cell/quicklead/internal/session"
)

// DetailFetcher produces one record per reference, never an error: a
// failed fetch is an error record.
type DetailFetcher interface {
	Fetch(ctx context.Context, ref domain.Reference, cfg domain.JobConfig) domain.BusinessRecord
}

// RecordCache is the optional cross-job cache of recently scraped
// records, keyed by place URL.
type RecordCache interface {
	Lookup(ctx context.Context, url string) (domain.BusinessRecord, bool, error)
	Store(ctx context.Context, rec domain.BusinessRecord, ttl time.Duration) error
}

// Pool is the bounded-concurrency detail-scraping driver.
type Pool struct {
	fetcher  DetailFetcher
	cache    RecordCache // may be nil
	cacheTTL time.Duration
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func New(f DetailFetcher, cache RecordCache, cacheTTL time.Duration, m *monitoring.Metrics, l *zap.Logger) *Pool {
	return &Pool{
		fetcher:  f,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   l,
	}
}

// Run dispatches every discovered reference to the fetcher, at most
// cfg.MaxWorkers at a time, and appends results to the session in
// completion order. Cancellation is polled once per completion;
// already-dispatched units finish naturally but are no longer awaited.
func (p *Pool) Run(ctx context.Context, job *session.Job, cfg domain.JobConfig) error {
	refs := job.References()
	if len(refs) == 0 {
		return nil
	}

	width := cfg.MaxWorkers
	if width <= 0 {
		width = 10
	}
	if width > len(refs) {
		width = len(refs)
	}

	// Both channels hold the full unit count so that an early exit of
	// the consumer never blocks a worker.
	tasks := make(chan domain.Reference, len(refs))
	results := make(chan domain.BusinessRecord, len(refs))
	for _, ref := range refs {
		tasks <- ref
	}
	close(tasks)

	var wg sync.WaitGroup
	for i := 0; i < width; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range tasks {
				// Cooperative check point: drain remaining units
				// without dispatching once cancellation is flagged.
				if job.Cancelled() {
					continue
				}
				results <- p.fetchOne(ctx, ref, cfg)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for rec := range results {
		completed++
		job.AppendResult(rec, float64(completed)/float64(len(refs)))
		if strings.HasPrefix(rec.Status, "ERROR") {
			p.metrics.IncRecords("error")
		} else {
			p.metrics.IncRecords("scraped")
		}
		if job.Cancelled() {
			// Stop awaiting; in-flight units drain into the buffer.
			break
		}
	}
	return nil
}

func (p *Pool) fetchOne(ctx context.Context, ref domain.Reference, cfg domain.JobConfig) domain.BusinessRecord {
	if p.cache != nil {
		if rec, ok, err := p.cache.Lookup(ctx, ref.URL); err == nil && ok {
			// Reuse the cached record under this job's query context.
			rec.Query = ref.Query
			rec.Location = ref.Location
			p.logger.Debug("record served from cache", zap.String("url", ref.URL))
			return rec
		}
	}

	start := time.Now()
	rec := p.fetcher.Fetch(ctx, ref, cfg)
	p.metrics.ObserveFetchDuration(time.Since(start))

	if p.cache != nil && rec.Status == domain.StatusScraped {
		if err := p.cache.Store(ctx, rec, p.cacheTTL); err != nil {
			p.logger.Warn("failed to cache record",
				zap.String("url", ref.URL), zap.Error(err))
		}
	}
	return rec
}
