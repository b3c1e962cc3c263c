package pool_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
	"github.com/varmayadav12345678-cell/quicklead/internal/pool"
	"github.com/varmayadav12345678-cell/quicklead/internal/session"
)

var testMetrics = monitoring.NewMetrics()

// stubCollector seeds the session with canned references.
type stubCollector struct {
	refs []domain.Reference
}

func (c stubCollector) Collect(ctx context.Context, job *session.Job, cfg domain.JobConfig) error {
	for _, ref := range c.refs {
		job.AddReference(ref)
	}
	return nil
}

// stubFetcher returns a scraped record per reference, failing the URLs
// listed in failing. Tracks the peak number of concurrent fetches.
type stubFetcher struct {
	failing map[string]bool
	delay   time.Duration

	mu      sync.Mutex
	inPlay  int
	maxSeen int
	calls   int32
}

func (f *stubFetcher) Fetch(ctx context.Context, ref domain.Reference, cfg domain.JobConfig) domain.BusinessRecord {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.inPlay++
	if f.inPlay > f.maxSeen {
		f.maxSeen = f.inPlay
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inPlay--
	f.mu.Unlock()

	if f.failing[ref.URL] {
		return domain.BusinessRecord{
			MapsURL: ref.URL,
			Query:   ref.Query,
			Status:  "ERROR: navigation timeout",
		}
	}
	return domain.BusinessRecord{
		MapsURL: ref.URL,
		Query:   ref.Query,
		Name:    "Biz " + ref.URL,
		Status:  domain.StatusScraped,
	}
}

func refs(n int) []domain.Reference {
	out := make([]domain.Reference, n)
	for i := range out {
		out[i] = domain.Reference{URL: fmt.Sprintf("https://maps.test/place/%d", i), Query: "q", Location: "z"}
	}
	return out
}

func newManager(c session.Collector, p session.Pool) *session.Manager {
	defaults := domain.JobConfig{MaxScrolls: 3, MaxWorkers: 3, ScrapeTimeout: 1}
	return session.NewManager(10, defaults, c, p, nil, testMetrics, zap.NewNop())
}

func waitComplete(t *testing.T, m *session.Manager, id string) domain.StatusSnapshot {
	t.Helper()
	assert.Eventually(t, func() bool {
		snap := m.Status(id)
		return !snap.Active && snap.Phase != domain.PhaseCollectingLinks && snap.Phase != domain.PhaseScrapingDetails
	}, 5*time.Second, 10*time.Millisecond)
	return m.Status(id)
}

func TestPoolProducesAllRecords(t *testing.T) {
	fetcher := &stubFetcher{}
	p := pool.New(fetcher, nil, 0, testMetrics, zap.NewNop())
	m := newManager(stubCollector{refs: refs(7)}, p)

	assert.NoError(t, m.StartJob("all", domain.JobConfig{MaxWorkers: 3}))
	snap := waitComplete(t, m, "all")

	assert.Equal(t, domain.PhaseComplete, snap.Phase)
	assert.Equal(t, 7, snap.ScrapedCount)
	assert.Equal(t, 7, snap.TotalToScrape)

	results := m.Results("all")
	assert.Len(t, results, 7)
	urls := make(map[string]bool)
	for _, rec := range results {
		urls[rec.MapsURL] = true
	}
	assert.Len(t, urls, 7) // every reference fetched exactly once
}

func TestPoolBoundsConcurrency(t *testing.T) {
	fetcher := &stubFetcher{delay: 30 * time.Millisecond}
	p := pool.New(fetcher, nil, 0, testMetrics, zap.NewNop())
	m := newManager(stubCollector{refs: refs(9)}, p)

	assert.NoError(t, m.StartJob("bounded", domain.JobConfig{MaxWorkers: 2}))
	waitComplete(t, m, "bounded")

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.LessOrEqual(t, fetcher.maxSeen, 2)
}

func TestPoolRetainsErrorRecords(t *testing.T) {
	failing := map[string]bool{
		"https://maps.test/place/1": true,
		"https://maps.test/place/3": true,
	}
	fetcher := &stubFetcher{failing: failing}
	p := pool.New(fetcher, nil, 0, testMetrics, zap.NewNop())
	m := newManager(stubCollector{refs: refs(5)}, p)

	assert.NoError(t, m.StartJob("errs", domain.JobConfig{MaxWorkers: 2}))
	snap := waitComplete(t, m, "errs")

	// Failed units count toward scraped and stay in the result set.
	assert.Equal(t, 5, snap.ScrapedCount)

	errored := 0
	for _, rec := range m.Results("errs") {
		if strings.HasPrefix(rec.Status, "ERROR") {
			errored++
		}
	}
	assert.Equal(t, 2, errored)
}

func TestPoolCancellationStopsDispatch(t *testing.T) {
	fetcher := &stubFetcher{delay: 50 * time.Millisecond}
	p := pool.New(fetcher, nil, 0, testMetrics, zap.NewNop())
	m := newManager(stubCollector{refs: refs(20)}, p)

	assert.NoError(t, m.StartJob("cancel", domain.JobConfig{MaxWorkers: 2}))

	assert.Eventually(t, func() bool {
		return m.Status("cancel").ScrapedCount >= 1
	}, 5*time.Second, 5*time.Millisecond)
	m.Cancel("cancel")

	assert.Eventually(t, func() bool {
		snap := m.Status("cancel")
		return !snap.Active && snap.Phase == domain.PhaseIdle
	}, 5*time.Second, 10*time.Millisecond)

	// Undispatched units were dropped at the check point.
	assert.Less(t, int(atomic.LoadInt32(&fetcher.calls)), 20)
	assert.NotEmpty(t, m.Results("cancel"))
}

// memoryCache is an in-process RecordCache.
type memoryCache struct {
	mu      sync.Mutex
	records map[string]domain.BusinessRecord
}

func newMemoryCache() *memoryCache {
	return &memoryCache{records: make(map[string]domain.BusinessRecord)}
}

func (c *memoryCache) Lookup(ctx context.Context, url string) (domain.BusinessRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[url]
	return rec, ok, nil
}

func (c *memoryCache) Store(ctx context.Context, rec domain.BusinessRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.MapsURL] = rec
	return nil
}

func TestPoolReusesCachedRecords(t *testing.T) {
	cache := newMemoryCache()
	fetcher := &stubFetcher{}
	p := pool.New(fetcher, cache, time.Hour, testMetrics, zap.NewNop())

	m := newManager(stubCollector{refs: refs(4)}, p)
	assert.NoError(t, m.StartJob("warm", domain.JobConfig{MaxWorkers: 2}))
	waitComplete(t, m, "warm")
	assert.Equal(t, int32(4), atomic.LoadInt32(&fetcher.calls))

	// Second run over the same references hits the cache only.
	m2 := newManager(stubCollector{refs: refs(4)}, p)
	assert.NoError(t, m2.StartJob("warm2", domain.JobConfig{MaxWorkers: 2}))
	snap := waitComplete(t, m2, "warm2")

	assert.Equal(t, int32(4), atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, 4, snap.ScrapedCount)
}
