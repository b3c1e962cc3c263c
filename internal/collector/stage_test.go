package collector_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/browser"
	"github.com/varmayadav12345678-cell/quicklead/internal/collector"
	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
	"github.com/varmayadav12345678-cell/quicklead/internal/session"
)

var testMetrics = monitoring.NewMetrics()

// fakePager scripts the links revealed per scroll and records the
// queries it was asked to run.
type fakePager struct {
	mu       sync.Mutex
	queries  []string
	links    map[string][][]string // query -> links per scroll step
	failWith map[string]error
}

func (p *fakePager) Search(ctx context.Context, query string, maxScrolls int, opts browser.Options, visit func(links []string) bool) error {
	p.mu.Lock()
	p.queries = append(p.queries, query)
	steps := p.links[query]
	err := p.failWith[query]
	p.mu.Unlock()

	if err != nil {
		return err
	}
	for i := 0; i < maxScrolls && i < len(steps); i++ {
		if !visit(steps[i]) {
			return nil
		}
	}
	return nil
}

func (p *fakePager) seenQueries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.queries))
	copy(out, p.queries)
	return out
}

// nopPool skips detail scraping so tests can inspect collection state.
type nopPool struct{}

func (nopPool) Run(ctx context.Context, job *session.Job, cfg domain.JobConfig) error {
	return nil
}

func runCollection(t *testing.T, pager *fakePager, cfg domain.JobConfig) (*session.Manager, domain.StatusSnapshot) {
	t.Helper()
	c := collector.New(pager, testMetrics, zap.NewNop())
	defaults := domain.JobConfig{MaxScrolls: 5, MaxWorkers: 2, ScrapeTimeout: 1}
	m := session.NewManager(10, defaults, c, nopPool{}, nil, testMetrics, zap.NewNop())

	assert.NoError(t, m.StartJob("col", cfg))
	assert.Eventually(t, func() bool {
		return !m.Status("col").Active
	}, 5*time.Second, 10*time.Millisecond)
	return m, m.Status("col")
}

func TestCollectRunsEveryQueryInOrder(t *testing.T) {
	pager := &fakePager{links: map[string][][]string{}}
	cfg := domain.JobConfig{
		SearchTerm: "best",
		Categories: []string{"plumber", "cafe"},
		Locations:  []string{"10001", "10002"},
		MaxScrolls: 2,
	}

	_, snap := runCollection(t, pager, cfg)

	assert.Equal(t, []string{
		"best plumber 10001",
		"best plumber 10002",
		"best cafe 10001",
		"best cafe 10002",
	}, pager.seenQueries())
	assert.InDelta(t, 1.0, snap.LinkProgress, 0.001)
}

func TestCollectDeduplicatesReferences(t *testing.T) {
	pager := &fakePager{links: map[string][][]string{
		"pizza 10001": {
			{"https://maps.test/place/a", "https://maps.test/place/b"},
			{"https://maps.test/place/b", "https://maps.test/place/c"},
		},
	}}
	cfg := domain.JobConfig{
		SearchTerm: "pizza",
		Categories: []string{""},
		Locations:  []string{"10001"},
		MaxScrolls: 5,
	}

	_, snap := runCollection(t, pager, cfg)
	assert.Equal(t, 3, snap.LinkCount)
}

func TestCollectSameURLDifferentQueryKept(t *testing.T) {
	pager := &fakePager{links: map[string][][]string{
		"pizza 10001": {{"https://maps.test/place/a"}},
		"pizza 10002": {{"https://maps.test/place/a"}},
	}}
	cfg := domain.JobConfig{
		SearchTerm: "pizza",
		Categories: []string{""},
		Locations:  []string{"10001", "10002"},
		MaxScrolls: 1,
	}

	// Dedup is by full triple, so the same URL under two queries is
	// two references.
	_, snap := runCollection(t, pager, cfg)
	assert.Equal(t, 2, snap.LinkCount)
}

func TestCollectSwallowsQueryFailures(t *testing.T) {
	pager := &fakePager{
		links: map[string][][]string{
			"pizza 10002": {{"https://maps.test/place/x"}},
		},
		failWith: map[string]error{
			"pizza 10001": domain.ErrElementNotFound,
		},
	}
	cfg := domain.JobConfig{
		SearchTerm: "pizza",
		Categories: []string{""},
		Locations:  []string{"10001", "10002"},
		MaxScrolls: 1,
	}

	_, snap := runCollection(t, pager, cfg)

	// The failed query contributed zero references; the stage kept going.
	assert.Len(t, pager.seenQueries(), 2)
	assert.Equal(t, 1, snap.LinkCount)
}

func TestCollectEmptyCategoriesTrimmed(t *testing.T) {
	pager := &fakePager{links: map[string][][]string{
		"pizza 10001": {{"https://maps.test/place/a"}},
	}}
	cfg := domain.JobConfig{
		SearchTerm: "pizza",
		Categories: []string{""},
		Locations:  []string{"10001"},
		MaxScrolls: 1,
	}

	_, snap := runCollection(t, pager, cfg)
	assert.Equal(t, []string{"pizza 10001"}, pager.seenQueries())
	assert.Equal(t, 1, snap.LinkCount)
}
