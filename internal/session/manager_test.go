package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
)

// Shared across tests: promauto registers against the default registry
// and re-registration panics.
var testMetrics = monitoring.NewMetrics()

// fakeCollector appends canned references, optionally blocking until
// released to let tests observe the collecting phase.
type fakeCollector struct {
	refs    []domain.Reference
	release chan struct{} // nil means no blocking
}

func (c *fakeCollector) Collect(ctx context.Context, job *Job, cfg domain.JobConfig) error {
	if c.release != nil {
		<-c.release
	}
	for _, ref := range c.refs {
		job.AddReference(ref)
	}
	if job.Cancelled() {
		return nil
	}
	job.PublishLinkProgress("Query 1/1", len(c.refs), 1)
	return nil
}

// fakePool appends one scraped record per reference.
type fakePool struct{}

func (fakePool) Run(ctx context.Context, job *Job, cfg domain.JobConfig) error {
	refs := job.References()
	for i, ref := range refs {
		job.AppendResult(domain.BusinessRecord{
			MapsURL: ref.URL,
			Status:  domain.StatusScraped,
		}, float64(i+1)/float64(len(refs)))
	}
	return nil
}

func refs(n int) []domain.Reference {
	out := make([]domain.Reference, n)
	for i := range out {
		out[i] = domain.Reference{URL: fmt.Sprintf("https://maps.test/place/%d", i), Query: "q", Location: "loc"}
	}
	return out
}

func newTestManager(limit int, c Collector, p Pool) *Manager {
	return NewManager(limit, domain.JobConfig{MaxScrolls: 5, MaxWorkers: 2, ScrapeTimeout: 1}, c, p, nil, testMetrics, zap.NewNop())
}

func TestPipelineCompletes(t *testing.T) {
	m := newTestManager(5, &fakeCollector{refs: refs(3)}, fakePool{})

	assert.NoError(t, m.StartJob("s1", domain.JobConfig{}))

	assert.Eventually(t, func() bool {
		return m.Status("s1").Phase == domain.PhaseComplete
	}, 2*time.Second, 10*time.Millisecond)

	snap := m.Status("s1")
	assert.False(t, snap.Active)
	assert.Equal(t, 3, snap.LinkCount)
	assert.Equal(t, 3, snap.TotalToScrape)
	assert.Equal(t, 3, snap.ScrapedCount)
	assert.InDelta(t, 1.0, snap.DetailProgress, 0.001)
	assert.Len(t, m.Results("s1"), 3)
}

func TestCountersNeverExceedTotals(t *testing.T) {
	m := newTestManager(5, &fakeCollector{refs: refs(4)}, fakePool{})

	assert.NoError(t, m.StartJob("counters", domain.JobConfig{}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := m.Status("counters")
		if snap.TotalToScrape > 0 {
			assert.LessOrEqual(t, snap.ScrapedCount, snap.TotalToScrape)
		}
		if snap.LinkTotal > 0 {
			assert.LessOrEqual(t, snap.LinkCount, snap.LinkTotal)
		}
		if snap.Phase == domain.PhaseComplete {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not complete")
}

func TestNoReferencesGoesIdle(t *testing.T) {
	m := newTestManager(5, &fakeCollector{}, fakePool{})

	assert.NoError(t, m.StartJob("empty", domain.JobConfig{}))

	assert.Eventually(t, func() bool {
		snap := m.Status("empty")
		return snap.Phase == domain.PhaseIdle && !snap.Active
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, m.Results("empty"))
}

func TestStartJobRejectsActiveSession(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(5, &fakeCollector{refs: refs(1), release: release}, fakePool{})

	assert.NoError(t, m.StartJob("busy", domain.JobConfig{}))

	err := m.StartJob("busy", domain.JobConfig{})
	assert.ErrorIs(t, err, domain.ErrJobAlreadyActive)

	// The rejection left state untouched.
	assert.True(t, m.Status("busy").Active)

	close(release)
	assert.Eventually(t, func() bool {
		return m.Status("busy").Phase == domain.PhaseComplete
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrencyCeiling(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(1, &fakeCollector{refs: refs(1), release: release}, fakePool{})

	assert.NoError(t, m.StartJob("first", domain.JobConfig{}))

	err := m.StartJob("second", domain.JobConfig{})
	assert.ErrorIs(t, err, domain.ErrConcurrencyLimitExceeded)

	close(release)
	assert.Eventually(t, func() bool {
		return m.ActiveCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Slot freed: the second session is accepted now.
	assert.NoError(t, m.StartJob("second", domain.JobConfig{}))
}

func TestCancelReleasesSlotImmediately(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(5, &fakeCollector{refs: refs(2), release: release}, fakePool{})

	assert.NoError(t, m.StartJob("c1", domain.JobConfig{}))
	m.Cancel("c1")

	// Active marker cleared before the background work unwinds.
	assert.False(t, m.Status("c1").Active)
	assert.NoError(t, m.StartJob("c1", domain.JobConfig{}))

	close(release)
	assert.Eventually(t, func() bool {
		snap := m.Status("c1")
		return !snap.Active && snap.Phase != domain.PhaseCollectingLinks
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStaleJobCannotClobberSuccessor(t *testing.T) {
	s := newSession("stale")

	oldJob, err := s.begin()
	assert.NoError(t, err)

	s.cancel()
	newJob, err := s.begin()
	assert.NoError(t, err)

	// The superseded job's publications are dropped.
	oldJob.PublishLinkProgress("old", 99, 0.5)
	oldJob.AppendResult(domain.BusinessRecord{Status: domain.StatusScraped}, 1)
	oldJob.Finish(domain.PhaseFailed, "old failure")

	assert.True(t, oldJob.Cancelled())
	assert.False(t, newJob.Cancelled())

	snap := s.Snapshot()
	assert.True(t, snap.Active)
	assert.NotEqual(t, "old", snap.Message)
	assert.Zero(t, snap.LinkTotal)
	assert.Empty(t, s.Results())
}

func TestCancelledCollectorSkipsScraping(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(5, &fakeCollector{refs: refs(2), release: release}, fakePool{})

	assert.NoError(t, m.StartJob("skip", domain.JobConfig{}))
	m.Cancel("skip")
	close(release)

	assert.Eventually(t, func() bool {
		return m.Status("skip").Phase == domain.PhaseIdle
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, m.Results("skip"))
}
