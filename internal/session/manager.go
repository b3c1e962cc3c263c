package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
)

// Collector is the link collection stage. Per-query failures are
// swallowed inside Collect; a returned error is a stage-level fault.
type Collector interface {
	Collect(ctx context.Context, job *Job, cfg domain.JobConfig) error
}

// Pool is the bounded detail-scraping stage.
type Pool interface {
	Run(ctx context.Context, job *Job, cfg domain.JobConfig) error
}

// Archiver persists a finished job's result set. Optional.
type Archiver interface {
	ArchiveResults(ctx context.Context, sessionID string, records []domain.BusinessRecord) error
}

// Manager is the process-wide session registry and job orchestrator.
// Its own lock guards session creation and the global active-count
// check; everything else goes through each session's lock.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	limit     int
	defaults  domain.JobConfig
	collector Collector
	pool      Pool
	archiver  Archiver
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

func NewManager(limit int, defaults domain.JobConfig, c Collector, p Pool, a Archiver, m *monitoring.Metrics, l *zap.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		limit:     limit,
		defaults:  defaults,
		collector: c,
		pool:      p,
		archiver:  a,
		metrics:   m,
		logger:    l,
	}
}

// Get returns the session for id, creating it on first reference.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *Manager) getLocked(id string) *Session {
	s, ok := m.sessions[id]
	if !ok {
		s = newSession(id)
		m.sessions[id] = s
	}
	return s
}

// ActiveCount reports how many sessions currently have a running job.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeCountLocked()
}

func (m *Manager) activeCountLocked() int {
	n := 0
	for _, s := range m.sessions {
		if s.isActive() {
			n++
		}
	}
	return n
}

// StartJob accepts a new job for the session, or rejects it with
// ErrConcurrencyLimitExceeded / ErrJobAlreadyActive. On acceptance the
// pipeline runs on its own goroutine and the call returns immediately.
func (m *Manager) StartJob(id string, cfg domain.JobConfig) error {
	m.mu.Lock()
	s := m.getLocked(id)
	if m.activeCountLocked() >= m.limit {
		m.mu.Unlock()
		return fmt.Errorf("%d active jobs: %w", m.limit, domain.ErrConcurrencyLimitExceeded)
	}
	job, err := s.begin()
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.metrics.IncJobsStarted()
	m.logger.Info("job accepted",
		zap.String("session", id),
		zap.String("term", cfg.SearchTerm),
		zap.Int("categories", len(cfg.Categories)),
		zap.Int("locations", len(cfg.Locations)))

	go m.runJob(job, m.normalize(cfg))
	return nil
}

// Cancel sets the cooperative stop flag on the session's current job.
// In-flight fetches run to their next check point; the active slot is
// released immediately.
func (m *Manager) Cancel(id string) {
	m.Get(id).cancel()
	m.logger.Info("job cancel requested", zap.String("session", id))
}

// CancelAll flags every session, used on shutdown.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.cancel()
	}
}

// Status returns the session's status snapshot.
func (m *Manager) Status(id string) domain.StatusSnapshot {
	return m.Get(id).Snapshot()
}

// Results returns the session's current result set.
func (m *Manager) Results(id string) []domain.BusinessRecord {
	return m.Get(id).Results()
}

// runJob drives one job through both stages. Any fault escaping the
// per-unit handlers is captured here; the session returns to an
// acceptable state instead of crashing the process.
func (m *Manager) runJob(job *Job, cfg domain.JobConfig) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("job pipeline panic",
				zap.String("session", job.SessionID()),
				zap.Any("panic", r))
			m.metrics.IncErrorsTotal("pipeline_panic")
			job.Finish(domain.PhaseFailed, fmt.Sprintf("Error: %v. Ready for next job.", r))
		}
	}()

	job.SetPhase(domain.PhaseCollectingLinks, "Collecting links...")
	if err := m.collector.Collect(ctx, job, cfg); err != nil {
		m.logger.Error("link collection failed",
			zap.String("session", job.SessionID()), zap.Error(err))
		m.metrics.IncErrorsTotal("collect_failed")
		job.Finish(domain.PhaseFailed, fmt.Sprintf("Error: %v. Ready for next job.", err))
		return
	}

	refs := job.References()
	if job.Cancelled() || len(refs) == 0 {
		job.Finish(domain.PhaseIdle, "Ready for next job.")
		return
	}

	job.BeginScraping(len(refs), fmt.Sprintf("Scraping %d businesses...", len(refs)))
	if err := m.pool.Run(ctx, job, cfg); err != nil {
		m.logger.Error("detail scraping failed",
			zap.String("session", job.SessionID()), zap.Error(err))
		m.metrics.IncErrorsTotal("scrape_failed")
		job.Finish(domain.PhaseFailed, fmt.Sprintf("Error: %v. Ready for next job.", err))
		return
	}

	if job.Cancelled() {
		job.Finish(domain.PhaseIdle, "Ready for next job.")
		return
	}
	job.Finish(domain.PhaseComplete, "Complete! Ready for next job.")

	if m.archiver != nil {
		if err := m.archiver.ArchiveResults(ctx, job.SessionID(), job.s.Results()); err != nil {
			m.logger.Warn("failed to archive results",
				zap.String("session", job.SessionID()), zap.Error(err))
			m.metrics.IncErrorsTotal("archive_failed")
		}
	}
}

// normalize fills job config gaps from the server defaults.
func (m *Manager) normalize(cfg domain.JobConfig) domain.JobConfig {
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = m.defaults.MaxScrolls
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = m.defaults.MaxWorkers
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = m.defaults.ScrapeTimeout
	}
	if cfg.Proxy == "" {
		cfg.Proxy = m.defaults.Proxy
	}
	return cfg
}
