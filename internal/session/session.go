// Package session owns the lifecycle of scraping jobs: one state
// machine per session, a process-wide registry, and the background
// pipeline that runs a job from link collection through detail
// scraping.
package session

import (
	"fmt"
	"sync"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
)

// Session is one client's scraping slot. Created on first reference by
// identifier and reset in place at the start of each new job; never
// destroyed. All fields are guarded by mu.
type Session struct {
	id string

	mu             sync.Mutex
	gen            uint64
	phase          domain.Phase
	active         bool
	cancelled      bool
	message        string
	linkCount      int
	linkTotal      int
	scrapedCount   int
	totalToScrape  int
	linkProgress   float64
	detailProgress float64
	refs           []domain.Reference
	refSet         map[domain.Reference]struct{}
	results        []domain.BusinessRecord
}

func newSession(id string) *Session {
	return &Session{
		id:      id,
		phase:   domain.PhaseIdle,
		message: "Ready!",
		refSet:  make(map[domain.Reference]struct{}),
	}
}

// Snapshot returns a lock-consistent view of the session's status
// fields, excluding the result set. Safe to call concurrently with any
// transition; never waits on in-flight fetches.
func (s *Session) Snapshot() domain.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.StatusSnapshot{
		SessionID:      s.id,
		Phase:          s.phase,
		Active:         s.active,
		Message:        s.message,
		LinkCount:      s.linkCount,
		LinkTotal:      s.linkTotal,
		ScrapedCount:   s.scrapedCount,
		TotalToScrape:  s.totalToScrape,
		LinkProgress:   s.linkProgress,
		DetailProgress: s.detailProgress,
	}
}

// Results returns a copy of the current result set, possibly partial
// if the job was cancelled or is still running.
func (s *Session) Results() []domain.BusinessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BusinessRecord, len(s.results))
	copy(out, s.results)
	return out
}

// begin resets the session for a new job. Returns ErrJobAlreadyActive
// without touching state when a job is still marked active.
func (s *Session) begin() (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil, domain.ErrJobAlreadyActive
	}
	s.gen++
	s.active = true
	s.cancelled = false
	s.phase = domain.PhaseIdle
	s.message = "Starting..."
	s.linkCount = 0
	s.linkTotal = 0
	s.scrapedCount = 0
	s.totalToScrape = 0
	s.linkProgress = 0
	s.detailProgress = 0
	s.refs = nil
	s.refSet = make(map[domain.Reference]struct{})
	s.results = nil
	return &Job{s: s, gen: s.gen}, nil
}

// cancel sets the cooperative stop flag and immediately clears the
// active marker so a new job can be accepted while the old one unwinds.
func (s *Session) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active && s.phase == domain.PhaseIdle {
		return
	}
	s.cancelled = true
	s.active = false
	s.message = "Stopping..."
}

func (s *Session) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Job is a handle on one run of a session's pipeline. Mutations
// through a stale handle (superseded by a newer StartJob) are dropped,
// so an unwinding cancelled job cannot clobber its successor.
type Job struct {
	s   *Session
	gen uint64
}

func (j *Job) SessionID() string { return j.s.id }

// current reports whether this job is still the session's live
// generation. Callers must hold j.s.mu.
func (j *Job) current() bool { return j.s.gen == j.gen }

// Cancelled is the cooperative cancellation check point used by every
// stage loop.
func (j *Job) Cancelled() bool {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return j.s.cancelled || !j.current()
}

// SetPhase moves the job to a new phase with a status message.
func (j *Job) SetPhase(phase domain.Phase, message string) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if !j.current() {
		return
	}
	j.s.phase = phase
	j.s.message = message
}

// Finish records the job's outcome and releases the active slot.
// Terminal phases leave results retrievable; the session accepts a new
// job from any finished phase.
func (j *Job) Finish(outcome domain.Phase, message string) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if !j.current() {
		return
	}
	j.s.phase = outcome
	j.s.message = message
	j.s.active = false
	j.s.cancelled = false
}

// AddReference appends ref unless the exact triple was already
// discovered. Returns the running reference count and whether the
// reference was added.
func (j *Job) AddReference(ref domain.Reference) (int, bool) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if !j.current() {
		return len(j.s.refs), false
	}
	if _, dup := j.s.refSet[ref]; dup {
		return len(j.s.refs), false
	}
	j.s.refSet[ref] = struct{}{}
	j.s.refs = append(j.s.refs, ref)
	j.s.linkCount = len(j.s.refs)
	return len(j.s.refs), true
}

// LinkCount returns the running discovered-reference count.
func (j *Job) LinkCount() int {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	return len(j.s.refs)
}

// References returns a copy of the discovered list. The list is frozen
// once detail scraping begins.
func (j *Job) References() []domain.Reference {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	out := make([]domain.Reference, len(j.s.refs))
	copy(out, j.s.refs)
	return out
}

// PublishLinkProgress updates the link-collection status fields.
func (j *Job) PublishLinkProgress(message string, total int, progress float64) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if !j.current() {
		return
	}
	j.s.message = message
	j.s.linkTotal = total
	if j.s.linkCount > total {
		j.s.linkTotal = j.s.linkCount
	}
	j.s.linkProgress = clamp01(progress)
}

// BeginScraping freezes the link count and sets the scrape total.
func (j *Job) BeginScraping(total int, message string) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if !j.current() {
		return
	}
	j.s.phase = domain.PhaseScrapingDetails
	j.s.message = message
	j.s.totalToScrape = total
}

// AppendResult adds one finished record and updates the detail
// progress counters. The scraped count never exceeds the total.
func (j *Job) AppendResult(rec domain.BusinessRecord, progress float64) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if !j.current() {
		return
	}
	j.s.results = append(j.s.results, rec)
	if len(j.s.results) <= j.s.totalToScrape {
		j.s.scrapedCount = len(j.s.results)
	}
	j.s.detailProgress = clamp01(progress)
	j.s.message = scrapedMessage(j.s.scrapedCount, j.s.totalToScrape)
}

func scrapedMessage(scraped, total int) string {
	return fmt.Sprintf("Scraped %d/%d", scraped, total)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
