// Package collector implements the link collection stage: it walks the
// query space and accumulates deduplicated business references on the
// session.
package collector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/browser"
	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/monitoring"
	"github.com/varmayadav12345678-cell/quicklead/internal/session"
)

// SearchPager issues one map search and incrementally reveals results.
// visit receives the currently visible result links after each scroll
// step and returns false to stop early.
type SearchPager interface {
	Search(ctx context.Context, query string, maxScrolls int, opts browser.Options, visit func(links []string) bool) error
}

// Query is one cell of the search space.
type Query struct {
	Text     string
	Location string
}

// BuildQueries expands the job config into its query space: the
// Cartesian product of categories and locations, outer loop over
// categories, each joined with the general phrase in phrase-category-
// location token order.
func BuildQueries(cfg domain.JobConfig) []Query {
	queries := make([]Query, 0, len(cfg.Categories)*len(cfg.Locations))
	for _, cat := range cfg.Categories {
		for _, loc := range cfg.Locations {
			parts := make([]string, 0, 3)
			for _, p := range []string{cfg.SearchTerm, cat, loc} {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			queries = append(queries, Query{Text: strings.Join(parts, " "), Location: loc})
		}
	}
	return queries
}

// Collector drives the search pager over the query space.
type Collector struct {
	pager   SearchPager
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func New(pager SearchPager, m *monitoring.Metrics, l *zap.Logger) *Collector {
	return &Collector{pager: pager, metrics: m, logger: l}
}

// Collect runs every query in order, appending newly revealed
// references to the session. A failed query contributes zero
// references and never aborts the stage. Cancellation is checked at
// the start of each query and at each scroll step.
func (c *Collector) Collect(ctx context.Context, job *session.Job, cfg domain.JobConfig) error {
	queries := BuildQueries(cfg)
	opts := browser.Options{Headless: cfg.Headless, Proxy: cfg.Proxy}

	for i, q := range queries {
		if job.Cancelled() {
			return nil
		}

		err := c.pager.Search(ctx, q.Text, cfg.MaxScrolls, opts, func(links []string) bool {
			if job.Cancelled() {
				return false
			}
			added := 0
			for _, link := range links {
				ref := domain.Reference{URL: link, Query: q.Text, Location: q.Location}
				if _, ok := job.AddReference(ref); ok {
					added++
				}
			}
			if added > 0 {
				c.metrics.AddLinksCollected(added)
			}
			count := job.LinkCount()
			job.PublishLinkProgress(
				fmt.Sprintf("Query %d/%d: Found %d links", i+1, len(queries), count),
				count,
				float64(i+1)/float64(len(queries)),
			)
			return true
		})
		if err != nil {
			// Not fatal to the stage: zero references from this query.
			c.logger.Warn("query failed",
				zap.String("query", q.Text), zap.Error(err))
			c.metrics.IncErrorsTotal("query_failed")
		}

		count := job.LinkCount()
		job.PublishLinkProgress(
			fmt.Sprintf("Query %d/%d: Found %d links", i+1, len(queries), count),
			count,
			float64(i+1)/float64(len(queries)),
		)
	}
	return nil
}
