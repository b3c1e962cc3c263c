// Package fetcher turns one discovered reference into one fully
// enriched business record, gathering contact signals from the place
// page, the business website, and its Facebook profile.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/browser"
	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/extractor"
	"github.com/varmayadav12345678-cell/quicklead/internal/resolver"
)

const placeHeadingSelector = "h1.DUwDvf, h1.lfPIob"

// Renderer is the browser-driven page fetching collaborator.
type Renderer interface {
	Render(ctx context.Context, url string, opts browser.Options, ropts browser.RenderOptions) (string, error)
}

// Fetcher produces one BusinessRecord per reference. Failures degrade
// to an error record; they never propagate to the pool.
type Fetcher struct {
	renderer  Renderer
	client    HTTPClient
	parser    AddressParser
	extractor *extractor.Extractor
	resolver  *resolver.Resolver
	logger    *zap.Logger
}

func New(r Renderer, c HTTPClient, p AddressParser, e *extractor.Extractor, res *resolver.Resolver, l *zap.Logger) *Fetcher {
	return &Fetcher{
		renderer:  r,
		client:    c,
		parser:    p,
		extractor: e,
		resolver:  res,
		logger:    l,
	}
}

// Fetch loads the reference's detail page and assembles the enriched
// record. A failed or timed-out page load yields an error record;
// every later step prefers partial information over total failure.
func (f *Fetcher) Fetch(ctx context.Context, ref domain.Reference, cfg domain.JobConfig) domain.BusinessRecord {
	opts := browser.Options{Headless: cfg.Headless, Proxy: cfg.Proxy}
	timeout := time.Duration(cfg.ScrapeTimeout) * time.Second

	html, err := f.renderer.Render(ctx, ref.URL, opts, browser.RenderOptions{
		WaitSelector: placeHeadingSelector,
		Scrolls:      3,
		Timeout:      timeout,
	})
	if err != nil {
		f.logger.Warn("place page load failed",
			zap.String("url", ref.URL), zap.Error(err))
		return errorRecord(ref, err)
	}

	identity, err := parsePlace(html)
	if err != nil {
		return errorRecord(ref, err)
	}

	city, state := cityState(f.parser, identity.Address)

	mapsSignals := domain.SignalSet{
		Emails:  f.extractor.FindEmails(html),
		Socials: f.extractor.FindSocials(html),
	}

	var websiteSignals domain.SignalSet
	websiteSignals.Socials = emptySocials()
	if identity.Website != "" {
		websiteSignals = f.websiteSignals(ctx, identity.Website, opts, timeout)
	}

	facebookURL := websiteSignals.Socials["Facebook"]
	if facebookURL == "" {
		facebookURL = mapsSignals.Socials["Facebook"]
	}
	var facebookSignals domain.SignalSet
	facebookSignals.Socials = emptySocials()
	if facebookURL != "" {
		facebookSignals = f.facebookSignals(ctx, facebookURL, opts, timeout)
	}

	contact := f.resolver.Resolve(mapsSignals, websiteSignals, facebookSignals, identity.Website, identity.Phone)

	f.logger.Info("business scraped",
		zap.String("name", identity.Name),
		zap.String("final_email", contact.FinalEmail),
		zap.String("source", contact.Source))

	return domain.BusinessRecord{
		Query:         ref.Query,
		Location:      ref.Location,
		Name:          identity.Name,
		Address:       identity.Address,
		City:          city,
		State:         state,
		Category:      identity.Category,
		PriceRange:    identity.PriceRange,
		Rating:        identity.Rating,
		ReviewCount:   identity.ReviewCount,
		OpeningHours:  identity.OpeningHours,
		ClosureStatus: identity.ClosureStatus,
		Phone:         identity.Phone,
		Website:       identity.Website,
		MapsURL:       ref.URL,
		PlaceID:       placeID(ref.URL),
		Contact:       contact,
		Status:        domain.StatusScraped,
		ScrapedAt:     time.Now().UTC(),
	}
}

// errorRecord degrades a failed unit to a record retained in the
// result set.
func errorRecord(ref domain.Reference, err error) domain.BusinessRecord {
	msg := err.Error()
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return domain.BusinessRecord{
		Query:     ref.Query,
		Location:  ref.Location,
		MapsURL:   ref.URL,
		Status:    fmt.Sprintf("ERROR: %s", msg),
		ScrapedAt: time.Now().UTC(),
	}
}
