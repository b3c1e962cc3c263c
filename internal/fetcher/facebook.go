package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/browser"
	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/extractor"
)

// Facebook sub-pages that tend to surface contact details.
var facebookSubPages = []string{
	"/about",
	"/about_contact_and_basic_info",
	"/about_details",
	"/about_profile",
	"",
	"/posts",
	"/reviews",
}

// facebookSignals walks the profile's sub-pages, scrolling and
// expanding "show more" controls, and accumulates emails and phone
// numbers. Per-page failures are tolerated.
func (f *Fetcher) facebookSignals(ctx context.Context, profileURL string, opts browser.Options, timeout time.Duration) domain.SignalSet {
	emails := make(map[string]struct{})
	phones := make(map[string]struct{})
	base := strings.TrimRight(profileURL, "/")

	for _, sub := range facebookSubPages {
		html, err := f.renderer.Render(ctx, base+sub, opts, browser.RenderOptions{
			Scrolls:        10,
			ExpandControls: true,
			Timeout:        timeout,
		})
		if err != nil {
			f.logger.Debug("facebook sub-page skipped",
				zap.String("url", base+sub), zap.Error(err))
			continue
		}
		addAll(emails, f.extractor.FindEmails(html))
		addAll(phones, f.extractor.FindPhones(html))
		addAll(phones, facebookPhones(html))
	}

	out := domain.SignalSet{Socials: emptySocials()}
	for e := range emails {
		out.Emails = append(out.Emails, e)
	}
	for p := range phones {
		out.Phones = append(out.Phones, p)
	}
	return out
}

// facebookPhones applies the link-based and label-proximity phone
// heuristics: tel: anchors, and text adjacent to "Phone" labels.
func facebookPhones(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var phones []string
	add := func(candidate string) {
		for _, m := range extractor.PhoneCandidates(strings.TrimSpace(candidate)) {
			if _, dup := seen[m]; !dup {
				seen[m] = struct{}{}
				phones = append(phones, m)
			}
		}
	}

	doc.Find(`a[href^="tel:"]`).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			add(strings.TrimPrefix(href, "tel:"))
		}
	})

	doc.Find("div, span").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(s.Text(), "Phone") {
			return
		}
		// The number usually sits in a sibling node next to the label.
		s.NextAll().Each(func(_ int, sib *goquery.Selection) {
			add(sib.Text())
		})
	})

	return phones
}
