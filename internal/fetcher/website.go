package fetcher

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/varmayadav12345678-cell/quicklead/internal/browser"
	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
)

// Conventional contact/about/team paths probed by the shallow pass.
var contactPagePaths = []string{
	"/contact", "/contact-us", "/contactus", "/contact_us",
	"/about", "/about-us", "/aboutus", "/about_us",
	"/team", "/our-team", "/staff",
	"/reach-us", "/get-in-touch", "/connect",
	"/support", "/help", "/info",
	"/email", "/reach", "/touch",
}

// Keywords that mark a same-site link as a likely contact page during
// the deep pass.
var contactKeywords = []string{
	"contact", "about", "team", "reach", "connect", "email", "support", "info",
}

const (
	deepPassMaxLinks   = 30
	deepPassEmailGoal  = 3
	shallowHomeTimeout = 5 * time.Second
	shallowPageTimeout = 3 * time.Second
)

// websiteSignals runs the shallow HTTP pass and the deep browser pass
// over the business website, merging both into one signal set. Every
// failure inside is tolerated; partial information beats none.
func (f *Fetcher) websiteSignals(ctx context.Context, siteURL string, opts browser.Options, timeout time.Duration) domain.SignalSet {
	emails := make(map[string]struct{})
	socials := emptySocials()

	// Shallow pass: home page plus conventional contact paths over
	// plain HTTP.
	if status, body, err := f.client.Get(ctx, siteURL, shallowHomeTimeout); err == nil && status == http.StatusOK {
		addAll(emails, f.extractor.FindEmails(body))
		mergeFirst(socials, f.extractor.FindSocials(body))
		for _, path := range contactPagePaths {
			pageURL, err := joinURL(siteURL, path)
			if err != nil {
				continue
			}
			if status, body, err := f.client.Get(ctx, pageURL, shallowPageTimeout); err == nil && status == http.StatusOK {
				addAll(emails, f.extractor.FindEmails(body))
			}
		}
	}

	// Deep pass: browser-rendered home page, then same-site links that
	// look like contact pages.
	home, err := f.renderer.Render(ctx, siteURL, opts, browser.RenderOptions{
		Scrolls: 5,
		Timeout: timeout,
	})
	if err != nil {
		f.logger.Debug("deep website pass skipped", zap.String("url", siteURL), zap.Error(err))
		return signalSet(emails, socials)
	}
	addAll(emails, f.extractor.FindEmails(home))
	mergeFirst(socials, f.extractor.FindSocials(home))

	for _, link := range contactLinks(home, siteURL) {
		if len(emails) >= deepPassEmailGoal {
			break
		}
		page, err := f.renderer.Render(ctx, link, opts, browser.RenderOptions{
			Scrolls: 3,
			Timeout: timeout,
		})
		if err != nil {
			continue
		}
		addAll(emails, f.extractor.FindEmails(page))
	}

	return signalSet(emails, socials)
}

// contactLinks returns up to deepPassMaxLinks same-site anchors whose
// URL or text matches a contact keyword.
func contactLinks(html, siteURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a").EachWithBreak(func(i int, a *goquery.Selection) bool {
		if i >= deepPassMaxLinks {
			return false
		}
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, siteURL) {
			return true
		}
		text := strings.ToLower(a.Text())
		lower := strings.ToLower(href)
		for _, kw := range contactKeywords {
			if strings.Contains(lower, kw) || strings.Contains(text, kw) {
				if _, dup := seen[href]; !dup {
					seen[href] = struct{}{}
					links = append(links, href)
				}
				break
			}
		}
		return true
	})
	return links
}

func joinURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return u.ResolveReference(rel).String(), nil
}

func emptySocials() map[string]string {
	return map[string]string{}
}

// mergeFirst copies entries from src into dst, first non-empty match
// per platform wins.
func mergeFirst(dst, src map[string]string) {
	for platform, profile := range src {
		if profile != "" && dst[platform] == "" {
			dst[platform] = profile
		}
	}
}

func addAll(set map[string]struct{}, values []string) {
	for _, v := range values {
		set[v] = struct{}{}
	}
}

func signalSet(emails map[string]struct{}, socials map[string]string) domain.SignalSet {
	out := domain.SignalSet{Socials: socials}
	for e := range emails {
		out.Emails = append(out.Emails, e)
	}
	return out
}
