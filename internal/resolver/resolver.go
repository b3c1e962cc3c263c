// Package resolver consolidates per-source contact signals into one
// canonical bundle per business.
package resolver

import (
	"net/url"
	"sort"
	"strings"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/extractor"
)

// Source tags recorded on a resolved bundle.
const (
	SourceFacebook = "Facebook"
	SourceWebsite  = "Website"
	SourceMaps     = "Maps"
)

// Resolver applies the fixed priority policy over raw signal sets.
// GenericDomains lists consumer-mail providers demoted by the
// best-email rule; it comes from configuration.
type Resolver struct {
	genericDomains []string
}

func New(genericDomains []string) *Resolver {
	return &Resolver{genericDomains: genericDomains}
}

// Resolve merges the maps, website and facebook signal sets into one
// ContactBundle. mapsPhone is the phone read directly off the place
// page, empty if absent. Pure and deterministic: the outcome depends
// only on set membership, never on input order.
func (r *Resolver) Resolve(maps, website, facebook domain.SignalSet, websiteURL, mapsPhone string) domain.ContactBundle {
	bundle := domain.ContactBundle{
		MapsEmail:     r.bestEmail(maps.Emails),
		WebsiteEmail:  r.domainMatchedEmail(website.Emails, websiteURL),
		FacebookEmail: r.bestEmail(facebook.Emails),
		AllWebsite:    sortedCopy(website.Emails),
		Phones:        mergePhones(mapsPhone, facebook.Phones),
		Socials:       mergeSocials(maps.Socials, website.Socials, facebook.Socials),
	}

	// Priority waterfall: first non-empty candidate wins. Ordered
	// list, not nested conditionals; this rule gets adjusted often.
	candidates := []struct {
		source string
		email  string
	}{
		{SourceFacebook, bundle.FacebookEmail},
		{SourceWebsite, bundle.WebsiteEmail},
		{SourceMaps, bundle.MapsEmail},
	}
	for _, c := range candidates {
		if c.email != "" {
			bundle.FinalEmail = c.email
			bundle.Source = c.source
			break
		}
	}
	return bundle
}

// bestEmail prefers an email whose domain is not a generic consumer
// provider, falling back to any email in the set. Ties break lexically
// so resolution is order-independent.
func (r *Resolver) bestEmail(emails []string) string {
	if len(emails) == 0 {
		return ""
	}
	sorted := sortedCopy(emails)
	for _, e := range sorted {
		if !r.isGeneric(e) {
			return e
		}
	}
	return sorted[0]
}

// domainMatchedEmail prefers an email on the website's own domain,
// falling back to the generic best-email rule.
func (r *Resolver) domainMatchedEmail(emails []string, websiteURL string) string {
	if len(emails) == 0 {
		return ""
	}
	if host := hostOf(websiteURL); host != "" {
		for _, e := range sortedCopy(emails) {
			if strings.Contains(e, host) {
				return e
			}
		}
	}
	return r.bestEmail(emails)
}

func (r *Resolver) isGeneric(email string) bool {
	for _, d := range r.genericDomains {
		if strings.Contains(email, d) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// mergePhones unions the directly-observed maps phone with the
// facebook-derived numbers, dropping candidates with fewer than ten
// digits, deduplicated and sorted.
func mergePhones(mapsPhone string, facebookPhones []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" || !extractor.ValidPhone(p) {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	add(mapsPhone)
	for _, p := range facebookPhones {
		add(p)
	}
	sort.Strings(out)
	return out
}

// mergeSocials unions the per-source social maps. First non-empty
// match per platform wins; later sources never override.
func mergeSocials(sources ...map[string]string) map[string]string {
	merged := make(map[string]string, len(extractor.SocialPlatforms))
	for _, platform := range extractor.SocialPlatforms {
		merged[platform] = ""
	}
	for _, src := range sources {
		for platform, profile := range src {
			if profile != "" && merged[platform] == "" {
				merged[platform] = profile
			}
		}
	}
	return merged
}

func sortedCopy(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out
}
