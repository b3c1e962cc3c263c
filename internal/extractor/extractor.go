package extractor

import (
	"regexp"
	"sort"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?\d[\d\s\-\(\)]{8,}`)
	tagRegex   = regexp.MustCompile(`<[^>]+>`)
	digitRegex = regexp.MustCompile(`\D`)

	permanentlyClosedRegex = regexp.MustCompile(`(?i)\bPermanently closed\b`)
	temporarilyClosedRegex = regexp.MustCompile(`(?i)\bTemporar(?:il)?y closed\b`)

	socialRegexes = map[string]*regexp.Regexp{
		"Facebook":  regexp.MustCompile(`(?i)https?://(?:www\.)?facebook\.com/[^\s"'<>]+`),
		"Instagram": regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[^\s"'<>]+`),
		"Twitter":   regexp.MustCompile(`(?i)https?://(?:www\.)?(?:twitter|x)\.com/[^\s"'<>]+`),
		"LinkedIn":  regexp.MustCompile(`(?i)https?://(?:[a-z]{2,3}\.)?linkedin\.com/[^\s"'<>]+`),
	}

	// Obfuscated address forms seen in the wild, normalized before the
	// email regex runs.
	obfuscations = strings.NewReplacer(
		"[at]", "@", "(at)", "@", " at ", "@",
		"[dot]", ".", "(dot)", ".", " dot ", ".",
	)

	assetExtensions = []string{
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".pdf",
		".css", ".js", ".ico",
	}
)

// SocialPlatforms is the fixed set of platforms tracked per business.
var SocialPlatforms = []string{"Facebook", "Instagram", "Twitter", "LinkedIn"}

// Filters holds the email validity lists. These are heuristic and
// deployment-specific, so they arrive from configuration.
type Filters struct {
	BlockedDomains  []string
	BlockedKeywords []string
}

// Extractor finds contact signal candidates in raw page text.
type Extractor struct {
	filters Filters
}

func New(filters Filters) *Extractor {
	return &Extractor{filters: filters}
}

// FindEmails returns the sorted, deduplicated set of valid email
// candidates in html. Obfuscated forms are normalized first.
func (e *Extractor) FindEmails(html string) []string {
	if html == "" {
		return nil
	}
	html = obfuscations.Replace(strings.ToLower(html))

	seen := make(map[string]struct{})
	var valid []string
	for _, m := range emailRegex.FindAllString(html, -1) {
		m = strings.TrimSpace(m)
		if !e.validEmail(m) {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		valid = append(valid, m)
	}
	sort.Strings(valid)
	return valid
}

func (e *Extractor) validEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	for _, ext := range assetExtensions {
		if strings.Contains(email, ext) {
			return false
		}
	}
	parts := strings.SplitN(email, "@", 2)
	local, domain := parts[0], parts[1]
	if len(local) < 2 || len(domain) < 4 || !strings.Contains(domain, ".") {
		return false
	}
	for _, kw := range e.filters.BlockedKeywords {
		if strings.Contains(local, kw) {
			return false
		}
	}
	for _, d := range e.filters.BlockedDomains {
		if strings.Contains(domain, d) {
			return false
		}
	}
	return true
}

// FindPhones returns the deduplicated phone candidates in html. A
// candidate is kept only if it has at least ten digits once all
// non-digit characters are stripped.
func (e *Extractor) FindPhones(html string) []string {
	if html == "" {
		return nil
	}
	return PhoneCandidates(tagRegex.ReplaceAllString(html, " "))
}

// PhoneCandidates runs the phone pattern over plain text, keeping only
// candidates that pass the digit-count rule.
func PhoneCandidates(text string) []string {
	seen := make(map[string]struct{})
	var phones []string
	for _, m := range phoneRegex.FindAllString(text, -1) {
		m = strings.TrimSpace(m)
		if !ValidPhone(m) {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		phones = append(phones, m)
	}
	return phones
}

// ValidPhone reports whether a candidate string has enough digits to
// be a plausible phone number.
func ValidPhone(candidate string) bool {
	return len(digitRegex.ReplaceAllString(candidate, "")) >= 10
}

// FindSocials returns the first profile URL matched per platform, with
// query strings and trailing slashes removed. Platforms without a
// match map to the empty string.
func (e *Extractor) FindSocials(html string) map[string]string {
	socials := make(map[string]string, len(SocialPlatforms))
	for _, platform := range SocialPlatforms {
		socials[platform] = ""
		if m := socialRegexes[platform].FindString(html); m != "" {
			m = strings.SplitN(m, "?", 2)[0]
			socials[platform] = strings.TrimRight(m, "/")
		}
	}
	return socials
}

// ClosureStatus classifies a place page as open or closed from its
// visible text. Defaults to "Open" when no closure banner matches.
func ClosureStatus(html string) string {
	switch {
	case permanentlyClosedRegex.MatchString(html):
		return "Permanently Closed"
	case temporarilyClosedRegex.MatchString(html):
		return "Temporarily Closed"
	default:
		return "Open"
	}
}
