package fetcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
	"github.com/varmayadav12345678-cell/quicklead/internal/extractor"
)

var (
	placeIDRegex = regexp.MustCompile(`ChIJ[a-zA-Z0-9_-]+`)
	ratingRegex  = regexp.MustCompile(`\d[.,]\d+`)
	reviewsRegex = regexp.MustCompile(`\((\d{1,3}(?:[.,]\d{3})*)\)`)
	sepRegex     = regexp.MustCompile(`[.,]`)
)

// placeIdentity holds the identity fields read off a rendered place
// page before contact resolution.
type placeIdentity struct {
	Name          string
	Address       string
	Phone         string
	Website       string
	Category      string
	PriceRange    string
	Rating        string
	ReviewCount   string
	OpeningHours  string
	ClosureStatus string
}

// parsePlace extracts identity fields from the rendered place page.
func parsePlace(html string) (placeIdentity, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return placeIdentity{}, fmt.Errorf("place page: %v: %w", err, domain.ErrParseFailure)
	}

	id := placeIdentity{
		Name:          strings.TrimSpace(doc.Find("h1.DUwDvf, h1.lfPIob").First().Text()),
		Address:       strings.TrimSpace(doc.Find(`button[data-item-id="address"]`).First().Text()),
		Phone:         strings.TrimSpace(doc.Find(`button[data-item-id^="phone"]`).First().Text()),
		Category:      strings.TrimSpace(doc.Find(`button[jsaction*="category"]`).First().Text()),
		ClosureStatus: extractor.ClosureStatus(html),
	}

	if href, ok := doc.Find(`a[data-item-id="authority"]`).First().Attr("href"); ok {
		id.Website = href
	}
	if label, ok := doc.Find(`[aria-label^="Price:"]`).First().Attr("aria-label"); ok {
		id.PriceRange = strings.TrimSpace(strings.TrimPrefix(label, "Price:"))
	}

	if widget := strings.TrimSpace(doc.Find("div.F7nice").First().Text()); widget != "" {
		id.Rating = ratingRegex.FindString(widget)
		if m := reviewsRegex.FindStringSubmatch(widget); m != nil {
			id.ReviewCount = sepRegex.ReplaceAllString(m[1], "")
		}
	}

	var rows []string
	doc.Find("table.eK4R0e tr").Each(func(_ int, tr *goquery.Selection) {
		fields := strings.Fields(tr.Text())
		if len(fields) > 0 {
			rows = append(rows, strings.Join(fields, " "))
		}
	})
	id.OpeningHours = strings.Join(rows, "; ")

	return id, nil
}

// placeID pulls the source-system identifier out of a maps URL.
func placeID(mapsURL string) string {
	return placeIDRegex.FindString(mapsURL)
}
