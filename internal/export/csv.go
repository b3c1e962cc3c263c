// Package export serializes result sets for download.
package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
)

var csvHeader = []string{
	"Search Query", "Location", "Name", "Address", "City", "State",
	"Category", "Price Range", "Rating", "Reviews Count", "Opening Hours",
	"Closure Status", "Phone", "All Phones", "Website", "Facebook",
	"Instagram", "Twitter", "LinkedIn", "Google Maps Email",
	"All Website Emails", "Website Email", "Facebook Email", "Final Email",
	"Source", "Maps URL", "Place ID", "Status",
}

// WriteCSV renders the record set as CSV with a fixed column layout.
func WriteCSV(w io.Writer, records []domain.BusinessRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Query, r.Location, r.Name, r.Address, r.City, r.State,
			r.Category, r.PriceRange, r.Rating, r.ReviewCount,
			r.OpeningHours, r.ClosureStatus, r.Phone,
			strings.Join(r.Contact.Phones, ", "), r.Website,
			r.Contact.Socials["Facebook"], r.Contact.Socials["Instagram"],
			r.Contact.Socials["Twitter"], r.Contact.Socials["LinkedIn"],
			r.Contact.MapsEmail, strings.Join(r.Contact.AllWebsite, ", "),
			r.Contact.WebsiteEmail, r.Contact.FacebookEmail,
			r.Contact.FinalEmail, r.Contact.Source, r.MapsURL, r.PlaceID,
			r.Status,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
