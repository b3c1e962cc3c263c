package fetcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/varmayadav12345678-cell/quicklead/internal/domain"
)

// AddressParser derives structured fields from a postal address
// string. Best-effort; callers fall back to a positional split.
type AddressParser interface {
	Tag(address string) (city, state string, err error)
}

// usAddressParser matches the common "..., City, ST 12345" tail of a
// US postal address.
type usAddressParser struct{}

var usTailRegex = regexp.MustCompile(`,\s*([A-Za-z .'\-]+),\s*([A-Z]{2})\s+\d{5}(?:-\d{4})?\s*$`)

func NewAddressParser() AddressParser {
	return usAddressParser{}
}

func (usAddressParser) Tag(address string) (string, string, error) {
	m := usTailRegex.FindStringSubmatch(address)
	if m == nil {
		return "", "", fmt.Errorf("address %q: %w", address, domain.ErrParseFailure)
	}
	return strings.TrimSpace(m[1]), m[2], nil
}

// cityState resolves city and state from an address, falling back to a
// positional split of the comma-separated form when structured parsing
// fails: third-from-last segment is the city, the second-from-last
// segment's first token is the state.
func cityState(parser AddressParser, address string) (string, string) {
	if address == "" {
		return "", ""
	}
	if city, state, err := parser.Tag(address); err == nil {
		return city, state
	}
	parts := strings.Split(address, ", ")
	if len(parts) < 3 {
		return "", ""
	}
	city := parts[len(parts)-3]
	state := ""
	if tokens := strings.Fields(parts[len(parts)-2]); len(tokens) > 1 {
		state = tokens[0]
	}
	return city, state
}
