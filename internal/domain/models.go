package domain

import "time"

// Phase is the lifecycle state of a session's scraping job.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseCollectingLinks Phase = "collecting_links"
	PhaseScrapingDetails Phase = "scraping_details"
	PhaseComplete        Phase = "complete"
	PhaseFailed          Phase = "failed"
)

// JobConfig is the payload accepted by the start endpoint.
type JobConfig struct {
	SearchTerm    string   `json:"general_search_term"`
	Categories    []string `json:"categories"`
	Locations     []string `json:"locations"`
	MaxScrolls    int      `json:"max_scrolls"`
	MaxWorkers    int      `json:"max_workers"`
	ScrapeTimeout int      `json:"scrape_timeout"` // seconds
	Headless      bool     `json:"headless_mode"`
	Proxy         string   `json:"proxy"`
}

// Reference identifies one discovered business candidate. Sessions
// deduplicate references by exact triple equality.
type Reference struct {
	URL      string `json:"url"`
	Query    string `json:"query"`
	Location string `json:"location"`
}

// SignalSet holds the raw contact signals extracted from one source
// (maps page, website, facebook page) before resolution.
type SignalSet struct {
	Emails  []string
	Phones  []string
	Socials map[string]string
}

// ContactBundle is the resolved contact information for one business.
type ContactBundle struct {
	MapsEmail     string            `json:"maps_email"`
	WebsiteEmail  string            `json:"website_email"`
	FacebookEmail string            `json:"facebook_email"`
	AllWebsite    []string          `json:"all_website_emails"`
	FinalEmail    string            `json:"final_email"`
	Source        string            `json:"email_source"`
	Phones        []string          `json:"phones"`
	Socials       map[string]string `json:"socials"`
}

// StatusScraped marks a successfully fetched record. Failed fetches
// carry "ERROR: <reason>" instead.
const StatusScraped = "SCRAPED"

// BusinessRecord is one unit of scraping output. Immutable once
// appended to a session's result set.
type BusinessRecord struct {
	Query         string        `json:"search_query"`
	Location      string        `json:"location"`
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	City          string        `json:"city"`
	State         string        `json:"state"`
	Category      string        `json:"category"`
	PriceRange    string        `json:"price_range"`
	Rating        string        `json:"rating"`
	ReviewCount   string        `json:"review_count"`
	OpeningHours  string        `json:"opening_hours"`
	ClosureStatus string        `json:"closure_status"`
	Phone         string        `json:"phone"`
	Website       string        `json:"website"`
	MapsURL       string        `json:"maps_url"`
	PlaceID       string        `json:"place_id"`
	Contact       ContactBundle `json:"contact"`
	Status        string        `json:"status"`
	ScrapedAt     time.Time     `json:"scraped_at"`
}

// StatusSnapshot is the lock-consistent view of a session returned by
// the status endpoint. It never includes the result set.
type StatusSnapshot struct {
	SessionID      string  `json:"session_id"`
	Phase          Phase   `json:"phase"`
	Active         bool    `json:"scraping_active"`
	Message        string  `json:"status_message"`
	LinkCount      int     `json:"link_count"`
	LinkTotal      int     `json:"link_total"`
	ScrapedCount   int     `json:"scraped_count"`
	TotalToScrape  int     `json:"total_to_scrape"`
	LinkProgress   float64 `json:"link_collection_progress"`
	DetailProgress float64 `json:"detail_scraping_progress"`
}
