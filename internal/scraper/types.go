package scraper

import "time"

// Target is one configured company careers page to scrape.
type Target struct {
	Name string
	URL  string
}

// Candidate is an unfiltered, unpersisted extraction result. The heuristic
// extractor cannot recover location or description, so those carry explicit
// placeholder text until a site-specific extractor fills them in.
type Candidate struct {
	Company     string
	Title       string
	URL         string
	Location    string
	Description string
	PostedAt    *time.Time
}

// Placeholder values used for fields the baseline extractor cannot populate.
const (
	LocationUnknown        = "(Location Unknown)"
	DescriptionUnavailable = "(Description Unavailable)"
	NoTitleText            = "(No Title Text)"
)

// Posting is the sole persisted entity. URL is the identity key; ScrapedAt is
// stamped exactly once at insertion and immutable afterwards.
type Posting struct {
	ID          int64
	Company     string
	Title       string
	Location    string
	Description string
	URL         string
	PostedAt    *time.Time
	ScrapedAt   time.Time
	Notified    bool
	Applied     bool
	Ignored     bool
}

// FromCandidate builds an unpersisted Posting from an accepted candidate.
func FromCandidate(c Candidate) Posting {
	return Posting{
		Company:     c.Company,
		Title:       c.Title,
		Location:    c.Location,
		Description: c.Description,
		URL:         c.URL,
		PostedAt:    c.PostedAt,
	}
}

// StatusView selects which postings a dashboard-style read returns.
type StatusView string

const (
	// ViewActive returns postings neither applied to nor ignored.
	ViewActive StatusView = "active"
	// ViewApplied returns postings marked applied.
	ViewApplied StatusView = "applied"
	// ViewIgnored returns postings marked ignored.
	ViewIgnored StatusView = "ignored"
)

// RunSummary reports what a single pipeline run accomplished. Every "run
// pipeline now" invocation completes and produces one, regardless of how many
// targets failed along the way.
type RunSummary struct {
	RunID            string
	TargetsProcessed int
	TargetsFailed    int
	Candidates       int
	NewPostings      int
	AlertsSent       int
}
