package jobs

import (
	"strings"
	"time"
)

// Posting is one job listing as extracted by the page-content collaborator.
// Immutable once extracted; the key (job id or URL) is the dedup identity.
type Posting struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	JobType     string `json:"jobType"`
	SourceURL   string `json:"sourceUrl"`
}

// FallbackKey derives a dedup identity for postings the extractor could not
// key (no job id, no canonical URL).
func (p Posting) FallbackKey() string {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return norm(p.Company) + "|" + norm(p.Title) + "|" + norm(p.Location)
}

// Profile is the candidate profile applications are scored against.
// Read-only; supplied once per scan.
type Profile struct {
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"yearsExperience"`
}

// Preferences is the single source of truth for filtering and acceptance
// thresholds. Mutable by the user and persisted whole-object.
type Preferences struct {
	Enabled        bool `json:"enabled"`
	AutoApply      bool `json:"autoApply"`
	DailyLimit     int  `json:"dailyLimit"`
	MatchThreshold int  `json:"matchThreshold"`

	JobTypes         []string `json:"jobTypes,omitempty"`
	ExperienceLevels []string `json:"experienceLevels,omitempty"`
	Locations        []string `json:"locations,omitempty"`
	MinSalary        int      `json:"minSalary,omitempty"`
	RemoteOnly       bool     `json:"remoteOnly,omitempty"`

	ExcludedCompanies  []string `json:"excludedCompanies,omitempty"`
	PreferredCompanies []string `json:"preferredCompanies,omitempty"`
	IncludeKeywords    []string `json:"includeKeywords,omitempty"`
	ExcludeKeywords    []string `json:"excludeKeywords,omitempty"`
}

// Scored is a posting with its computed match score. Ephemeral: created per
// scan, discarded after the application attempt; only the posting key
// survives in the applied-jobs ledger.
type Scored struct {
	Posting      Posting
	Score        int
	DiscoveredAt time.Time
}
