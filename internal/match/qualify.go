package match

import (
	"sort"
	"time"

	"jobpilot/internal/jobs"
)

// Qualify filters and ranks raw postings into the apply queue.
//
// Per-posting short-circuit order:
//  1. drop if the key is already in the applied set
//  2. drop if the company matches an excluded-company substring
//  3. drop if title or description matches an excluded keyword
//  4. score; drop below the match threshold
//
// The result is sorted descending by score; ties keep discovery order.
// Inputs are never mutated.
func (s *Scorer) Qualify(postings []jobs.Posting, prof jobs.Profile, prefs jobs.Preferences, applied map[string]struct{}, now time.Time) []jobs.Scored {
	out := make([]jobs.Scored, 0, len(postings))
	for _, p := range postings {
		if _, done := applied[p.Key]; done {
			continue
		}
		if anyContainsFold(p.Company, prefs.ExcludedCompanies) {
			continue
		}
		if anyContainsFold(p.Title, prefs.ExcludeKeywords) || anyContainsFold(p.Description, prefs.ExcludeKeywords) {
			continue
		}
		score := s.Score(p, prof, prefs)
		if score < prefs.MatchThreshold {
			continue
		}
		out = append(out, jobs.Scored{Posting: p, Score: score, DiscoveredAt: now})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
