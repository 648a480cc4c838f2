package match

import (
	"math"
	"strings"

	"jobpilot/internal/jobs"
)

// Weights sum to 100; the final score is rounded and clamped after summation.
const (
	weightSkills     = 40
	weightExperience = 20
	weightLocation   = 15
	weightJobType    = 10
	weightCompany    = 15
)

// Scorer computes match scores. Safe for concurrent use; all methods are
// pure functions over their inputs.
type Scorer struct {
	skills SkillExtractor
	levels LevelClassifier
}

// NewScorer returns a Scorer with the default heuristic strategies.
func NewScorer() *Scorer {
	return &Scorer{
		skills: NewVocabularyExtractor(),
		levels: NewKeywordClassifier(),
	}
}

// NewScorerWith lets callers swap the classification strategies.
func NewScorerWith(skills SkillExtractor, levels LevelClassifier) *Scorer {
	s := NewScorer()
	if skills != nil {
		s.skills = skills
	}
	if levels != nil {
		s.levels = levels
	}
	return s
}

// Score computes the 0-100 match score for a posting against the candidate
// profile and preferences. Deterministic, no side effects, no I/O.
func (s *Scorer) Score(p jobs.Posting, prof jobs.Profile, prefs jobs.Preferences) int {
	text := p.Title + " " + p.Description

	sum := s.skillPoints(text, prof)
	sum += s.experiencePoints(text, prof)
	sum += locationPoints(p, prefs)
	sum += jobTypePoints(p, prefs)
	sum += companyPoints(p, prefs)

	score := int(math.Round(sum))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// skillPoints awards up to 40 points by overlap ratio between the skills the
// posting mentions and the profile's skills.
func (s *Scorer) skillPoints(text string, prof jobs.Profile) float64 {
	wanted := s.skills.Extract(text)
	if len(wanted) == 0 {
		return 0
	}

	have := make(map[string]struct{}, len(prof.Skills))
	for _, sk := range prof.Skills {
		have[strings.ToLower(strings.TrimSpace(sk))] = struct{}{}
	}

	matched := 0
	for _, w := range wanted {
		if _, ok := have[w]; ok {
			matched++
		}
	}

	ratio := float64(matched) / float64(len(wanted))
	return ratio * weightSkills
}

// experiencePoints awards 20 points when the profile's years of experience
// fall within the band of the posting's inferred level.
func (s *Scorer) experiencePoints(text string, prof jobs.Profile) float64 {
	level := s.levels.Classify(text)
	if level.Matches(prof.YearsExperience) {
		return weightExperience
	}
	return 0
}

func locationPoints(p jobs.Posting, prefs jobs.Preferences) float64 {
	if prefs.RemoteOnly && containsFold(p.Location, "remote") {
		return weightLocation
	}
	if len(prefs.Locations) == 0 || anyContainsFold(p.Location, prefs.Locations) {
		return weightLocation
	}
	return 0
}

func jobTypePoints(p jobs.Posting, prefs jobs.Preferences) float64 {
	if anyContainsFold(p.JobType, prefs.JobTypes) {
		return weightJobType
	}
	return 0
}

func companyPoints(p jobs.Posting, prefs jobs.Preferences) float64 {
	if anyContainsFold(p.Company, prefs.PreferredCompanies) {
		return weightCompany
	}
	return 0
}
