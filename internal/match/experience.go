package match

import "strings"

// Level is a coarse seniority bucket for a posting.
type Level string

const (
	LevelEntry  Level = "entry"
	LevelMid    Level = "mid"
	LevelSenior Level = "senior"
	LevelLead   Level = "lead"
)

// LevelClassifier infers the required seniority from posting text.
type LevelClassifier interface {
	Classify(text string) Level
}

// yearsBand is the inclusive years-of-experience range mapped to a level.
//
// NOTE: the senior (5-10) and lead (7-20) bands overlap on purpose; an
// 8-years candidate matches both levels.
type yearsBand struct {
	min, max int
}

var levelBands = map[Level]yearsBand{
	LevelEntry:  {0, 2},
	LevelMid:    {2, 5},
	LevelSenior: {5, 10},
	LevelLead:   {7, 20},
}

// Matches reports whether the given years of experience fall inside the
// level's band.
func (l Level) Matches(years int) bool {
	b, ok := levelBands[l]
	if !ok {
		return false
	}
	return years >= b.min && years <= b.max
}

var levelKeywords = []struct {
	level Level
	words []string
}{
	{LevelLead, []string{"lead", "principal", "staff engineer", "head of", "director", "manager"}},
	{LevelSenior, []string{"senior", "sr.", "sr "}},
	{LevelEntry, []string{"junior", "jr.", "jr ", "entry", "intern", "graduate"}},
	{LevelMid, []string{"mid-level", "mid level", "intermediate"}},
}

// KeywordClassifier is the default substring heuristic.
// Unmatched text defaults to mid.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier { return &KeywordClassifier{} }

func (c *KeywordClassifier) Classify(text string) Level {
	t := strings.ToLower(text)
	for _, kw := range levelKeywords {
		for _, w := range kw.words {
			if strings.Contains(t, w) {
				return kw.level
			}
		}
	}
	return LevelMid
}
