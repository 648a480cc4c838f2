package match

import "strings"

// SkillExtractor derives the skills a posting asks for from its free text.
type SkillExtractor interface {
	Extract(text string) []string
}

// skillVocabulary is the fixed vocabulary matched against posting text.
// Terms are lowercase; matching is substring-based.
var skillVocabulary = []string{
	"javascript", "typescript", "python", "java", "golang", "rust", "c++", "c#",
	"ruby", "php", "kotlin", "swift", "scala",
	"react", "angular", "vue", "svelte", "node", "next.js", "django", "flask",
	"spring", "rails", ".net", "express",
	"sql", "postgresql", "mysql", "mongodb", "redis", "elasticsearch", "kafka",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "ansible",
	"git", "ci/cd", "jenkins", "linux",
	"graphql", "rest", "grpc", "html", "css", "sass",
	"machine learning", "deep learning", "data analysis", "nlp", "pandas",
	"agile", "scrum", "microservices", "devops",
}

// VocabularyExtractor matches posting text against the fixed skill vocabulary.
type VocabularyExtractor struct {
	vocab []string
}

func NewVocabularyExtractor() *VocabularyExtractor {
	return &VocabularyExtractor{vocab: skillVocabulary}
}

func (e *VocabularyExtractor) Extract(text string) []string {
	t := strings.ToLower(text)
	var out []string
	for _, skill := range e.vocab {
		if strings.Contains(t, skill) {
			out = append(out, skill)
		}
	}
	return out
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyContainsFold(haystack string, needles []string) bool {
	for _, n := range needles {
		if containsFold(haystack, n) {
			return true
		}
	}
	return false
}
