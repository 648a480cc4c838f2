package page

import "testing"

func TestSupportedSource(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		url  string
		want bool
	}{
		{"linkedin jobs", "https://www.linkedin.com/jobs/search/?keywords=go", true},
		{"indeed", "https://indeed.com/viewjob?jk=abc", true},
		{"glassdoor subdomain", "https://de.glassdoor.com/Job/index.htm", true},
		{"ziprecruiter", "https://www.ziprecruiter.com/jobs-search", true},
		{"monster", "https://www.monster.com/jobs", true},
		{"wellfound", "https://wellfound.com/jobs", true},
		{"unknown board", "https://jobs.example.com/listings", false},
		{"lookalike host", "https://notlinkedin.com/jobs", false},
		{"embedded host in path", "https://evil.test/linkedin.com", false},
		{"empty", "", false},
		{"garbage", "::::not a url", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := SupportedSource(tc.url); got != tc.want {
				t.Fatalf("SupportedSource(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}
