package autopilot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"jobpilot/internal/channel"
	"jobpilot/internal/jobs"
	"jobpilot/internal/match"
	"jobpilot/internal/page"
	"jobpilot/internal/quota"
	kit "jobpilot/internal/transport"
	logx "jobpilot/pkg/logx"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type fakePage struct {
	mu       sync.Mutex
	url      string
	postings []jobs.Posting
	extracts int
	applied  []string
	applyErr map[string]error // per-key failure injection
	onApply  func(key string)
}

func (f *fakePage) CurrentURL(context.Context) (string, error) {
	return f.url, nil
}

func (f *fakePage) ExtractAllJobs(context.Context) ([]jobs.Posting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracts++
	return append([]jobs.Posting(nil), f.postings...), nil
}

func (f *fakePage) ApplyToJob(_ context.Context, p jobs.Posting) (page.ApplyResult, error) {
	f.mu.Lock()
	hook := f.onApply
	err := f.applyErr[p.Key]
	f.mu.Unlock()
	if hook != nil {
		hook(p.Key)
	}
	if err != nil {
		return page.ApplyResult{}, err
	}
	f.mu.Lock()
	f.applied = append(f.applied, p.Key)
	f.mu.Unlock()
	return page.ApplyResult{Success: true}, nil
}

func (f *fakePage) appliedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeNotifier) Notify(_ context.Context, n kit.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, n.Text)
	return nil
}

func (f *fakeNotifier) has(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.texts {
		if strings.Contains(t, substr) {
			return true
		}
	}
	return false
}

// posting builds a full-match-ish posting; descriptions mentioning "golang"
// score the skill points against the test profile.
func posting(key, title, desc, jobType string) jobs.Posting {
	return jobs.Posting{
		Key:         key,
		Title:       title,
		Company:     key + " Inc",
		Location:    "Berlin",
		Description: desc,
		JobType:     jobType,
		SourceURL:   "https://www.linkedin.com/jobs/view/" + key,
	}
}

func testPrefs() jobs.Preferences {
	return jobs.Preferences{
		Enabled:        true,
		AutoApply:      true,
		DailyLimit:     2,
		MatchThreshold: 60,
		JobTypes:       []string{"full-time"},
	}
}

func testProfile() jobs.Profile {
	return jobs.Profile{Skills: []string{"golang"}, YearsExperience: 3}
}

func newTestService(t *testing.T, pg *fakePage, prefs jobs.Preferences) (*Service, *fakeClock, *fakeNotifier, *quota.Tracker) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	qt := quota.New(nil, logx.Nop(), clock.Now)
	nt := &fakeNotifier{}
	s := New(Config{}, Deps{
		Quota:    qt,
		Page:     pg,
		Scorer:   match.NewScorer(),
		Notifier: nt,
		Log:      logx.Nop(),
		Clock:    clock,
	})
	if err := s.restore(context.Background(), testProfile(), prefs); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return s, clock, nt, qt
}

func TestCycleAppliesBestFirstUntilQuota(t *testing.T) {
	t.Parallel()

	// Scores against the test profile: skill match is 40, mid-level band 20,
	// open location 15, job-type 10. A and D land at 75, B at 35, C at 85.
	pg := &fakePage{
		url: "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{
			posting("job-a", "Engineer", "golang services", ""),
			posting("job-b", "Engineer", "java services", ""),
			posting("job-c", "Engineer", "golang services", "Full-time"),
			posting("job-d", "Engineer", "golang platform", ""),
		},
	}
	s, _, nt, qt := newTestService(t, pg, testPrefs())

	s.cycle(context.Background())

	// Highest score first; the daily limit of 2 stops the run before D.
	want := []string{"job-c", "job-a"}
	got := pg.appliedKeys()
	if len(got) != len(want) {
		t.Fatalf("applied = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("applied = %v, want %v", got, want)
		}
	}
	if st := s.State(); st != StatePaused {
		t.Fatalf("state = %q, want paused after quota exhaustion", st)
	}
	if qt.Count() != 2 {
		t.Fatalf("quota count = %d, want 2", qt.Count())
	}
	if !nt.has("Daily application limit reached") {
		t.Fatalf("missing quota notification; got %v", nt.texts)
	}
	if !nt.has("Applied: Engineer at job-c Inc") {
		t.Fatalf("missing per-job notification; got %v", nt.texts)
	}
}

func TestCycleSkipsAlreadyApplied(t *testing.T) {
	t.Parallel()

	pg := &fakePage{
		url: "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{
			posting("seen", "Engineer", "golang", "Full-time"),
			posting("new", "Engineer", "golang", "Full-time"),
		},
	}
	s, _, _, _ := newTestService(t, pg, testPrefs())
	s.applied["seen"] = struct{}{}

	s.cycle(context.Background())

	got := pg.appliedKeys()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("applied = %v, want only the unseen posting", got)
	}
}

func TestCycleReportOnlyWhenAutoApplyOff(t *testing.T) {
	t.Parallel()

	pg := &fakePage{
		url:      "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{posting("job-a", "Engineer", "golang", "Full-time")},
	}
	prefs := testPrefs()
	prefs.AutoApply = false
	s, _, nt, _ := newTestService(t, pg, prefs)

	s.cycle(context.Background())

	if got := pg.appliedKeys(); len(got) != 0 {
		t.Fatalf("applied = %v, want none in report-only mode", got)
	}
	if !nt.has("auto-apply is off") {
		t.Fatalf("missing report notification; got %v", nt.texts)
	}
	if st := s.State(); st != StateScanning {
		t.Fatalf("state = %q, want scanning", st)
	}
}

func TestCycleIgnoresUnsupportedBoard(t *testing.T) {
	t.Parallel()

	pg := &fakePage{url: "https://jobs.example.com/listings"}
	s, _, _, _ := newTestService(t, pg, testPrefs())

	s.cycle(context.Background())

	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.extracts != 0 {
		t.Fatalf("extracts = %d, want 0 on an unsupported board", pg.extracts)
	}
}

func TestToggleOffMidRunStopsQueue(t *testing.T) {
	t.Parallel()

	var s *Service
	pg := &fakePage{
		url: "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{
			posting("job-1", "Engineer", "golang", "Full-time"),
			posting("job-2", "Engineer", "golang", "Full-time"),
			posting("job-3", "Engineer", "golang", "Full-time"),
		},
	}
	prefs := testPrefs()
	prefs.DailyLimit = 10
	s, _, nt, _ := newTestService(t, pg, prefs)
	pg.onApply = func(string) { s.Toggle(context.Background(), false) }

	s.cycle(context.Background())

	if got := pg.appliedKeys(); len(got) != 1 {
		t.Fatalf("applied = %v, want the run to stop after the toggle", got)
	}
	if st := s.State(); st != StateInactive {
		t.Fatalf("state = %q, want inactive", st)
	}
	if !nt.has("Autopilot stopped") {
		t.Fatalf("missing stop notification; got %v", nt.texts)
	}
}

func TestChannelDownAbortsRun(t *testing.T) {
	t.Parallel()

	pg := &fakePage{
		url: "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{
			posting("job-1", "Engineer", "golang", "Full-time"),
			posting("job-2", "Engineer", "golang", "Full-time"),
		},
		applyErr: map[string]error{
			"job-1": fmt.Errorf("send applyToJob: %w", channel.ErrContextInvalidated),
			"job-2": fmt.Errorf("send applyToJob: %w", channel.ErrContextInvalidated),
		},
	}
	prefs := testPrefs()
	prefs.DailyLimit = 10
	s, _, _, qt := newTestService(t, pg, prefs)

	s.cycle(context.Background())

	if qt.Count() != 0 {
		t.Fatalf("quota count = %d, want 0 for failed applications", qt.Count())
	}
	if st := s.State(); st != StateScanning {
		t.Fatalf("state = %q, want scanning after channel loss", st)
	}
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if len(pg.applied) != 0 {
		t.Fatalf("applied = %v, want none", pg.applied)
	}
}

func TestApplyFailureConsumesNoQuota(t *testing.T) {
	t.Parallel()

	pg := &fakePage{
		url: "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{
			posting("flaky", "Engineer", "golang", "Full-time"),
			posting("solid", "Engineer", "golang", ""),
		},
		applyErr: map[string]error{"flaky": fmt.Errorf("form step failed")},
	}
	s, _, _, qt := newTestService(t, pg, testPrefs())

	s.cycle(context.Background())

	got := pg.appliedKeys()
	if len(got) != 1 || got[0] != "solid" {
		t.Fatalf("applied = %v, want the failed job skipped", got)
	}
	if qt.Count() != 1 {
		t.Fatalf("quota count = %d, want 1; failures are free", qt.Count())
	}
}

func TestApplyPacing(t *testing.T) {
	t.Parallel()

	var postings []jobs.Posting
	for i := 1; i <= 7; i++ {
		postings = append(postings, posting(fmt.Sprintf("job-%d", i), "Engineer", "golang", "Full-time"))
	}
	pg := &fakePage{url: "https://www.linkedin.com/jobs/search/", postings: postings}
	prefs := testPrefs()
	prefs.DailyLimit = 100
	s, clock, _, _ := newTestService(t, pg, prefs)

	s.cycle(context.Background())

	if got := len(pg.appliedKeys()); got != 7 {
		t.Fatalf("applied %d, want 7", got)
	}
	// Short delay between jobs, long delay after each full batch of five.
	want := []time.Duration{
		defaultJobDelay, defaultJobDelay, defaultJobDelay, defaultJobDelay,
		defaultBatchDelay,
		defaultJobDelay,
	}
	clock.mu.Lock()
	defer clock.mu.Unlock()
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
		}
	}
}

func TestPausedResumesAfterRollover(t *testing.T) {
	t.Parallel()

	pg := &fakePage{
		url: "https://www.linkedin.com/jobs/search/",
		postings: []jobs.Posting{
			posting("day1", "Engineer", "golang", "Full-time"),
		},
	}
	prefs := testPrefs()
	prefs.DailyLimit = 1
	s, clock, _, _ := newTestService(t, pg, prefs)

	s.cycle(context.Background())
	if st := s.State(); st != StatePaused {
		t.Fatalf("state = %q, want paused", st)
	}

	// Another cycle the same day stays paused and never reaches the page.
	s.cycle(context.Background())
	pg.mu.Lock()
	extractsSameDay := pg.extracts
	pg.mu.Unlock()
	if extractsSameDay != 1 {
		t.Fatalf("extracts = %d, want 1 while paused", extractsSameDay)
	}

	// The next calendar day rolls the quota and the cycle resumes.
	clock.mu.Lock()
	clock.now = clock.now.Add(24 * time.Hour)
	clock.mu.Unlock()
	pg.mu.Lock()
	pg.postings = []jobs.Posting{posting("day2", "Engineer", "golang", "Full-time")}
	pg.mu.Unlock()

	s.cycle(context.Background())
	got := pg.appliedKeys()
	if len(got) != 2 || got[1] != "day2" {
		t.Fatalf("applied = %v, want day2 after rollover", got)
	}
}

func TestCycleInactiveDoesNothing(t *testing.T) {
	t.Parallel()

	pg := &fakePage{url: "https://www.linkedin.com/jobs/search/"}
	prefs := testPrefs()
	prefs.Enabled = false
	s, _, _, _ := newTestService(t, pg, prefs)

	s.cycle(context.Background())

	if st := s.State(); st != StateInactive {
		t.Fatalf("state = %q, want inactive", st)
	}
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.extracts != 0 {
		t.Fatalf("extracts = %d, want 0 while disabled", pg.extracts)
	}
}
