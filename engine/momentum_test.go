package engine

import (
	"testing"
	"time"

	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
)

func clockAt(t *testing.T, day string) FixedClock {
	t.Helper()
	instant, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("bad test date %q: %v", day, err)
	}
	return FixedClock{Instant: instant}
}

func newTestStore() *store.Store {
	return store.New(nil, nil)
}

func captureEvents(bus *Bus) *[]Event {
	events := &[]Event{}
	bus.Subscribe(func(e Event) { *events = append(*events, e) })
	return events
}

func TestRecordActivityFirstDay(t *testing.T) {
	st := newTestStore()
	bus := NewBus()
	m := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)

	ms, err := m.RecordActivity(5, 6)
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if ms.Streak != 1 || ms.LongestStreak != 1 {
		t.Fatalf("expected streak=1 longest=1, got %d/%d", ms.Streak, ms.LongestStreak)
	}
	if len(ms.ActivityHistory) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(ms.ActivityHistory))
	}
	if ms.TotalDaysActive != 1 {
		t.Fatalf("expected totalDaysActive=1, got %d", ms.TotalDaysActive)
	}
	if ms.Score < 0 || ms.Score > 100 {
		t.Fatalf("score out of bounds: %d", ms.Score)
	}
}

func TestSameDayActivityMerges(t *testing.T) {
	st := newTestStore()
	bus := NewBus()
	m := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)

	if _, err := m.RecordActivity(5, 4); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	ms, err := m.RecordActivity(3, 8)
	if err != nil {
		t.Fatalf("second record failed: %v", err)
	}

	if len(ms.ActivityHistory) != 1 {
		t.Fatalf("same-day activity must merge into one entry, got %d", len(ms.ActivityHistory))
	}
	rec := ms.ActivityHistory[0]
	if rec.Actions != 8 {
		t.Fatalf("actions should sum to 8, got %d", rec.Actions)
	}
	if rec.Effort != 8 {
		t.Fatalf("effort should keep the max 8, got %v", rec.Effort)
	}
	if ms.Streak != 1 {
		t.Fatalf("same-day activity must not advance the streak, got %d", ms.Streak)
	}
}

func TestStreakAdvancesOnConsecutiveDays(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	m1 := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)
	if _, err := m1.RecordActivity(5, 5); err != nil {
		t.Fatalf("day 1 failed: %v", err)
	}

	m2 := NewMomentum(st, clockAt(t, "2026-01-11"), bus, nil)
	ms, err := m2.RecordActivity(5, 5)
	if err != nil {
		t.Fatalf("day 2 failed: %v", err)
	}
	if ms.Streak != 2 || ms.LongestStreak != 2 {
		t.Fatalf("expected streak=2 longest=2, got %d/%d", ms.Streak, ms.LongestStreak)
	}
	if ms.StreakPaused {
		t.Fatal("consecutive days must not pause")
	}
}

func TestOneMissedDayIsGrace(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	m1 := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)
	if _, err := m1.RecordActivity(5, 5); err != nil {
		t.Fatalf("day 1 failed: %v", err)
	}

	// One full day elapsed: grace, no pause.
	m2 := NewMomentum(st, clockAt(t, "2026-01-11"), bus, nil)
	if st.Momentum().StreakPaused {
		t.Fatal("one-day gap must not pause the streak")
	}

	ms, err := m2.RecordActivity(5, 5)
	if err != nil {
		t.Fatalf("day 2 failed: %v", err)
	}
	if ms.Streak != 2 {
		t.Fatalf("grace day then activity should advance to 2, got %d", ms.Streak)
	}
}

func TestTwoDayGapPausesOnRead(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	m1 := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)
	if _, err := m1.RecordActivity(5, 5); err != nil {
		t.Fatalf("day 1 failed: %v", err)
	}

	events := captureEvents(bus)
	NewMomentum(st, clockAt(t, "2026-01-12"), bus, nil)

	ms := st.Momentum()
	if !ms.StreakPaused {
		t.Fatal("two-day gap must pause the streak")
	}
	if ms.PausedAt != models.Date("2026-01-10") {
		t.Fatalf("pausedAt should be the last activity date, got %q", ms.PausedAt)
	}

	var paused *StreakPaused
	for _, e := range *events {
		if p, ok := e.(StreakPaused); ok {
			paused = &p
		}
	}
	if paused == nil {
		t.Fatal("expected a StreakPaused event")
	}
	if paused.DaysMissed != 1 {
		t.Fatalf("expected daysMissed=1, got %d", paused.DaysMissed)
	}
}

func TestPauseAndResumeInOneRecord(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	m1 := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)
	if _, err := m1.RecordActivity(5, 5); err != nil {
		t.Fatalf("day 1 failed: %v", err)
	}

	events := captureEvents(bus)
	m2 := NewMomentum(st, clockAt(t, "2026-01-14"), bus, nil)
	ms, err := m2.RecordActivity(5, 5)
	if err != nil {
		t.Fatalf("comeback record failed: %v", err)
	}

	if ms.StreakPaused {
		t.Fatal("activity must resume a paused streak")
	}
	if ms.Streak != 2 {
		t.Fatalf("resumed streak should continue at 2, got %d", ms.Streak)
	}
	if ms.ResumedOn != models.Date("2026-01-14") {
		t.Fatalf("resumedOn should be today, got %q", ms.ResumedOn)
	}
	if ms.ComebackScore <= 0 || ms.ComebackScore > 100 {
		t.Fatalf("comeback score out of range: %v", ms.ComebackScore)
	}

	var sawPaused, sawResumed bool
	for _, e := range *events {
		switch e.(type) {
		case StreakPaused:
			sawPaused = true
		case StreakResumed:
			if !sawPaused {
				t.Fatal("StreakResumed must follow StreakPaused")
			}
			sawResumed = true
		}
	}
	if !sawPaused || !sawResumed {
		t.Fatalf("expected pause then resume events, got %v", *events)
	}
}

func TestStreakAdvancesAcrossSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	oldLocal := time.Local
	time.Local = loc
	defer func() { time.Local = oldLocal }()

	st := newTestStore()
	bus := NewBus()

	// 2026-03-08 is 23 hours long in New York; the next calendar day must
	// still count as a one-day gap.
	m1 := NewMomentum(st, clockAt(t, "2026-03-08"), bus, nil)
	if _, err := m1.RecordActivity(5, 5); err != nil {
		t.Fatalf("day 1 failed: %v", err)
	}

	m2 := NewMomentum(st, clockAt(t, "2026-03-09"), bus, nil)
	ms, err := m2.RecordActivity(5, 5)
	if err != nil {
		t.Fatalf("day 2 failed: %v", err)
	}
	if ms.Streak != 2 {
		t.Fatalf("streak across spring-forward = %d, want 2", ms.Streak)
	}
	if ms.StreakPaused {
		t.Fatal("consecutive days across DST must not pause")
	}

	// A true two-day gap over the transition still pauses.
	NewMomentum(st, clockAt(t, "2026-03-11"), bus, nil)
	if !st.Momentum().StreakPaused {
		t.Fatal("two-day gap across DST must pause")
	}
}

func TestRecordActivityRejectsNonPositiveActions(t *testing.T) {
	st := newTestStore()
	m := NewMomentum(st, clockAt(t, "2026-01-10"), NewBus(), nil)

	if _, err := m.RecordActivity(0, 5); err == nil {
		t.Fatal("zero actions must be rejected")
	}
	if _, err := m.RecordActivity(-3, 5); err == nil {
		t.Fatal("negative actions must be rejected")
	}
	if len(st.Momentum().ActivityHistory) != 0 {
		t.Fatal("rejected activity must not touch the ledger")
	}
}

func TestEffortClampedToTen(t *testing.T) {
	st := newTestStore()
	m := NewMomentum(st, clockAt(t, "2026-01-10"), NewBus(), nil)

	ms, err := m.RecordActivity(5, 42)
	if err != nil {
		t.Fatalf("RecordActivity failed: %v", err)
	}
	if got := ms.ActivityHistory[0].Effort; got != 10 {
		t.Fatalf("effort should clamp to 10, got %v", got)
	}
}

func TestScoreStaysBounded(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	// A long run of maximal days must not push the score past 100.
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		m := NewMomentum(st, FixedClock{Instant: day}, bus, nil)
		if _, err := m.RecordActivity(50, 10); err != nil {
			t.Fatalf("day %d failed: %v", i, err)
		}
		day = day.Add(24 * time.Hour)
	}

	m := NewMomentum(st, FixedClock{Instant: day}, bus, nil)
	score := m.Score()
	if score < 0 || score > 100 {
		t.Fatalf("score out of bounds: %d", score)
	}
	if score < 70 {
		t.Fatalf("40 perfect days should score high, got %d", score)
	}
}

func TestLongestStreakNeverDecreases(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		m := NewMomentum(st, FixedClock{Instant: day}, bus, nil)
		if _, err := m.RecordActivity(5, 5); err != nil {
			t.Fatalf("day %d failed: %v", i, err)
		}
		day = day.Add(24 * time.Hour)
	}
	longestBefore := st.Momentum().LongestStreak

	// Long gap, then a comeback.
	day = day.Add(10 * 24 * time.Hour)
	m := NewMomentum(st, FixedClock{Instant: day}, bus, nil)
	ms, err := m.RecordActivity(5, 5)
	if err != nil {
		t.Fatalf("comeback failed: %v", err)
	}
	if ms.LongestStreak < longestBefore {
		t.Fatalf("longest streak regressed: %d -> %d", longestBefore, ms.LongestStreak)
	}
}

func TestRecommendDailyActionBacklogFirst(t *testing.T) {
	st := newTestStore()
	m := NewMomentum(st, clockAt(t, "2026-01-10"), NewBus(), nil)

	ps := st.Practice()
	for i := 0; i < 11; i++ {
		ps.NeedsWork = append(ps.NeedsWork, "q"+string(rune('a'+i)))
	}
	st.PutPractice(ps)

	action := m.RecommendDailyAction()
	if action.Title != "Review Needs Work" {
		t.Fatalf("backlog over 10 should pick review, got %q", action.Title)
	}
	if action.Duration > 10 {
		t.Fatalf("review duration should cap at 10, got %d", action.Duration)
	}
}

func TestRecommendDailyActionLowMomentum(t *testing.T) {
	st := newTestStore()
	m := NewMomentum(st, clockAt(t, "2026-01-10"), NewBus(), nil)

	action := m.RecommendDailyAction()
	if action.Title != "Quick Practice" || action.Duration != 2 {
		t.Fatalf("fresh user should get a 2-minute quick practice, got %+v", action)
	}
}

func TestInsightsReportPause(t *testing.T) {
	st := newTestStore()
	bus := NewBus()

	m1 := NewMomentum(st, clockAt(t, "2026-01-10"), bus, nil)
	if _, err := m1.RecordActivity(5, 5); err != nil {
		t.Fatalf("day 1 failed: %v", err)
	}

	m2 := NewMomentum(st, clockAt(t, "2026-01-13"), bus, nil)
	var found bool
	for _, ins := range m2.Insights() {
		if ins.Action == "Resume Streak" {
			found = true
		}
	}
	if !found {
		t.Fatal("paused streak should surface a resume insight")
	}
}
