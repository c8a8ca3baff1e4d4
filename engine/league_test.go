package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
)

func newTestLeague(st *store.Store, clock Clock, bus *Bus) *League {
	return NewLeague(st, clock, bus, rand.New(rand.NewSource(1)), nil)
}

// session builds a completed session with total questions of which correct
// were answered right, all on the given day.
func session(day models.Date, total, correct int) models.SessionHistoryEntry {
	entry := models.SessionHistoryEntry{
		ID:   "s-" + string(day),
		Date: day,
		Mode: "swipe-practice",
	}
	for i := 0; i < total; i++ {
		entry.Questions = append(entry.Questions, models.SessionResult{
			QuestionID: "q",
			Skill:      "reading",
			Correct:    i < correct,
			Timestamp:  time.Now(),
		})
	}
	entry.Accuracy = float64(correct) / float64(total)
	return entry
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		points int
		want   string
	}{
		{0, "bronze"},
		{999, "bronze"},
		{1000, "silver"},
		{2499, "silver"},
		{2500, "gold"},
		{4999, "gold"},
		{5000, "diamond"},
		{10000, "diamond"},
	}
	for _, c := range cases {
		if got := TierFor(c.points).Name; got != c.want {
			t.Fatalf("TierFor(%d) = %q, want %q", c.points, got, c.want)
		}
	}
}

func TestTierTableIsContiguous(t *testing.T) {
	for i := 1; i < len(Tiers); i++ {
		if Tiers[i].MinPoints != Tiers[i-1].MaxPoints+1 {
			t.Fatalf("gap between %s and %s", Tiers[i-1].Name, Tiers[i].Name)
		}
	}
	if Tiers[len(Tiers)-1].MaxPoints != -1 {
		t.Fatal("top tier must be unbounded")
	}
	// Every point value lands in exactly one tier.
	for p := 0; p <= 10000; p += 7 {
		hits := 0
		for _, tier := range Tiers {
			if p >= tier.MinPoints && (tier.MaxPoints < 0 || p <= tier.MaxPoints) {
				hits++
			}
		}
		if hits != 1 {
			t.Fatalf("points %d matched %d tiers", p, hits)
		}
	}
}

func TestPointsFormula(t *testing.T) {
	st := store.New(nil, nil)
	clock := clockAt(t, "2026-01-10")
	l := newTestLeague(st, clock, NewBus())

	// 7 ledger days -> consistency 100; one session 80% accurate; momentum
	// score 50; no prior week -> improvement 0.
	ms := st.Momentum()
	for i := 0; i < 7; i++ {
		ms.ActivityHistory = append(ms.ActivityHistory, models.ActivityRecord{
			Date:    models.Date("2026-01-10").AddDays(-i),
			Actions: 5,
			Effort:  5,
		})
	}
	ms.Score = 50
	st.PutMomentum(ms)

	ps := st.Practice()
	ps.SessionHistory = append(ps.SessionHistory, session("2026-01-10", 10, 8))
	st.PutPractice(ps)

	// 80*40 + 100*30 + 50*0.2 + 0*10 = 6210
	if got := l.Points(); got != 6210 {
		t.Fatalf("Points() = %d, want 6210", got)
	}
}

func TestPointsStayInRange(t *testing.T) {
	st := store.New(nil, nil)
	clock := clockAt(t, "2026-01-10")
	l := newTestLeague(st, clock, NewBus())

	if got := l.Points(); got != 0 {
		t.Fatalf("empty state should score 0 points, got %d", got)
	}

	// Saturate every input; the clamp caps at 10000.
	ms := st.Momentum()
	for i := 0; i < 7; i++ {
		ms.ActivityHistory = append(ms.ActivityHistory, models.ActivityRecord{
			Date: models.Date("2026-01-10").AddDays(-i), Actions: 10, Effort: 10,
		})
	}
	ms.Score = 100
	st.PutMomentum(ms)

	ps := st.Practice()
	ps.SessionHistory = append(ps.SessionHistory,
		session(models.Date("2026-01-10").AddDays(-10), 10, 1),
		session("2026-01-10", 100, 100),
	)
	st.PutPractice(ps)

	got := l.Points()
	if got < 0 || got > 10000 {
		t.Fatalf("points out of range: %d", got)
	}
}

func TestAccuracyWindowIsLastHundred(t *testing.T) {
	st := store.New(nil, nil)
	l := newTestLeague(st, clockAt(t, "2026-01-10"), NewBus())

	ps := st.Practice()
	// 50 all-wrong answers, then 100 all-correct: window covers only the
	// newest 100.
	ps.SessionHistory = append(ps.SessionHistory,
		session("2026-01-08", 50, 0),
		session("2026-01-09", 50, 50),
		session("2026-01-10", 50, 50),
	)
	st.PutPractice(ps)

	if got := l.Accuracy(); got != 100 {
		t.Fatalf("Accuracy() = %v, want 100 (window must exclude old answers)", got)
	}
}

func TestImprovementGuards(t *testing.T) {
	st := store.New(nil, nil)
	l := newTestLeague(st, clockAt(t, "2026-01-15"), NewBus())

	if got := l.Improvement(); got != 0 {
		t.Fatalf("no sessions should score 0 improvement, got %v", got)
	}

	ps := st.Practice()
	ps.SessionHistory = append(ps.SessionHistory, session("2026-01-15", 10, 8))
	st.PutPractice(ps)
	if got := l.Improvement(); got != 0 {
		t.Fatalf("a single session should score 0 improvement, got %v", got)
	}

	// Two sessions but both in the current week: empty prior week scores 0.
	ps = st.Practice()
	ps.SessionHistory = append(ps.SessionHistory, session("2026-01-14", 10, 9))
	st.PutPractice(ps)
	if got := l.Improvement(); got != 0 {
		t.Fatalf("empty prior week should score 0 improvement, got %v", got)
	}
}

func TestImprovementRewardsAccuracyGains(t *testing.T) {
	st := store.New(nil, nil)
	l := newTestLeague(st, clockAt(t, "2026-01-15"), NewBus())

	ps := st.Practice()
	ps.SessionHistory = append(ps.SessionHistory,
		session("2026-01-05", 10, 5),  // prior week: 50%
		session("2026-01-14", 10, 10), // this week: 100%
	)
	st.PutPractice(ps)

	// Relative gain 100%, scaled by 2 and clamped to 100.
	if got := l.Improvement(); got != 100 {
		t.Fatalf("Improvement() = %v, want 100", got)
	}
}

func TestPromotionBronzeToSilver(t *testing.T) {
	st := store.New(nil, nil)
	bus := NewBus()
	l := newTestLeague(st, clockAt(t, "2026-01-10"), bus)

	events := captureEvents(bus)

	ps := st.Practice()
	ps.SessionHistory = append(ps.SessionHistory, session("2026-01-10", 10, 5))
	st.PutPractice(ps)

	ls := l.UpdatePoints()
	if ls.CurrentLeague != "silver" {
		t.Fatalf("50%% accuracy should land in silver, got %q (%d pts)", ls.CurrentLeague, ls.LeaguePoints)
	}
	if ls.PeakLeague != "silver" {
		t.Fatalf("peak should advance on promotion, got %q", ls.PeakLeague)
	}

	var change *LeagueChanged
	for _, e := range *events {
		if c, ok := e.(LeagueChanged); ok {
			change = &c
		}
	}
	if change == nil {
		t.Fatal("expected a LeagueChanged event")
	}
	if !change.Promoted || change.NewLeague != "silver" {
		t.Fatalf("expected promotion to silver, got %+v", change)
	}
}

func TestDemotionKeepsPeak(t *testing.T) {
	st := store.New(nil, nil)
	bus := NewBus()
	l := newTestLeague(st, clockAt(t, "2026-01-10"), bus)

	ls := st.League()
	ls.CurrentLeague = "gold"
	ls.PeakLeague = "gold"
	ls.LeaguePoints = 3000
	st.PutLeague(ls)

	events := captureEvents(bus)

	// Empty inputs drop points to 0 -> bronze.
	ls = l.UpdatePoints()
	if ls.CurrentLeague != "bronze" {
		t.Fatalf("expected demotion to bronze, got %q", ls.CurrentLeague)
	}
	if ls.PeakLeague != "gold" {
		t.Fatalf("peak must survive demotion, got %q", ls.PeakLeague)
	}

	var change *LeagueChanged
	for _, e := range *events {
		if c, ok := e.(LeagueChanged); ok {
			change = &c
		}
	}
	if change == nil || change.Promoted {
		t.Fatalf("expected a non-promotion LeagueChanged, got %+v", change)
	}
}

func TestLeaderboardShapeAndUserPlacement(t *testing.T) {
	st := store.New(nil, nil)
	l := newTestLeague(st, clockAt(t, "2026-01-10"), NewBus())

	ls := st.League()
	ls.LeaguePoints = 500
	st.PutLeague(ls)

	board := l.Leaderboard("Dana", 20)
	if len(board) != 21 {
		t.Fatalf("expected 21 entries, got %d", len(board))
	}

	users := 0
	for i, entry := range board {
		if entry.Rank != i+1 {
			t.Fatalf("ranks must be contiguous: entry %d has rank %d", i, entry.Rank)
		}
		if i > 0 && board[i-1].Points < entry.Points {
			t.Fatalf("board must be sorted descending at index %d", i)
		}
		if entry.IsCurrentUser {
			users++
			if entry.Name != "Dana" {
				t.Fatalf("user entry should carry the given name, got %q", entry.Name)
			}
			if entry.Points != 500 {
				t.Fatalf("user entry should carry real points, got %d", entry.Points)
			}
		}
	}
	if users != 1 {
		t.Fatalf("expected exactly one current-user entry, got %d", users)
	}
}

func TestLeaderboardPeersStayInTier(t *testing.T) {
	st := store.New(nil, nil)
	l := newTestLeague(st, clockAt(t, "2026-01-10"), NewBus())

	ls := st.League()
	ls.LeaguePoints = 1200 // silver
	st.PutLeague(ls)

	for _, entry := range l.Leaderboard("", 20) {
		if entry.IsCurrentUser {
			continue
		}
		if entry.Points < 1000 || entry.Points > 2499 {
			t.Fatalf("silver peer out of tier range: %d", entry.Points)
		}
	}
}

func TestZoneCutoffs(t *testing.T) {
	// 21 participants: ceil(21*0.2)=5 promotion, floor(21*0.9)=18 demotion.
	cases := []struct {
		rank int
		want string
	}{
		{1, "promotion"},
		{5, "promotion"},
		{6, "safe"},
		{17, "safe"},
		{18, "demotion"},
		{21, "demotion"},
	}
	for _, c := range cases {
		if got := ZoneFor(c.rank, 21).Zone; got != c.want {
			t.Fatalf("ZoneFor(%d, 21) = %q, want %q", c.rank, got, c.want)
		}
	}
}
