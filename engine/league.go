package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
)

// Tier is one league band. Tiers are contiguous and exhaustive from 0 up.
type Tier struct {
	Name      string `json:"name"`
	MinPoints int    `json:"minPoints"`
	MaxPoints int    `json:"maxPoints"` // -1 means unbounded
	Color     string `json:"color"`
}

// Tiers in ascending order. Rank is the slice index.
var Tiers = []Tier{
	{Name: "bronze", MinPoints: 0, MaxPoints: 999, Color: "#cd7f32"},
	{Name: "silver", MinPoints: 1000, MaxPoints: 2499, Color: "#c0c0c0"},
	{Name: "gold", MinPoints: 2500, MaxPoints: 4999, Color: "#ffd700"},
	{Name: "diamond", MinPoints: 5000, MaxPoints: -1, Color: "#b9f2ff"},
}

// maxLeaguePoints caps the points formula and bounds synthetic diamond
// leaderboard entries.
const maxLeaguePoints = 10000

// TierFor returns the tier whose range contains points. Out-of-range values
// land in bronze, which is unreachable given the contiguous table.
func TierFor(points int) Tier {
	for _, t := range Tiers {
		if points >= t.MinPoints && (t.MaxPoints < 0 || points <= t.MaxPoints) {
			return t
		}
	}
	return Tiers[0]
}

// tierRank returns the tier's index in the ascending table, or 0 when the
// name is unknown.
func tierRank(name string) int {
	for i, t := range Tiers {
		if t.Name == name {
			return i
		}
	}
	return 0
}

// League computes league points from accuracy, consistency, momentum, and
// improvement, and detects tier transitions. Like Momentum, it reads and
// writes exclusively through the store.
type League struct {
	store *store.Store
	clock Clock
	bus   *Bus
	rng   *rand.Rand
	log   *zap.SugaredLogger
}

// NewLeague builds the engine. rng drives leaderboard synthesis only.
func NewLeague(st *store.Store, clock Clock, bus *Bus, rng *rand.Rand, log *zap.SugaredLogger) *League {
	return &League{store: st, clock: clock, bus: bus, rng: rng, log: log}
}

// Points computes the current league points:
// accuracy*40 + consistency*30 + momentum*0.2 + improvement*10, clamped to
// [0, 10000]. Each input is on a 0-100 scale.
func (l *League) Points() int {
	accuracy := l.Accuracy()
	consistency := l.Consistency()
	momentum := float64(l.store.Momentum().Score)
	improvement := l.Improvement()

	points := accuracy*40 + consistency*30 + momentum*0.2 + improvement*10
	return int(clamp(math.Round(points), 0, maxLeaguePoints))
}

// Accuracy is the percentage correct over the most recent 100 answered
// questions, scanning session history newest-first. No history scores 0.
func (l *League) Accuracy() float64 {
	sessions := l.store.Practice().SessionHistory
	if len(sessions) == 0 {
		return 0
	}

	var total, correct int
	for i := len(sessions) - 1; i >= 0 && total < 100; i-- {
		for _, q := range sessions[i].Questions {
			if total >= 100 {
				break
			}
			total++
			if q.Correct {
				correct++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Consistency is the share of the last seven ledger entries out of a full
// week, on a 0-100 scale.
func (l *League) Consistency() float64 {
	history := l.store.Momentum().ActivityHistory
	if len(history) == 0 {
		return 0
	}
	n := min(len(history), 7)
	return float64(n) / 7 * 100
}

// Improvement compares weekly accuracy against the week before: a 50%
// relative gain maps to 100, clamped to [0,100]. Fewer than two sessions or
// an empty prior week score 0.
func (l *League) Improvement() float64 {
	sessions := l.store.Practice().SessionHistory
	if len(sessions) < 2 {
		return 0
	}

	day := today(l.clock)
	cutoffWeek := day.AddDays(-7)
	cutoffTwoWeeks := day.AddDays(-14)

	var lastCorrect, lastTotal, prevCorrect, prevTotal int
	for _, s := range sessions {
		switch {
		case s.Date >= cutoffWeek:
			for _, q := range s.Questions {
				lastTotal++
				if q.Correct {
					lastCorrect++
				}
			}
		case s.Date >= cutoffTwoWeeks:
			for _, q := range s.Questions {
				prevTotal++
				if q.Correct {
					prevCorrect++
				}
			}
		}
	}
	if prevTotal == 0 {
		return 0
	}

	var lastAccuracy float64
	if lastTotal > 0 {
		lastAccuracy = float64(lastCorrect) / float64(lastTotal)
	}
	prevAccuracy := float64(prevCorrect) / float64(prevTotal)

	improvementPct := (lastAccuracy - prevAccuracy) / prevAccuracy * 100
	return clamp(improvementPct/50*100, 0, 100)
}

// CurrentTier returns the tier containing the stored points.
func (l *League) CurrentTier() Tier {
	return TierFor(l.store.League().LeaguePoints)
}

// UpdatePoints recomputes league points, persists them, applies a tier
// transition if the tier name changed (raising LeagueChanged either way and
// advancing the peak on promotion), and refreshes weekly stats.
func (l *League) UpdatePoints() models.LeagueState {
	newPoints := l.Points()
	ls := l.store.League()
	oldName := ls.CurrentLeague
	newTier := TierFor(newPoints)

	ls.LeaguePoints = newPoints

	if newTier.Name != oldName {
		promoted := tierRank(newTier.Name) > tierRank(oldName)
		ls.CurrentLeague = newTier.Name
		if promoted && tierRank(newTier.Name) > tierRank(ls.PeakLeague) {
			ls.PeakLeague = newTier.Name
		}
		l.bus.Publish(LeagueChanged{NewLeague: newTier.Name, Promoted: promoted, Points: newPoints})
		if l.log != nil {
			l.log.Infow("league changed", "from", oldName, "to", newTier.Name, "promoted", promoted, "points", newPoints)
		}
	}

	ls.WeeklyStats = models.WeeklyStats{
		Accuracy:    l.Accuracy(),
		Consistency: l.Consistency(),
		Improvement: l.Improvement(),
	}
	l.store.PutLeague(ls)
	return ls
}

// LeaderboardEntry is one row of the synthesized league table.
type LeaderboardEntry struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Points        int     `json:"points"`
	DaysActive    int     `json:"daysActive"`
	Accuracy      float64 `json:"accuracy"`
	Improvement   float64 `json:"improvement"`
	IsCurrentUser bool    `json:"isCurrentUser,omitempty"`
	Rank          int     `json:"rank"`
}

var (
	peerAdjectives = []string{"Swift", "Bright", "Bold", "Keen", "Sharp", "Quick", "Smart", "Wise"}
	peerNouns      = []string{"Learner", "Scholar", "Student", "Achiever", "Seeker", "Thinker"}
)

// Leaderboard synthesizes peer entries in the user's current tier, inserts
// the user with their real numbers, and assigns contiguous ranks by
// descending points (ties keep insertion order).
func (l *League) Leaderboard(userName string, peers int) []LeaderboardEntry {
	ls := l.store.League()
	tier := TierFor(ls.LeaguePoints)

	span := maxLeaguePoints - tier.MinPoints
	if tier.MaxPoints >= 0 {
		span = tier.MaxPoints - tier.MinPoints
	}

	board := make([]LeaderboardEntry, 0, peers+1)
	for i := 0; i < peers; i++ {
		board = append(board, LeaderboardEntry{
			ID:          uuid.NewString(),
			Name:        l.peerName(),
			Points:      tier.MinPoints + l.rng.Intn(span+1),
			DaysActive:  l.rng.Intn(90) + 1,
			Accuracy:    float64(l.rng.Intn(40) + 60),
			Improvement: float64(l.rng.Intn(30)),
		})
	}

	if userName == "" {
		userName = "You"
	}
	board = append(board, LeaderboardEntry{
		ID:            "current-user",
		Name:          userName,
		Points:        ls.LeaguePoints,
		DaysActive:    l.store.Momentum().TotalDaysActive,
		Accuracy:      l.Accuracy(),
		Improvement:   l.Improvement(),
		IsCurrentUser: true,
	})

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Points > board[j].Points
	})
	for i := range board {
		board[i].Rank = i + 1
	}
	return board
}

func (l *League) peerName() string {
	return fmt.Sprintf("%s%s%d",
		peerAdjectives[l.rng.Intn(len(peerAdjectives))],
		peerNouns[l.rng.Intn(len(peerNouns))],
		l.rng.Intn(999))
}

// Zone classifies a leaderboard rank.
type Zone struct {
	Zone    string `json:"zone"`
	Message string `json:"message"`
}

// ZoneFor places a rank among total participants: top 20% is the promotion
// zone, bottom 10% the recalibration zone, everything else safe.
func ZoneFor(rank, total int) Zone {
	promotionCutoff := int(math.Ceil(float64(total) * 0.2))
	demotionCutoff := int(math.Floor(float64(total) * 0.9))

	switch {
	case rank <= promotionCutoff:
		return Zone{Zone: "promotion", Message: "Promotion Zone!"}
	case rank >= demotionCutoff:
		return Zone{Zone: "demotion", Message: "Recalibration Zone"}
	default:
		return Zone{Zone: "safe", Message: "Safe Zone"}
	}
}
