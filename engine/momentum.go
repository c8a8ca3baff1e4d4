package engine

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
)

// Momentum score weights. Each sub-score is pre-scaled to 0-100.
const (
	weightConsistency  = 0.4
	weightEffort       = 0.3
	weightSkillBalance = 0.2
	weightRecovery     = 0.1
)

// Momentum owns the activity ledger and the streak state machine. It holds
// no private state: every read and write round-trips through the store so
// the store stays the single source of truth.
type Momentum struct {
	store *store.Store
	clock Clock
	bus   *Bus
	log   *zap.SugaredLogger
}

// NewMomentum builds the engine and runs the day-transition check: a gap of
// two or more days since the last activity pauses the streak immediately so
// read-only endpoints report the pause before any new activity arrives.
func NewMomentum(st *store.Store, clock Clock, bus *Bus, log *zap.SugaredLogger) *Momentum {
	m := &Momentum{store: st, clock: clock, bus: bus, log: log}
	m.checkDayTransition()
	return m
}

func (m *Momentum) checkDayTransition() {
	ms := m.store.Momentum()
	if ms.LastActivityDate.IsZero() || ms.StreakPaused {
		return
	}
	days := models.DaysBetween(ms.LastActivityDate, today(m.clock))
	if days >= 2 {
		m.pause(&ms, days-1)
		m.store.PutMomentum(ms)
	}
	// days == 1 is the grace period: one missed boundary, no penalty.
}

func (m *Momentum) pause(ms *models.MomentumState, daysMissed int) {
	ms.StreakPaused = true
	ms.PausedAt = ms.LastActivityDate
	m.bus.Publish(StreakPaused{DaysMissed: daysMissed})
	if m.log != nil {
		m.log.Infow("streak paused", "daysMissed", daysMissed, "streak", ms.Streak)
	}
}

// RecordActivity appends today's activity to the ledger (merging with an
// existing same-day record), advances the streak, recomputes the momentum
// score, and raises MomentumUpdated. Effort is clamped to [0,10];
// non-positive action counts are rejected.
func (m *Momentum) RecordActivity(actions int, effort float64) (models.MomentumState, error) {
	if actions <= 0 {
		return models.MomentumState{}, fmt.Errorf("actions must be positive, got %d", actions)
	}
	effort = clamp(effort, 0, 10)

	day := today(m.clock)
	ms := m.store.Momentum()

	// Ledger: one record per calendar date.
	if n := len(ms.ActivityHistory); n > 0 && ms.ActivityHistory[n-1].Date == day {
		rec := &ms.ActivityHistory[n-1]
		rec.Actions += actions
		rec.Effort = math.Max(rec.Effort, effort)
	} else {
		ms.ActivityHistory = append(ms.ActivityHistory, models.ActivityRecord{
			Date:    day,
			Actions: actions,
			Effort:  effort,
		})
	}

	m.updateStreak(&ms, day)

	ms.LastActivityDate = day
	ms.TotalDaysActive = len(ms.ActivityHistory)
	m.store.PutMomentum(ms)

	score := m.Score()
	m.store.Set("momentum.score", score)
	ms.Score = score

	m.bus.Publish(MomentumUpdated{Score: score})
	return ms, nil
}

// updateStreak applies the streak state machine. Pause status is recomputed
// from the day gap right here, so a multi-day gap seen directly by
// RecordActivity pauses and then immediately resumes the streak instead of
// silently extending it.
func (m *Momentum) updateStreak(ms *models.MomentumState, day models.Date) {
	if ms.LastActivityDate.IsZero() {
		ms.Streak = 1
		ms.LongestStreak = 1
		return
	}

	days := models.DaysBetween(ms.LastActivityDate, day)
	switch {
	case days == 0:
		// Same-day activity never moves the streak.
	case days == 1:
		m.advanceStreak(ms, day)
	default:
		if !ms.StreakPaused {
			m.pause(ms, days-1)
		}
		m.advanceStreak(ms, day)
	}
}

func (m *Momentum) advanceStreak(ms *models.MomentumState, day models.Date) {
	ms.Streak++
	if ms.Streak > ms.LongestStreak {
		ms.LongestStreak = ms.Streak
	}
	if ms.StreakPaused {
		ms.StreakPaused = false
		ms.ResumedOn = day
		ms.ComebackScore = comebackScore(*ms, day)
		m.bus.Publish(StreakResumed{Streak: ms.Streak})
		if m.log != nil {
			m.log.Infow("streak resumed", "streak", ms.Streak)
		}
	}
}

// comebackScore rewards fast returns in proportion to the prior best
// streak: longestStreak * (streak / days since pause) * 10, capped at 100.
func comebackScore(ms models.MomentumState, day models.Date) float64 {
	if ms.Streak == 0 {
		return 0
	}
	sincePause := models.DaysBetween(ms.PausedAt, day)
	if sincePause < 1 {
		sincePause = 1
	}
	speed := float64(ms.Streak) / float64(sincePause)
	return math.Min(100, float64(ms.LongestStreak)*speed*10)
}

// Score computes the 0-100 momentum score from the current state.
func (m *Momentum) Score() int {
	consistency := m.consistency()
	effort := m.effortScore()
	balance := m.skillBalance()
	recovery := m.recovery()

	momentum := consistency*weightConsistency +
		effort*weightEffort +
		balance*weightSkillBalance +
		recovery*weightRecovery

	return int(clamp(math.Round(momentum), 0, 100))
}

// consistency weighs recent activity density: the most recent 7, 14, and 30
// ledger entries at 50/30/20 percent. Gaps shrink the ratios because the
// ledger only holds days that actually had activity.
func (m *Momentum) consistency() float64 {
	history := m.store.Momentum().ActivityHistory
	if len(history) == 0 {
		return 0
	}
	n7 := min(len(history), 7)
	n14 := min(len(history), 14)
	n30 := min(len(history), 30)

	return float64(n7)/7*100*0.5 +
		float64(n14)/14*100*0.3 +
		float64(n30)/30*100*0.2
}

// effortScore averages effort over the last seven ledger entries and
// rescales 0-10 to 0-100.
func (m *Momentum) effortScore() float64 {
	history := m.store.Momentum().ActivityHistory
	if len(history) == 0 {
		return 0
	}
	start := len(history) - 7
	if start < 0 {
		start = 0
	}
	window := history[start:]
	var total float64
	for _, rec := range window {
		total += rec.Effort
	}
	return total / float64(len(window)) * 10
}

// skillBalance scores how evenly the four skills were practiced over the
// last seven days. Even practice scores 100; the score drops with the
// coefficient of variation of the per-skill counts, floored at 0. No recent
// sessions means no penalty.
func (m *Momentum) skillBalance() float64 {
	sessions := m.store.Practice().SessionHistory
	if len(sessions) == 0 {
		return 100
	}

	cutoff := today(m.clock).AddDays(-7)
	counts := map[string]int{}
	for _, s := range sessions {
		if s.Date < cutoff {
			continue
		}
		for _, q := range s.Questions {
			counts[q.Skill]++
		}
	}

	var total int
	values := make([]float64, 0, len(models.Skills))
	for _, skill := range models.Skills {
		values = append(values, float64(counts[skill]))
		total += counts[skill]
	}
	if total == 0 {
		return 100
	}

	mean := float64(total) / float64(len(models.Skills))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(models.Skills))
	stdDev := math.Sqrt(variance)

	return math.Max(0, 100-(stdDev/mean)*50)
}

// recovery is the comeback term: while paused it tracks the live comeback
// formula; on the day the streak resumes it holds the score computed at
// resume time; otherwise zero.
func (m *Momentum) recovery() float64 {
	ms := m.store.Momentum()
	day := today(m.clock)

	if ms.StreakPaused {
		return comebackScore(ms, day)
	}
	if !ms.ResumedOn.IsZero() && ms.ResumedOn == day {
		return math.Min(100, ms.ComebackScore)
	}
	return 0
}

// DailyAction is the recommended next session.
type DailyAction struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Effort      int    `json:"effort"`
}

// RecommendDailyAction picks today's suggested session from the needs-work
// backlog, the momentum score, and the user's daily commitment. Pure read.
func (m *Momentum) RecommendDailyAction() DailyAction {
	ms := m.store.Momentum()
	commitment := m.store.UserState().DailyCommitment
	backlog := len(m.store.Practice().NeedsWork)

	switch {
	case backlog > 10:
		return DailyAction{
			Type:        "swipe-practice",
			Title:       "Review Needs Work",
			Description: fmt.Sprintf("You have %d questions to review", backlog),
			Duration:    min(commitment, 10),
			Effort:      7,
		}
	case ms.Score < 30:
		return DailyAction{
			Type:        "swipe-practice",
			Title:       "Quick Practice",
			Description: "Build momentum with a 2-minute session",
			Duration:    2,
			Effort:      3,
		}
	case ms.Score < 60:
		return DailyAction{
			Type:        "swipe-practice",
			Title:       "Daily Practice",
			Description: "Maintain your momentum",
			Duration:    min(commitment, 5),
			Effort:      5,
		}
	default:
		return DailyAction{
			Type:        "swipe-practice",
			Title:       "Deep Practice",
			Description: "Push your limits today",
			Duration:    min(commitment, 10),
			Effort:      8,
		}
	}
}

// Insight is a short coaching message for the client to display.
type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// Insights summarizes the current momentum state as coaching messages.
func (m *Momentum) Insights() []Insight {
	ms := m.store.Momentum()
	insights := []Insight{}

	if ms.Score < 30 {
		insights = append(insights, Insight{
			Type:    "warning",
			Message: "Your momentum is low. Start with just 2 minutes today.",
			Action:  "Start Quick Practice",
		})
	} else if ms.Score >= 70 {
		insights = append(insights, Insight{
			Type:    "success",
			Message: "Amazing! You're in the top 20% of learners.",
		})
	}

	if ms.Streak >= 7 && !ms.StreakPaused {
		insights = append(insights, Insight{
			Type:    "success",
			Message: fmt.Sprintf("%d day streak! You're building a real habit.", ms.Streak),
		})
	}

	if ms.StreakPaused {
		insights = append(insights, Insight{
			Type:    "info",
			Message: "Your streak is paused. Complete today's action to resume.",
			Action:  "Resume Streak",
		})
	}

	return insights
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
