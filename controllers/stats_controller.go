package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/leaplabs/leap-server/middleware"
	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
	"github.com/leaplabs/leap-server/utils"
)

// StatsController aggregates the per-user dashboard numbers in one call.
type StatsController struct {
	stores *store.Manager
}

// NewStatsController creates a StatsController.
func NewStatsController(stores *store.Manager) *StatsController {
	return &StatsController{stores: stores}
}

// Get returns the dashboard aggregate: momentum, streaks, practice totals,
// league standing, achievements, and the 30-day activity trail.
func (s *StatsController) Get(ctx *gin.Context) {
	userID := middleware.UserID(ctx)
	b := bundleFor(s.stores, userID)
	st := s.stores.ForUser(userID)

	ms := st.Momentum()
	ps := st.Practice()
	ls := st.League()
	profile := st.Profile()

	recent := ms.ActivityHistory
	if n := len(recent); n > 30 {
		recent = recent[n-30:]
	}
	if recent == nil {
		recent = []models.ActivityRecord{}
	}

	utils.Success(ctx, gin.H{
		"momentum": gin.H{
			"score":             b.Momentum.Score(),
			"streak":            ms.Streak,
			"longest_streak":    ms.LongestStreak,
			"streak_paused":     ms.StreakPaused,
			"total_days_active": ms.TotalDaysActive,
		},
		"practice": gin.H{
			"total_swipes":     ps.TotalSwipes,
			"accuracy":         b.League.Accuracy(),
			"mastered_count":   len(ps.Mastered),
			"needs_work_count": len(ps.NeedsWork),
			"sessions":         len(ps.SessionHistory),
		},
		"league": gin.H{
			"current":      ls.CurrentLeague,
			"points":       ls.LeaguePoints,
			"peak":         ls.PeakLeague,
			"weekly_stats": ls.WeeklyStats,
		},
		"achievements": profile.Achievements,
		"activity":     recent,
	})
}
