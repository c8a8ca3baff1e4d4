package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leaplabs/leap-server/config"
	"github.com/leaplabs/leap-server/engine"
	"github.com/leaplabs/leap-server/middleware"
	"github.com/leaplabs/leap-server/store"
	"github.com/leaplabs/leap-server/utils"
)

// leaderboardCacheTTL keeps the synthesized table stable between refreshes
// so ranks do not jump on every poll.
const leaderboardCacheTTL = time.Minute

// LeagueController exposes league standing and the weekly leaderboard.
type LeagueController struct {
	stores *store.Manager
}

// NewLeagueController creates a LeagueController.
func NewLeagueController(stores *store.Manager) *LeagueController {
	return &LeagueController{stores: stores}
}

// Status returns the user's league standing: tier, points, sub-scores,
// rank, and the zone that rank falls in.
func (l *LeagueController) Status(ctx *gin.Context) {
	userID := middleware.UserID(ctx)
	b := bundleFor(l.stores, userID)
	st := l.stores.ForUser(userID)

	ls := b.League.UpdatePoints()

	board := b.League.Leaderboard(st.UserState().Name, config.Get().LeaderboardSize)
	rank := 0
	for _, entry := range board {
		if entry.IsCurrentUser {
			rank = entry.Rank
			break
		}
	}
	ls.Rank = rank
	st.PutLeague(ls)

	utils.Success(ctx, gin.H{
		"league": ls,
		"tier":   b.League.CurrentTier(),
		"zone":   engine.ZoneFor(rank, len(board)),
	})
}

// Leaderboard returns the synthesized league table for the user's tier.
// Cached briefly per user so repeated polls see the same peers.
func (l *LeagueController) Leaderboard(ctx *gin.Context) {
	userID := middleware.UserID(ctx)
	cacheKey := fmt.Sprintf("cache:leaderboard:%d", userID)

	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	b := bundleFor(l.stores, userID)
	st := l.stores.ForUser(userID)

	board := b.League.Leaderboard(st.UserState().Name, config.Get().LeaderboardSize)

	rank := 0
	for _, entry := range board {
		if entry.IsCurrentUser {
			rank = entry.Rank
			break
		}
	}

	payload := gin.H{
		"leaderboard": board,
		"rank":        rank,
		"zone":        engine.ZoneFor(rank, len(board)),
	}
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, leaderboardCacheTTL)
	utils.Success(ctx, payload)
}
