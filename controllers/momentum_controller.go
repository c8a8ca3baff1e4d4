package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leaplabs/leap-server/middleware"
	"github.com/leaplabs/leap-server/store"
	"github.com/leaplabs/leap-server/utils"
)

// MomentumController exposes the momentum score, streak, and coaching
// endpoints.
type MomentumController struct {
	stores *store.Manager
}

// NewMomentumController creates a MomentumController.
func NewMomentumController(stores *store.Manager) *MomentumController {
	return &MomentumController{stores: stores}
}

// Get returns the current momentum state with a freshly computed score.
// Building the bundle runs the day-transition check, so a lapsed streak
// reads as paused here without any write from the client.
func (m *MomentumController) Get(ctx *gin.Context) {
	userID := middleware.UserID(ctx)
	b := bundleFor(m.stores, userID)
	st := m.stores.ForUser(userID)

	ms := st.Momentum()
	ms.Score = b.Momentum.Score()

	utils.Success(ctx, ms)
}

// RecordActivity logs a raw activity ping outside of a full session, for
// clients that track lightweight actions like vocabulary reviews.
func (m *MomentumController) RecordActivity(ctx *gin.Context) {
	var req struct {
		Actions int     `json:"actions" binding:"required"`
		Effort  float64 `json:"effort"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid activity payload")
		return
	}

	userID := middleware.UserID(ctx)
	b := bundleFor(m.stores, userID)

	ms, err := b.Momentum.RecordActivity(req.Actions, req.Effort)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
		return
	}

	// Activity moves consistency, so league points follow.
	ls := b.League.UpdatePoints()

	utils.Success(ctx, gin.H{
		"momentum": ms,
		"league":   ls,
	})
}

// DailyAction returns today's recommended session.
func (m *MomentumController) DailyAction(ctx *gin.Context) {
	b := bundleFor(m.stores, middleware.UserID(ctx))
	utils.Success(ctx, b.Momentum.RecommendDailyAction())
}

// Insights returns coaching messages derived from the momentum state.
func (m *MomentumController) Insights(ctx *gin.Context) {
	b := bundleFor(m.stores, middleware.UserID(ctx))
	utils.Success(ctx, gin.H{"insights": b.Momentum.Insights()})
}
