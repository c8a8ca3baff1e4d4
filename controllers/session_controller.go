package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leaplabs/leap-server/middleware"
	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
	"github.com/leaplabs/leap-server/utils"
)

// maxSessionHistory bounds the per-user session log; older entries roll off.
const maxSessionHistory = 50

// SessionController ingests completed practice sessions. A session is the
// unit of activity: recording one feeds the ledger, the streak machine, and
// the league scores in that order.
type SessionController struct {
	stores *store.Manager
}

// NewSessionController creates a SessionController.
func NewSessionController(stores *store.Manager) *SessionController {
	return &SessionController{stores: stores}
}

type sessionQuestion struct {
	QuestionID     string `json:"question_id" binding:"required"`
	Skill          string `json:"skill" binding:"required"`
	SelectedOption string `json:"selected_option"`
	Correct        bool   `json:"correct"`
}

type sessionRequest struct {
	Mode      string            `json:"mode"`
	Duration  int               `json:"duration"`
	Effort    float64           `json:"effort"`
	Questions []sessionQuestion `json:"questions" binding:"required,min=1"`
}

// Record ingests one completed session for the authenticated user.
func (s *SessionController) Record(ctx *gin.Context) {
	var req sessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid session payload")
		return
	}

	known := map[string]bool{}
	for _, skill := range models.Skills {
		known[skill] = true
	}
	for _, q := range req.Questions {
		if !known[q.Skill] {
			utils.Error(ctx, http.StatusBadRequest, 40011, "unknown skill: "+q.Skill)
			return
		}
	}
	if req.Mode == "" {
		req.Mode = "swipe-practice"
	}
	if req.Effort <= 0 {
		req.Effort = 5
	}

	userID := middleware.UserID(ctx)
	b := bundleFor(s.stores, userID)
	st := s.stores.ForUser(userID)

	now := time.Now()
	entry := models.SessionHistoryEntry{
		ID:       uuid.NewString(),
		Date:     models.DateOf(now),
		Mode:     req.Mode,
		Duration: req.Duration,
	}

	var correct int
	for _, q := range req.Questions {
		entry.Questions = append(entry.Questions, models.SessionResult{
			QuestionID:     q.QuestionID,
			Skill:          q.Skill,
			SelectedOption: q.SelectedOption,
			Correct:        q.Correct,
			Timestamp:      now,
		})
		if q.Correct {
			correct++
		}
	}
	entry.Accuracy = float64(correct) / float64(len(req.Questions))

	ps := st.Practice()
	ps.SessionHistory = append(ps.SessionHistory, entry)
	if n := len(ps.SessionHistory); n > maxSessionHistory {
		ps.SessionHistory = ps.SessionHistory[n-maxSessionHistory:]
	}
	for _, q := range req.Questions {
		if q.Correct {
			ps.Mastered = appendUnique(ps.Mastered, q.QuestionID)
			ps.NeedsWork = remove(ps.NeedsWork, q.QuestionID)
		} else {
			ps.NeedsWork = appendUnique(ps.NeedsWork, q.QuestionID)
		}
	}
	ps.TotalSwipes += len(req.Questions)
	ps.LastSessionDate = entry.Date
	st.PutPractice(ps)

	ms, err := b.Momentum.RecordActivity(len(req.Questions), req.Effort)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
		return
	}

	// Rolling accuracy follows the league window so both surfaces agree.
	ps = st.Practice()
	ps.Accuracy = b.League.Accuracy()
	st.PutPractice(ps)

	ls := b.League.UpdatePoints()

	utils.Success(ctx, gin.H{
		"session":  entry,
		"momentum": ms,
		"league":   ls,
	})
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
