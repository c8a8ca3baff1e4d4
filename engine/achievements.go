package engine

import (
	"go.uber.org/zap"

	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/store"
)

// Achievements listens on the event bus and appends unlocked badges to the
// profile. Each badge unlocks at most once.
type Achievements struct {
	store *store.Store
	clock Clock
	log   *zap.SugaredLogger
}

// NewAchievements wires the engine onto the bus and returns it.
func NewAchievements(st *store.Store, clock Clock, bus *Bus, log *zap.SugaredLogger) *Achievements {
	a := &Achievements{store: st, clock: clock, log: log}
	bus.Subscribe(a.handle)
	return a
}

func (a *Achievements) handle(e Event) {
	switch ev := e.(type) {
	case MomentumUpdated:
		ms := a.store.Momentum()
		if ms.TotalDaysActive == 1 {
			a.unlock("first-steps", "First Steps", "Completed your first day of practice")
		}
		if ms.Streak >= 7 {
			a.unlock("week-streak", "Habit Builder", "Practiced 7 days in a row")
		}
		if ev.Score >= 70 {
			a.unlock("high-momentum", "On Fire", "Reached a momentum score of 70")
		}
	case StreakResumed:
		a.unlock("comeback", "Comeback", "Resumed a paused streak")
	case LeagueChanged:
		if ev.Promoted {
			a.unlock("promoted-"+ev.NewLeague, "Promoted", "Advanced to the "+ev.NewLeague+" league")
		}
	case StreakPaused:
		// Pauses never unlock anything.
	}
}

func (a *Achievements) unlock(id, name, description string) {
	profile := a.store.Profile()
	for _, ach := range profile.Achievements {
		if ach.ID == id {
			return
		}
	}
	profile.Achievements = append(profile.Achievements, models.Achievement{
		ID:          id,
		Name:        name,
		Description: description,
		UnlockedAt:  a.clock.Now(),
	})
	a.store.PutProfile(profile)
	if a.log != nil {
		a.log.Infow("achievement unlocked", "id", id)
	}
}
