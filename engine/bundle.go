package engine

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/leaplabs/leap-server/store"
)

// Bundle groups the per-user engines around one store and one bus. Building
// a bundle runs the momentum day-transition check, so handlers get accurate
// pause status on read-only requests too.
type Bundle struct {
	Bus          *Bus
	Momentum     *Momentum
	League       *League
	Achievements *Achievements
}

// NewBundle wires the engines for one user's store.
func NewBundle(st *store.Store, clock Clock, log *zap.SugaredLogger) *Bundle {
	bus := NewBus()
	ach := NewAchievements(st, clock, bus, log)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Bundle{
		Bus:          bus,
		Momentum:     NewMomentum(st, clock, bus, log),
		League:       NewLeague(st, clock, bus, rng, log),
		Achievements: ach,
	}
}
