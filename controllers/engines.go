package controllers

import (
	"github.com/leaplabs/leap-server/engine"
	"github.com/leaplabs/leap-server/store"
	"github.com/leaplabs/leap-server/utils"
)

// bundleFor loads the user's store and wires a fresh engine bundle around
// it. Rebuilding per request keeps the bundle stateless and runs the
// day-transition check, so a streak that lapsed overnight reads as paused
// on the very next request.
func bundleFor(stores *store.Manager, userID uint) *engine.Bundle {
	st := stores.ForUser(userID)
	return engine.NewBundle(st, engine.SystemClock(), utils.Sugar)
}
