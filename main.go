package main

import (
	"time"

	"github.com/leaplabs/leap-server/config"
	"github.com/leaplabs/leap-server/models"
	"github.com/leaplabs/leap-server/routes"
	"github.com/leaplabs/leap-server/store"
	"github.com/leaplabs/leap-server/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	// The database is the optional cloud tier: without it the server still
	// runs, scoring against local snapshot files only.
	db, err := config.InitDatabase(&models.User{}, &models.StateSnapshot{})
	if err != nil {
		utils.Sugar.Warnf("database unavailable, running offline: %v", err)
	}

	stores := store.NewManager(db, cfg.StateDir, utils.ReplicateState, utils.Sugar)
	stores.StartReplication(time.Duration(cfg.SyncIntervalSec) * time.Second)
	defer stores.Close()

	r := routes.SetupRouter(db, stores)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, stores.Close); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
