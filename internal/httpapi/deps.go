package httpapi

import (
	"context"
	"sync/atomic"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/config"
	"leadlift-engine/internal/events"
	"leadlift-engine/internal/store"
	"leadlift-engine/internal/upload"
	"leadlift-engine/internal/watch"
)

type Deps struct {
	DB  *store.DB
	Hub *events.Hub
	API *api.Client

	Orch    *upload.Orchestrator
	Watcher *watch.Watcher

	// Atomic store, shared with main and the watcher.
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Refresh pulls the job list after a mutating call (inject for tests).
	Refresh func(ctx context.Context) error
}
