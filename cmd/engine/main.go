package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/config"
	"leadlift-engine/internal/events"
	"leadlift-engine/internal/httpapi"
	"leadlift-engine/internal/scheduler"
	"leadlift-engine/internal/secrets"
	"leadlift-engine/internal/store"
	"leadlift-engine/internal/upload"
	"leadlift-engine/internal/watch"
)

func main() {
	// Engine data dir: use env if provided (the desktop shell passes one),
	// else local folder.
	dataDir := os.Getenv("LEADLIFT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// Single instance per data dir; two engines would fight over the cache.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running for %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		normalized, vr := config.NormalizeAndValidate(cfg)
		for _, warn := range vr.Warnings {
			log.Printf("[config] warning: %s", warn)
		}
		if !vr.OK() {
			return cfg, fmt.Errorf("invalid config: %v", vr.Errors)
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "leadlift.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	token := func() (string, error) {
		cur := cfgVal.Load().(config.Config)
		return secrets.Token(secrets.KeyringAccount(cur))
	}
	apiClient := api.New(cfg.Backend.BaseURL, token, api.Options{
		Timeout:    time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		RatePerSec: cfg.Backend.RatePerSec,
		Burst:      cfg.Backend.Burst,
	})

	hub := events.NewHub()
	watcher := watch.New(apiClient, db, hub, &cfgVal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go watcher.Run(ctx)
	go scheduler.Every(ctx, 12*time.Hour, "cleanup", func(context.Context) error {
		n, err := store.CleanupOldJobs(db.Pool)
		if n > 0 {
			log.Printf("[cleanup] pruned %d old jobs", n)
		}
		return err
	})

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db,
		Hub:         hub,
		API:         apiClient,
		Orch:        &upload.Orchestrator{API: apiClient},
		Watcher:     watcher,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		Refresh:     watcher.RefreshOnce,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.AccessLog,
			httpapi.Recover,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	// The desktop shell reads this file to stop the engine on app exit.
	tokenPath := filepath.Join(dataDir, "shutdown.token")
	if err := os.WriteFile(tokenPath, []byte(shutdownToken), 0o600); err != nil {
		log.Fatal(err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Printf("engine listening on http://%s (data=%s)", addr, dataDir)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
