package watch

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/config"
	"leadlift-engine/internal/events"
	"leadlift-engine/internal/scheduler"
	"leadlift-engine/internal/store"
	"leadlift-engine/internal/stream"
)

// Status is the watcher snapshot the UI polls alongside the job list.
type Status struct {
	LastRefreshAt string `json:"last_refresh_at"`
	LastOkAt      string `json:"last_ok_at"`
	LastError     string `json:"last_error"`
	WatchingJobID string `json:"watching_job_id"`
	StreamAlive   bool   `json:"stream_alive"`
}

// Watcher keeps the job cache fresh and owns the single live progress
// stream, attached to the first job currently in processing status. Stream
// events are merged into the cache and fanned out on the hub; refetches are
// authoritative, so either ordering of patch and refetch converges.
type Watcher struct {
	API    *api.Client
	DB     *store.DB
	Hub    *events.Hub
	CfgVal *atomic.Value // stores config.Config

	status atomic.Value // stores Status

	mu       sync.Mutex
	cur      *stream.Client
	curJobID string
}

func New(apiClient *api.Client, db *store.DB, hub *events.Hub, cfgVal *atomic.Value) *Watcher {
	w := &Watcher{API: apiClient, DB: db, Hub: hub, CfgVal: cfgVal}
	w.status.Store(Status{})
	return w
}

func (w *Watcher) Status() Status {
	return w.status.Load().(Status)
}

// Run blocks until ctx is cancelled, refetching on the configured interval.
func (w *Watcher) Run(ctx context.Context) {
	cfg := w.CfgVal.Load().(config.Config)
	interval := time.Duration(cfg.Watch.RefreshSeconds) * time.Second

	scheduler.Every(ctx, interval, "watch", w.RefreshOnce)

	w.mu.Lock()
	if w.cur != nil {
		w.cur.Close()
		w.cur = nil
	}
	w.mu.Unlock()
}

// RefreshOnce refetches both job lists concurrently, replaces the cache,
// notifies the UI and re-evaluates which job the stream should track.
func (w *Watcher) RefreshOnce(ctx context.Context) error {
	st := w.Status()
	st.LastRefreshAt = time.Now().Format(time.RFC3339)

	g, gctx := errgroup.WithContext(ctx)
	for _, typ := range []api.JobType{api.TypeEnrichment, api.TypeVerification} {
		typ := typ
		g.Go(func() error {
			jobs, err := w.API.ListJobs(gctx, typ)
			if err != nil {
				return err
			}
			return store.ReplaceJobs(gctx, w.DB.Pool, typ, jobs)
		})
	}

	if err := g.Wait(); err != nil {
		st.LastError = err.Error()
		w.status.Store(st)
		return err
	}

	st.LastError = ""
	st.LastOkAt = time.Now().Format(time.RFC3339)
	w.status.Store(st)

	w.Hub.Publish(events.Make("", events.TypeJobsRefreshed, nil))
	w.ensureStream(ctx)
	return nil
}

// ensureStream attaches the stream to the first processing job, switching
// (close old, open new) when the target changes and closing when nothing is
// in flight.
func (w *Watcher) ensureStream(ctx context.Context) {
	jobs, err := store.ListJobs(ctx, w.DB.Pool, store.ListJobsOpts{Status: api.StatusProcessing, Limit: 1})
	if err != nil {
		log.Printf("[watch] list processing jobs: %v", err)
		return
	}

	target := ""
	if len(jobs) > 0 {
		target = jobs[0].ID
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Drop the handle if the stream already ended on its own.
	if w.cur != nil {
		select {
		case <-w.cur.Done():
			w.cur = nil
			w.curJobID = ""
		default:
		}
	}

	if target == w.curJobID && w.cur != nil {
		return
	}

	if w.cur != nil {
		w.cur.Close()
		w.cur = nil
		w.curJobID = ""
	}
	if target == "" {
		w.setWatching("", false)
		return
	}

	url, err := w.API.StreamURL(target)
	if err != nil {
		log.Printf("[watch] stream url for %s: %v", target, err)
		return
	}

	cfg := w.CfgVal.Load().(config.Config)
	jobID := target
	c := stream.New(url, stream.Options{
		MaxAttempts: cfg.Watch.StreamAttempts,
		OnMessage:   func(p api.JobProgress) { w.onProgress(p) },
		OnError:     func(err error) { log.Printf("[watch] stream %s: %v", jobID, err) },
		OnClosed: func() {
			w.Hub.Publish(events.Make("", events.TypeStreamClosed, map[string]any{"job_id": jobID}))
			w.setWatching("", false)
		},
	})
	c.Start()

	w.cur = c
	w.curJobID = target
	w.setWatching(target, true)
	log.Printf("[watch] tracking job %s", target)
}

func (w *Watcher) onProgress(p api.JobProgress) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.ApplyProgress(ctx, w.DB.Pool, p); err != nil {
		log.Printf("[watch] apply progress: %v", err)
	}
	w.Hub.Publish(events.Make("", events.TypeJobProgress, p))
}

func (w *Watcher) setWatching(jobID string, alive bool) {
	st := w.Status()
	st.WatchingJobID = jobID
	st.StreamAlive = alive
	w.status.Store(st)
}
