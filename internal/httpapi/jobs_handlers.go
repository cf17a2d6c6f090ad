package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/events"
	"leadlift-engine/internal/store"
	"leadlift-engine/internal/watch"
)

type JobsHandler struct {
	DB      *store.DB
	API     *api.Client
	Hub     *events.Hub
	Watcher *watch.Watcher
	Refresh func(ctx context.Context) error
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := store.ListJobsOpts{
		Type:   api.JobType(q.Get("type")),
		Status: api.JobStatus(q.Get("status")),
	}
	jobs, err := store.ListJobs(r.Context(), h.DB.Pool, opts)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []api.Job{}
	}
	writeJSON(w, jobs)
}

// Delete removes the job locally first (optimistic), then at the backend,
// then refetches so the cache converges on the backend's view.
func (h JobsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "missing job id")
		return
	}

	if err := store.DeleteJob(r.Context(), h.DB.Pool, id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.API.DeleteJob(r.Context(), id); err != nil {
		// local delete already happened; the refetch below restores the row
		// if the backend refused
		h.refreshAsync()
		writeDomainError(w, r, err)
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.Make(reqID, events.TypeJobDeleted, map[string]any{"id": id}))
	h.refreshAsync()
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

func (h JobsHandler) Cancel(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_id", "missing job id")
		return
	}

	if err := h.API.CancelJob(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	// optimistic local patch; the refetch validates it
	_ = store.SetJobStatus(r.Context(), h.DB.Pool, id, api.StatusCancelled)

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.Make(reqID, events.TypeJobCancelled, map[string]any{"id": id}))
	h.refreshAsync()
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

func (h JobsHandler) refreshAsync() {
	if h.Refresh == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.Refresh(ctx); err != nil {
			log.Printf("[jobs] refresh after mutation: %v", err)
		}
	}()
}
