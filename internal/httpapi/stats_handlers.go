package httpapi

import (
	"net/http"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/stats"
	"leadlift-engine/internal/store"
)

type StatsHandler struct {
	DB *store.DB
}

// Get recomputes the summary from the cached job list on every call; there
// is nothing to invalidate.
func (h StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobs, err := store.ListJobs(r.Context(), h.DB.Pool, store.ListJobsOpts{
		Type: api.JobType(r.URL.Query().Get("type")),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, stats.Summarize(jobs))
}
