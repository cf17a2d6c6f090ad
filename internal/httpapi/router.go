package httpapi

import (
	"net/http"
	"strings"
)

// NewMux returns the raw mux so main() can still attach /shutdown (needs
// srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Jobs
	jh := JobsHandler{DB: d.DB, API: d.API, Hub: d.Hub, Refresh: d.Refresh, Watcher: d.Watcher}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", func(w http.ResponseWriter, r *http.Request) {
		// /jobs/{id} and /jobs/{id}/cancel
		rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
		switch {
		case strings.HasSuffix(rest, "/cancel") && r.Method == http.MethodPost:
			jh.Cancel(w, r, strings.TrimSuffix(rest, "/cancel"))
		case !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
			jh.Delete(w, r, rest)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// CSV inspection (mapping preview)
	csvh := CSVHandler{}
	mux.HandleFunc("/csv/inspect", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: csvh.Inspect,
	}))

	// Uploads
	uh := UploadHandler{Orch: d.Orch, Hub: d.Hub, Refresh: d.Refresh}
	mux.HandleFunc("/upload", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: uh.Enrich,
	}))
	mux.HandleFunc("/upload-verify", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: uh.Verify,
	}))

	// Stats
	sth := StatsHandler{DB: d.DB}
	mux.HandleFunc("/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sth.Get,
	}))

	// Account settings (passthrough to /users/me)
	seth := SettingsHandler{API: d.API}
	mux.HandleFunc("/settings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: seth.Get,
		http.MethodPut: seth.Put,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/token", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetToken,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// Watcher status
	wh := WatchHandler{Watcher: d.Watcher}
	mux.HandleFunc("/watch/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: wh.Status,
	}))

	// SSE relay to the UI
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health
	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
