package httpapi

import (
	"net/http"

	"leadlift-engine/internal/watch"
)

type WatchHandler struct {
	Watcher *watch.Watcher
}

func (h WatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Watcher.Status())
}
