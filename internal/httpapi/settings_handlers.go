package httpapi

import (
	"encoding/json"
	"net/http"

	"leadlift-engine/internal/api"
)

type SettingsHandler struct {
	API *api.Client
}

func (h SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.API.Me(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, u)
}

type putSettingsReq struct {
	CatchallAPIKey string `json:"catchall_api_key"`
}

func (h SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req putSettingsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	u, err := h.API.UpdateMe(r.Context(), req.CatchallAPIKey)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, u)
}
