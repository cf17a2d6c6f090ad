package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"leadlift-engine/internal/config"
	"leadlift-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setTokenReq struct {
	Token string `json:"token"`
}

func (h SecretsHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var req setTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetToken(secrets.KeyringAccount(cfg), req.Token); err != nil {
		http.Error(w, "failed to store token: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
