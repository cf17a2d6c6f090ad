package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/csvmap"
	"leadlift-engine/internal/upload"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeDomainError maps the error taxonomy onto HTTP statuses the UI keys
// off: pre-flight validation → 400 inline, CSV parse → 422, backend
// rejection → the backend's status with its message (modal path), anything
// else → 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		WriteError(w, r, http.StatusBadRequest, "validation_"+verr.Field, verr.Message)
		return
	}
	if errors.Is(err, csvmap.ErrParse) {
		WriteError(w, r, http.StatusUnprocessableEntity, "csv_parse", err.Error())
		return
	}
	var aerr *api.APIError
	if errors.As(err, &aerr) {
		status := aerr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		WriteError(w, r, status, "backend", aerr.Message)
		return
	}
	WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
}
