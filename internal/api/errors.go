package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is a non-2xx backend response. Message is the backend's own
// `message` field when it sent one, otherwise a generic fallback, so the UI
// never shows a raw status line.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Detail
		}
	}
	if strings.TrimSpace(msg) == "" {
		msg = "request failed, please try again"
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
