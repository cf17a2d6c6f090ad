package events

import (
	"encoding/json"
	"time"
)

// Event types relayed to the dashboard UI over /events.
const (
	TypePing          = "ping"
	TypeJobsRefreshed = "jobs_refreshed"
	TypeJobProgress   = "job_progress"
	TypeJobDeleted    = "job_deleted"
	TypeJobCancelled  = "job_cancelled"
	TypeUploadDone    = "upload_done"
	// TypeStreamClosed tells the UI that live progress updates stopped for
	// good (reconnect attempts exhausted) and it should rely on refetches.
	TypeStreamClosed = "stream_closed"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func Make(reqID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   1,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
