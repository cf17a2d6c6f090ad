package httpapi

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"leadlift-engine/internal/csvmap"
	"leadlift-engine/internal/events"
	"leadlift-engine/internal/upload"
)

type UploadHandler struct {
	Orch    *upload.Orchestrator
	Hub     *events.Hub
	Refresh func(ctx context.Context) error
}

func (h UploadHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, csvmap.ModeEnrichment)
}

func (h UploadHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, csvmap.ModeVerification)
}

// handle reads the UI's multipart form, rebuilds the mapping against the
// file's real headers, runs the pre-flight checks and forwards to the
// backend. The whole file is buffered: it has to fit in 10 MiB anyway, and
// we read it twice (header check + forward).
func (h UploadHandler) handle(w http.ResponseWriter, r *http.Request, mode csvmap.Mode) {
	if err := r.ParseMultipartForm(upload.MaxFileBytes + 1); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_multipart", "invalid multipart form: "+err.Error())
		return
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(file, upload.MaxFileBytes+1))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "read_file", err.Error())
		return
	}

	res, err := csvmap.Inspect(bytes.NewReader(buf.Bytes()), mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	mapping := res.Mapping
	applyOverrides(&mapping, r.FormValue)

	req := upload.Request{
		File:                bytes.NewReader(buf.Bytes()),
		Filename:            hdr.Filename,
		Size:                n,
		Mode:                mode,
		Mapping:             mapping,
		Headers:             res.Headers,
		CompanySizeOverride: r.FormValue("company_size"),
		Source:              r.FormValue("source"),
	}

	jobID, err := h.Orch.Submit(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.Make(reqID, events.TypeUploadDone, map[string]any{"job_id": jobID}))

	if h.Refresh != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.Refresh(ctx); err != nil {
				log.Printf("[upload] refresh after upload: %v", err)
			}
		}()
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"job_id": jobID})
}
