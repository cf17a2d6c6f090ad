package upload

import (
	"context"
	"fmt"
	"io"

	"leadlift-engine/internal/api"
	"leadlift-engine/internal/csvmap"
)

// MaxFileBytes is the backend's documented upload cap (10 MiB). Enforced
// locally so an oversized file never produces a network call.
const MaxFileBytes = 10 << 20

// ValidationError is a pre-flight failure: shown inline by the UI, as
// opposed to backend rejections which arrive as *api.APIError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Request carries one upload attempt from the UI.
type Request struct {
	File     io.Reader
	Filename string
	Size     int64

	Mode    csvmap.Mode
	Mapping csvmap.Mapping
	Headers []string

	// CompanySizeOverride is the dropdown value used when no company-size
	// column is mapped (enrichment only).
	CompanySizeOverride string

	// Source is an optional provenance tag passed through to the backend.
	Source string
}

type Orchestrator struct {
	API *api.Client
}

// Submit runs the local pre-flight checks and, only if they all pass, posts
// the file to the backend. Returns the new job id.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	if err := Preflight(req); err != nil {
		return "", err
	}

	verify := req.Mode == csvmap.ModeVerification
	fields := map[string]string{}
	if verify {
		fields["column_email"] = req.Mapping.Email
		fields["column_first_name"] = req.Mapping.FirstName
		fields["column_last_name"] = req.Mapping.LastName
	} else {
		fields["column_first_name"] = req.Mapping.FirstName
		fields["column_last_name"] = req.Mapping.LastName
		fields["column_website"] = req.Mapping.Website
		fields["column_company_size"] = req.Mapping.CompanySize
		fields["company_size"] = req.CompanySizeOverride
		fields["source"] = req.Source
	}

	jobID, err := o.API.Upload(ctx, verify, req.Filename, req.File, fields)
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// Preflight is every check that must pass before the request leaves the
// machine. Errors are *ValidationError so callers can render them inline.
func Preflight(req Request) error {
	if req.Size > MaxFileBytes {
		return &ValidationError{Field: "file", Message: "file exceeds the 10 MiB upload limit"}
	}
	if !csvmap.Validate(req.Mapping, req.Headers, req.Mode) {
		return &ValidationError{Field: "mapping", Message: "required columns are not mapped"}
	}
	if req.Mode != csvmap.ModeVerification {
		if req.Mapping.CompanySize == "" && req.CompanySizeOverride == "" {
			return &ValidationError{Field: "company_size", Message: "select a company size or map a company-size column"}
		}
	}
	return nil
}
