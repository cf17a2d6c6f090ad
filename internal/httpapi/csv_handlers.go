package httpapi

import (
	"net/http"

	"leadlift-engine/internal/csvmap"
	"leadlift-engine/internal/upload"
)

type CSVHandler struct{}

// Inspect parses an uploaded CSV and returns headers, preview rows, the
// auto-detected column mapping and its validity for the requested mode.
// Multipart fields: file, mode (enrichment|verification, default
// enrichment). Optional column_* fields override the auto-detection before
// validity is evaluated, so the UI can re-check a manual mapping.
func (h CSVHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(upload.MaxFileBytes); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_multipart", "invalid multipart form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer file.Close()

	mode := csvmap.Mode(r.FormValue("mode"))
	if mode == "" {
		mode = csvmap.ModeEnrichment
	}

	res, err := csvmap.Inspect(file, mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if applyOverrides(&res.Mapping, r.FormValue) {
		res.Valid = csvmap.Validate(res.Mapping, res.Headers, mode)
	}

	writeJSON(w, res)
}

// applyOverrides folds column_* form fields into the mapping. An explicitly
// empty field clears the target (spec: an override back to empty can flip
// validity back to false).
func applyOverrides(m *csvmap.Mapping, form func(string) string) bool {
	targets := map[string]csvmap.Target{
		"column_first_name":   csvmap.TargetFirstName,
		"column_last_name":    csvmap.TargetLastName,
		"column_website":      csvmap.TargetWebsite,
		"column_company_size": csvmap.TargetCompanySize,
		"column_email":        csvmap.TargetEmail,
	}
	changed := false
	for field, t := range targets {
		if v := form(field); v != "" || form(field+"_clear") == "1" {
			m.Set(t, v)
			changed = true
		}
	}
	return changed
}
