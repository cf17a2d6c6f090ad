package csvmap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Mode selects which semantic columns an upload must provide.
type Mode string

const (
	ModeEnrichment   Mode = "enrichment"
	ModeVerification Mode = "verification"
)

// Target is a semantic column the backend understands.
type Target string

const (
	TargetFirstName   Target = "first_name"
	TargetLastName    Target = "last_name"
	TargetWebsite     Target = "website"
	TargetCompanySize Target = "company_size"
	TargetEmail       Target = "email"
)

// synonyms maps each target to the normalized header spellings it accepts.
// Keep entries normalized (lowercase, no spaces/underscores/hyphens).
var synonyms = map[Target][]string{
	TargetFirstName:   {"firstname", "first", "fname", "givenname", "forename"},
	TargetLastName:    {"lastname", "last", "lname", "surname", "familyname"},
	TargetWebsite:     {"website", "domain", "companywebsite", "companydomain", "url", "companyurl"},
	TargetCompanySize: {"companysize", "size", "employees", "employeecount", "headcount"},
	TargetEmail:       {"email", "emailaddress", "mail", "workemail"},
}

// detectionOrder keeps auto-detection deterministic across targets.
var detectionOrder = []Target{TargetFirstName, TargetLastName, TargetWebsite, TargetCompanySize, TargetEmail}

// RequiredTargets returns the columns that must be mapped before an upload
// in the given mode may leave the machine.
func RequiredTargets(mode Mode) []Target {
	if mode == ModeVerification {
		return []Target{TargetEmail}
	}
	return []Target{TargetFirstName, TargetLastName, TargetWebsite}
}

// Mapping holds, per target, either "" (unmapped) or the literal header
// string found in the uploaded file.
type Mapping struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Website     string `json:"website"`
	CompanySize string `json:"company_size"`
	Email       string `json:"email"`
}

func (m Mapping) Get(t Target) string {
	switch t {
	case TargetFirstName:
		return m.FirstName
	case TargetLastName:
		return m.LastName
	case TargetWebsite:
		return m.Website
	case TargetCompanySize:
		return m.CompanySize
	case TargetEmail:
		return m.Email
	}
	return ""
}

func (m *Mapping) Set(t Target, header string) {
	switch t {
	case TargetFirstName:
		m.FirstName = header
	case TargetLastName:
		m.LastName = header
	case TargetWebsite:
		m.Website = header
	case TargetCompanySize:
		m.CompanySize = header
	case TargetEmail:
		m.Email = header
	}
}

// ErrParse marks a malformed CSV, as opposed to a merely empty one.
var ErrParse = errors.New("malformed csv")

const previewRows = 5

// Result is everything the UI needs to render the mapping step.
type Result struct {
	Headers []string            `json:"headers"`
	Preview []map[string]string `json:"preview"`
	Mapping Mapping             `json:"mapping"`
	Valid   bool                `json:"valid"`
}

// Inspect parses a CSV with a header row, auto-detects the column mapping
// and reports validity for the given mode. An empty file is not an error: it
// yields no headers, no preview and an invalid mapping.
func Inspect(r io.Reader, mode Mode) (Result, error) {
	var res Result

	cr := csv.NewReader(r)
	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrParse, err)
	}

	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	res.Headers = headers

	for len(res.Preview) < previewRows {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		res.Preview = append(res.Preview, row)
	}

	res.Mapping = AutoDetect(headers)
	res.Valid = Validate(res.Mapping, headers, mode)
	return res, nil
}

// AutoDetect guesses a mapping from header names. For each target the first
// header (in original column order) whose normalized form matches a synonym
// wins; targets with no match stay empty. Also accepts the target's own
// name, so "Company Size" maps without a synonym entry.
func AutoDetect(headers []string) Mapping {
	var m Mapping
	for _, t := range detectionOrder {
		for _, h := range headers {
			if matchesTarget(t, h) {
				m.Set(t, h)
				break
			}
		}
	}
	return m
}

func matchesTarget(t Target, header string) bool {
	n := normalizeHeader(header)
	if n == "" {
		return false
	}
	if n == normalizeHeader(string(t)) {
		return true
	}
	// Containment, not just equality, so "Full First" still lands on
	// first_name and "Work Email Address" on email.
	for _, s := range synonyms[t] {
		if n == s || strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// normalizeHeader lowercases and strips whitespace, underscores and hyphens
// so "Company_Website", "company-website" and "Company Website" collide.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '_', '-':
			return -1
		}
		return r
	}, s)
}

// Validate reports whether every required target for the mode maps to a
// non-empty header that actually exists in the file. Re-run after every
// manual override.
func Validate(m Mapping, headers []string, mode Mode) bool {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[h] = true
	}
	for _, t := range RequiredTargets(mode) {
		h := m.Get(t)
		if h == "" || !have[h] {
			return false
		}
	}
	return true
}
