package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus errors/warnings the UI
// can render next to the config form.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(out.Backend.BaseURL), "/")
	out.Upload.DefaultMode = strings.ToLower(strings.TrimSpace(out.Upload.DefaultMode))

	// ---- defaults ----
	if out.App.Port == 0 {
		out.App.Port = 38471
	}
	if out.Backend.TimeoutSeconds == 0 {
		out.Backend.TimeoutSeconds = 30
	}
	if out.Backend.RatePerSec == 0 {
		out.Backend.RatePerSec = 5
	}
	if out.Backend.Burst == 0 {
		out.Backend.Burst = 5
	}
	if out.Upload.DefaultMode == "" {
		out.Upload.DefaultMode = "enrichment"
	}
	if out.Upload.MaxFileMiB == 0 {
		out.Upload.MaxFileMiB = 10
	}
	if out.Watch.RefreshSeconds == 0 {
		out.Watch.RefreshSeconds = 30
	}
	if out.Watch.StreamAttempts == 0 {
		out.Watch.StreamAttempts = 5
	}

	// ---- validation ----
	if out.App.Port < 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.Backend.BaseURL == "" {
		res.addErr("backend.base_url is required")
	} else if u, err := url.Parse(out.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("backend.base_url must be an absolute URL")
	} else if u.Scheme != "https" && u.Host != "localhost" && !strings.HasPrefix(u.Host, "127.0.0.1") {
		res.addWarn("backend.base_url is not https; the auth token will travel in the clear")
	}
	if out.Backend.TimeoutSeconds < 0 {
		res.addErr("backend.timeout_seconds must be >= 0")
	}
	if out.Backend.RatePerSec < 0 {
		res.addErr("backend.rate_per_sec must be >= 0")
	}
	if out.Upload.DefaultMode != "enrichment" && out.Upload.DefaultMode != "verification" {
		res.addErr("upload.default_mode must be enrichment or verification")
	}
	if out.Upload.MaxFileMiB > 10 {
		// the backend rejects anything bigger, so a larger local cap only
		// wastes a round trip
		res.addWarn("upload.max_file_mib is capped at 10 by the backend; clamping")
		out.Upload.MaxFileMiB = 10
	}
	if out.Watch.RefreshSeconds < 5 {
		res.addWarn("watch.refresh_seconds below 5 may rate-limit you against the backend")
	}
	if out.Watch.StreamAttempts > 10 {
		res.addWarn("watch.stream_attempts above 10 keeps dead streams around a long time")
	}

	return out, res
}
