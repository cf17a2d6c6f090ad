package api

import "time"

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

type JobType string

const (
	TypeEnrichment   JobType = "enrichment"
	TypeVerification JobType = "verification"
)

// Job is the backend's job record. The engine keeps a write-through cache of
// these in sqlite; the backend stays authoritative.
type Job struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Status              JobStatus  `json:"status"`
	JobType             JobType    `json:"job_type"`
	TotalLeads          int        `json:"total_leads"`
	ProcessedLeads      int        `json:"processed_leads"`
	ValidEmailsFound    int        `json:"valid_emails_found"`
	CatchallEmailsFound int        `json:"catchall_emails_found"`
	CostInCredits       int        `json:"cost_in_credits"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// JobProgress is one event from the per-job progress stream. Never persisted
// as-is; merged into the cached Job keyed by JobID.
type JobProgress struct {
	JobID               string    `json:"job_id"`
	ProcessedLeads      int       `json:"processed_leads"`
	TotalLeads          int       `json:"total_leads"`
	ValidEmailsFound    int       `json:"valid_emails_found"`
	CatchallEmailsFound int       `json:"catchall_emails_found"`
	Status              JobStatus `json:"status"`
	ProgressPercentage  float64   `json:"progress_percentage"`
}

// Merge patches j with p. Idempotent: applying the same progress twice, or a
// progress event before/after an equally fresh refetch, converges to the
// same job state.
func (j *Job) Merge(p JobProgress) {
	if p.JobID != j.ID {
		return
	}
	j.ProcessedLeads = p.ProcessedLeads
	j.TotalLeads = p.TotalLeads
	j.ValidEmailsFound = p.ValidEmailsFound
	j.CatchallEmailsFound = p.CatchallEmailsFound
	if p.Status != "" {
		j.Status = p.Status
	}
}

// User mirrors GET /users/me. CatchallAPIKey is the only field the engine
// ever writes back (PATCH /users/me).
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Credits        int    `json:"credits"`
	CatchallAPIKey string `json:"catchall_api_key"`
}
