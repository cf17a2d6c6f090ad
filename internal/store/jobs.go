package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"leadlift-engine/internal/api"
)

// The jobs table is a write-through cache of the backend's job list: the
// refetch replaces whole slices, progress events patch rows in place, and
// the backend stays authoritative either way.

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  job_type TEXT NOT NULL,
  total_leads INTEGER NOT NULL DEFAULT 0,
  processed_leads INTEGER NOT NULL DEFAULT 0,
  valid_emails_found INTEGER NOT NULL DEFAULT 0,
  catchall_emails_found INTEGER NOT NULL DEFAULT 0,
  cost_in_credits INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  completed_at TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_jobs_type_created
ON jobs(job_type, created_at DESC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceJobs swaps the cached list for one job type with a fresh fetch.
func ReplaceJobs(ctx context.Context, db *sql.DB, typ api.JobType, jobs []api.Job) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE job_type = ?;`, string(typ)); err != nil {
		return fmt.Errorf("clear %s jobs: %w", typ, err)
	}

	for _, j := range jobs {
		completed := ""
		if j.CompletedAt != nil {
			completed = j.CompletedAt.UTC().Format(time.RFC3339)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO jobs
  (id, user_id, status, job_type, total_leads, processed_leads,
   valid_emails_found, catchall_emails_found, cost_in_credits, created_at, completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?);`,
			j.ID, j.UserID, string(j.Status), string(j.JobType),
			j.TotalLeads, j.ProcessedLeads, j.ValidEmailsFound, j.CatchallEmailsFound,
			j.CostInCredits, j.CreatedAt.UTC().Format(time.RFC3339), completed,
		); err != nil {
			return fmt.Errorf("insert job %s: %w", j.ID, err)
		}
	}
	return tx.Commit()
}

// ApplyProgress patches one cached job from a stream event. Idempotent:
// re-applying the same event is a no-op, and an unknown job id is ignored
// (the next refetch will bring it in).
func ApplyProgress(ctx context.Context, db *sql.DB, p api.JobProgress) error {
	_, err := db.ExecContext(ctx, `
UPDATE jobs SET
  processed_leads = ?,
  total_leads = ?,
  valid_emails_found = ?,
  catchall_emails_found = ?,
  status = CASE WHEN ? != '' THEN ? ELSE status END
WHERE id = ?;`,
		p.ProcessedLeads, p.TotalLeads, p.ValidEmailsFound, p.CatchallEmailsFound,
		string(p.Status), string(p.Status), p.JobID,
	)
	if err != nil {
		return fmt.Errorf("apply progress %s: %w", p.JobID, err)
	}
	return nil
}

// SetJobStatus is the optimistic local patch behind cancel: status only,
// counts untouched.
func SetJobStatus(ctx context.Context, db *sql.DB, id string, status api.JobStatus) error {
	_, err := db.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE id = ?;`, string(status), id)
	return err
}

func DeleteJob(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?;`, id)
	return err
}

type ListJobsOpts struct {
	Type   api.JobType // empty = both
	Status api.JobStatus
	Limit  int
}

func ListJobs(ctx context.Context, db *sql.DB, opts ListJobsOpts) ([]api.Job, error) {
	if opts.Limit <= 0 {
		opts.Limit = 1000
	}

	query := `
SELECT id, user_id, status, job_type, total_leads, processed_leads,
       valid_emails_found, catchall_emails_found, cost_in_credits, created_at, completed_at
FROM jobs`
	var args []any
	where := ""
	if opts.Type != "" {
		where = " WHERE job_type = ?"
		args = append(args, string(opts.Type))
	}
	if opts.Status != "" {
		if where == "" {
			where = " WHERE status = ?"
		} else {
			where += " AND status = ?"
		}
		args = append(args, string(opts.Status))
	}
	query += where + `
ORDER BY created_at DESC
LIMIT ?;`
	args = append(args, opts.Limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.Job
	for rows.Next() {
		var j api.Job
		var status, typ, created, completed string
		if err := rows.Scan(
			&j.ID, &j.UserID, &status, &typ,
			&j.TotalLeads, &j.ProcessedLeads, &j.ValidEmailsFound, &j.CatchallEmailsFound,
			&j.CostInCredits, &created, &completed,
		); err != nil {
			return nil, err
		}
		j.Status = api.JobStatus(status)
		j.JobType = api.JobType(typ)
		j.CreatedAt, _ = time.Parse(time.RFC3339, created)
		if completed != "" {
			if t, err := time.Parse(time.RFC3339, completed); err == nil {
				j.CompletedAt = &t
			}
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CleanupOldJobs drops terminal jobs older than six months from the cache.
// created_at is RFC3339 text; datetime() normalizes it so the comparison
// against sqlite's space-separated format holds below date granularity too.
func CleanupOldJobs(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM jobs
WHERE status IN ('completed','failed','cancelled')
  AND datetime(created_at) < datetime('now', '-6 months');
`)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
