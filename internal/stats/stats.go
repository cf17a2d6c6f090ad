package stats

import (
	"time"

	"leadlift-engine/internal/api"
)

// creditPrice converts backend credits to account currency.
const creditPrice = 0.1

// Summary is the derived, read-only aggregation the dashboard renders.
// Pure function of the job list; recomputed on demand, never stored.
type Summary struct {
	TotalJobs            int     `json:"total_jobs"`
	TotalVerified        int     `json:"total_verified"`
	TotalCost            float64 `json:"total_cost"`
	AvgProcessingMinutes float64 `json:"avg_processing_minutes"`
}

func Summarize(jobs []api.Job) Summary {
	return Summary{
		TotalJobs:            len(jobs),
		TotalVerified:        TotalVerified(jobs),
		TotalCost:            TotalCost(jobs),
		AvgProcessingMinutes: AvgProcessingMinutes(jobs),
	}
}

// TotalVerified sums valid and catchall hits across all jobs.
func TotalVerified(jobs []api.Job) int {
	n := 0
	for _, j := range jobs {
		n += j.ValidEmailsFound + j.CatchallEmailsFound
	}
	return n
}

// TotalCost is the credit spend across all jobs, priced at creditPrice.
func TotalCost(jobs []api.Job) float64 {
	var c float64
	for _, j := range jobs {
		c += float64(j.CostInCredits) * creditPrice
	}
	return c
}

// AvgProcessingMinutes is the mean completed_at−created_at in minutes over
// completed jobs that carry both timestamps. Zero when no job qualifies.
func AvgProcessingMinutes(jobs []api.Job) float64 {
	var total time.Duration
	n := 0
	for _, j := range jobs {
		if j.Status != api.StatusCompleted || j.CompletedAt == nil || j.CreatedAt.IsZero() {
			continue
		}
		total += j.CompletedAt.Sub(j.CreatedAt)
		n++
	}
	if n == 0 {
		return 0
	}
	return total.Minutes() / float64(n)
}
