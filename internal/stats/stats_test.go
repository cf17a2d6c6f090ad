package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leadlift-engine/internal/api"
)

func TestTotalsArePureFunctionsOfTheList(t *testing.T) {
	jobs := []api.Job{
		{ValidEmailsFound: 3, CatchallEmailsFound: 2, CostInCredits: 10},
		{ValidEmailsFound: 1, CatchallEmailsFound: 0, CostInCredits: 5},
	}

	assert.Equal(t, 6, TotalVerified(jobs))
	assert.InDelta(t, 1.5, TotalCost(jobs), 1e-9)

	// same inputs, same outputs
	assert.Equal(t, 6, TotalVerified(jobs))
	assert.InDelta(t, 1.5, TotalCost(jobs), 1e-9)
}

func TestAvgProcessingMinutes(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	done10 := base.Add(10 * time.Minute)
	done30 := base.Add(30 * time.Minute)

	jobs := []api.Job{
		{Status: api.StatusCompleted, CreatedAt: base, CompletedAt: &done10},
		{Status: api.StatusCompleted, CreatedAt: base, CompletedAt: &done30},
		// excluded: not completed
		{Status: api.StatusProcessing, CreatedAt: base, CompletedAt: &done30},
		// excluded: missing completion stamp
		{Status: api.StatusCompleted, CreatedAt: base},
	}

	assert.InDelta(t, 20.0, AvgProcessingMinutes(jobs), 1e-9)
}

func TestAvgProcessingMinutesEmpty(t *testing.T) {
	assert.Zero(t, AvgProcessingMinutes(nil))
	assert.Zero(t, AvgProcessingMinutes([]api.Job{{Status: api.StatusFailed}}))
}

func TestSummarize(t *testing.T) {
	jobs := []api.Job{
		{ValidEmailsFound: 3, CatchallEmailsFound: 2, CostInCredits: 10},
		{ValidEmailsFound: 1, CatchallEmailsFound: 0, CostInCredits: 5},
	}
	s := Summarize(jobs)
	assert.Equal(t, 2, s.TotalJobs)
	assert.Equal(t, 6, s.TotalVerified)
	assert.InDelta(t, 1.5, s.TotalCost, 1e-9)
	assert.Zero(t, s.AvgProcessingMinutes)
}
