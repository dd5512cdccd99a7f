package scheduler

import (
	"math"
	"time"

	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

const (
	// Subtracted from the priority of FREE jobs submitted outside every peak window.
	offPeakBoost = 0.5
	// Priority reduction per hour a job has existed.
	ageBoostPerHour = 0.1
	// Upper bound of the age boost, reached after ten hours.
	maxAgeBoost = 1.0
)

// EffectivePriority returns the priority a job is queued with if it's placed in the waiting queue at now.
// Lower values are scheduled first. The result isn't clamped and may be negative.
func EffectivePriority(config configuration.SchedulingConfig, job *schedulerobjects.Job, now time.Time) float64 {
	priority := config.BasePriority(job.Tier)
	if job.Tier == schedulerobjects.TierFree && !config.IsPeakHour(now.UTC().Hour()) {
		priority -= offPeakBoost
	}
	return priority - AgeBoost(now.Sub(job.CreatedAt))
}

// AgeBoost is the priority reduction earned by a job of the given age.
// Negative ages, e.g., due to clock skew between submitter and scheduler, earn nothing.
func AgeBoost(age time.Duration) float64 {
	if age <= 0 {
		return 0
	}
	return math.Min(age.Hours()*ageBoostPerHour, maxAgeBoost)
}
