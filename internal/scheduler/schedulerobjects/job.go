package schedulerobjects

import "time"

// Job describes one unit of work (one browser-agent session) and the tenant it runs for.
// All fields other than Priority, Submitted and Started are fixed by the caller and never mutated by the scheduler.
type Job struct {
	// Caller supplied unique identifier.
	Id string
	// The account the job is submitted on behalf of; the unit of per-tenant fairness.
	TenantId string
	// Identifier of the work's target. Opaque to the scheduler.
	TargetId string
	// Service tier of the tenant.
	Tier Tier
	// Informational only; never used for admission.
	EstimatedDurationMinutes float64
	// Set once, when the work was first submitted by the user. Drives the wait-age boost.
	CreatedAt time.Time
	// Effective priority, assigned when the job is placed in the waiting queue. Lower is scheduled first.
	// Meaningless while the job is active.
	Priority float64
	// When the scheduler accepted the job.
	Submitted time.Time
	// When the job became active. Zero while waiting.
	Started time.Time
}

// DeepCopy returns a copy of job. Job holds no reference types, so a shallow copy suffices.
func (job *Job) DeepCopy() *Job {
	if job == nil {
		return nil
	}
	copied := *job
	return &copied
}

// QueueDuration is how long the job waited between submission and becoming active.
// Zero if the job has not started.
func (job *Job) QueueDuration() time.Duration {
	if job.Started.IsZero() || job.Submitted.IsZero() {
		return 0
	}
	return job.Started.Sub(job.Submitted)
}
