package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentgate/agentgate/internal/scheduler/constraints"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

const (
	NAMESPACE = "agentgate"
	SUBSYSTEM = "scheduler"
)

const (
	outcomeAdmitted  = "admitted"
	outcomeQueued    = "queued"
	outcomeInvalid   = "invalid"
	outcomeDuplicate = "duplicate"

	ignoredReasonDuplicate = "duplicate"
	ignoredReasonWaiting   = "waiting"
	ignoredReasonUnknown   = "unknown"
)

const unknownTierLabel = "unknown"

const (
	// No slot is free.
	blockedReasonCapacity = "capacity"
	// A slot is free, but the tenant at the head of the queue is at its limit.
	blockedReasonTenantLimit = "tenant_limit"
)

// SchedulerMetrics is safe to use through a nil pointer, in which case nothing is recorded.
type SchedulerMetrics struct {
	// Number of submissions, by tier and admission outcome.
	submittedJobs *prometheus.CounterVec
	// Number of jobs moved from the waiting queue to the active set.
	promotedJobs *prometheus.CounterVec
	// Number of active jobs that have completed.
	completedJobs *prometheus.CounterVec
	// Number of completion notifications for jobs that weren't active.
	ignoredCompletions *prometheus.CounterVec
	// Number of promotion passes that stopped with jobs still waiting, by why the head couldn't be admitted.
	blockedPromotions *prometheus.CounterVec
	// Number of failed attempts to publish dispatch messages.
	dispatchFailures prometheus.Counter
	activeJobs       prometheus.Gauge
	waitingJobs      prometheus.Gauge
	// Time between submission and becoming active, for jobs that had to wait.
	queueWait *prometheus.HistogramVec
}

func NewSchedulerMetrics(registerer prometheus.Registerer) (*SchedulerMetrics, error) {
	submittedJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "submitted_jobs_total",
			Help:      "Number of jobs submitted, by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	promotedJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "promoted_jobs_total",
			Help:      "Number of waiting jobs promoted to active.",
		},
		[]string{"tier"},
	)

	completedJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "completed_jobs_total",
			Help:      "Number of active jobs that completed.",
		},
		[]string{"tier"},
	)

	ignoredCompletions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "ignored_completions_total",
			Help:      "Number of completion notifications for jobs that weren't active.",
		},
		[]string{"reason"},
	)

	blockedPromotions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "blocked_promotions_total",
			Help:      "Number of promotion passes that stopped at an inadmissible head of the waiting queue.",
		},
		[]string{"reason"},
	)

	dispatchFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "dispatch_failures_total",
			Help:      "Number of failed attempts to publish dispatch messages.",
		},
	)

	activeJobs := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "active_jobs",
			Help:      "Number of jobs currently holding a slot.",
		},
	)

	waitingJobs := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "waiting_jobs",
			Help:      "Number of jobs in the waiting queue.",
		},
	)

	queueWait := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Subsystem: SUBSYSTEM,
			Name:      "queue_wait_seconds",
			Help:      "Time waiting jobs spent queued before being promoted.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"tier"},
	)

	for _, collector := range []prometheus.Collector{
		submittedJobs,
		promotedJobs,
		completedJobs,
		ignoredCompletions,
		blockedPromotions,
		dispatchFailures,
		activeJobs,
		waitingJobs,
		queueWait,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return &SchedulerMetrics{
		submittedJobs:      submittedJobs,
		promotedJobs:       promotedJobs,
		completedJobs:      completedJobs,
		ignoredCompletions: ignoredCompletions,
		blockedPromotions:  blockedPromotions,
		dispatchFailures:   dispatchFailures,
		activeJobs:         activeJobs,
		waitingJobs:        waitingJobs,
		queueWait:          queueWait,
	}, nil
}

func (metrics *SchedulerMetrics) ReportSubmitted(tier schedulerobjects.Tier, outcome string) {
	if metrics == nil {
		return
	}
	metrics.submittedJobs.WithLabelValues(tierLabel(tier), outcome).Inc()
}

func (metrics *SchedulerMetrics) ReportPromoted(promoted []*schedulerobjects.Job) {
	if metrics == nil {
		return
	}
	for label, count := range aggregateJobs(promoted) {
		metrics.promotedJobs.WithLabelValues(label).Add(float64(count))
	}
	for _, job := range promoted {
		metrics.queueWait.WithLabelValues(tierLabel(job.Tier)).Observe(job.QueueDuration().Seconds())
	}
}

func (metrics *SchedulerMetrics) ReportCompleted(job *schedulerobjects.Job) {
	if metrics == nil {
		return
	}
	metrics.completedJobs.WithLabelValues(tierLabel(job.Tier)).Inc()
}

func (metrics *SchedulerMetrics) ReportIgnoredCompletion(reason string) {
	if metrics == nil {
		return
	}
	metrics.ignoredCompletions.WithLabelValues(reason).Inc()
}

// ReportPromotionBlocked records that a promotion pass stopped because the head of the queue was inadmissible
// for unschedulableReason.
func (metrics *SchedulerMetrics) ReportPromotionBlocked(unschedulableReason string) {
	if metrics == nil {
		return
	}
	metrics.blockedPromotions.WithLabelValues(blockedReason(unschedulableReason)).Inc()
}

func (metrics *SchedulerMetrics) ReportDispatchFailure() {
	if metrics == nil {
		return
	}
	metrics.dispatchFailures.Inc()
}

func (metrics *SchedulerMetrics) ReportQueueSizes(numActive, numWaiting int) {
	if metrics == nil {
		return
	}
	metrics.activeJobs.Set(float64(numActive))
	metrics.waitingJobs.Set(float64(numWaiting))
}

// aggregateJobs counts jobs by tier label.
func aggregateJobs(jobs []*schedulerobjects.Job) map[string]int {
	groups := make(map[string]int)
	for _, job := range jobs {
		groups[tierLabel(job.Tier)] += 1
	}
	return groups
}

func blockedReason(unschedulableReason string) string {
	if constraints.IsTerminalUnschedulableReason(unschedulableReason) {
		return blockedReasonCapacity
	}
	return blockedReasonTenantLimit
}

// tierLabel is the value of the tier label for tier.
// Tiers are supplied by clients, so all unrecognised tiers share one label.
func tierLabel(tier schedulerobjects.Tier) string {
	if tier.IsKnown() {
		return tier.String()
	}
	return unknownTierLabel
}
