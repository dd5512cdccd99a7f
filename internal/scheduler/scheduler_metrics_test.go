package scheduler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/internal/scheduler/constraints"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

func TestAggregateJobs(t *testing.T) {
	testJobs := []*schedulerobjects.Job{
		testJob("job-1", "alice", schedulerobjects.TierPro),
		testJob("job-2", "bob", schedulerobjects.TierFree),
		testJob("job-3", "alice", schedulerobjects.TierPro),
		testJob("job-4", "carol", schedulerobjects.TierMax),
		testJob("job-5", "dave", "ENTERPRISE"),
		testJob("job-6", "alice", schedulerobjects.TierPro),
	}

	actual := aggregateJobs(testJobs)

	expected := map[string]int{
		"PRO":            3,
		"FREE":           1,
		"MAX":            1,
		unknownTierLabel: 1,
	}
	assert.Equal(t, expected, actual)
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "FREE", tierLabel(schedulerobjects.TierFree))
	assert.Equal(t, "MAX", tierLabel(schedulerobjects.TierMax))
	assert.Equal(t, unknownTierLabel, tierLabel("ENTERPRISE"))
	assert.Equal(t, unknownTierLabel, tierLabel(""))
}

func TestBlockedReason(t *testing.T) {
	assert.Equal(t, blockedReasonCapacity, blockedReason(constraints.UnschedulableReasonMaximumSlotsInUse))
	assert.Equal(t, blockedReasonTenantLimit, blockedReason(constraints.UnschedulableReasonMaximumJobsForTenant))
}

func TestSchedulerMetrics_NilIsNoop(t *testing.T) {
	var metrics *SchedulerMetrics
	job := testJob("job-1", "alice", schedulerobjects.TierPro)
	metrics.ReportSubmitted(job.Tier, outcomeAdmitted)
	metrics.ReportPromoted([]*schedulerobjects.Job{job})
	metrics.ReportCompleted(job)
	metrics.ReportIgnoredCompletion(ignoredReasonUnknown)
	metrics.ReportPromotionBlocked(constraints.UnschedulableReasonMaximumSlotsInUse)
	metrics.ReportDispatchFailure()
	metrics.ReportQueueSizes(1, 2)
}

func TestSchedulerMetrics_ReportPromoted(t *testing.T) {
	metrics, err := NewSchedulerMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	job := testJob("job-1", "alice", schedulerobjects.TierPro)
	job.Submitted = testNow
	job.Started = testNow.Add(time.Minute)
	metrics.ReportPromoted([]*schedulerobjects.Job{job, testJob("job-2", "bob", schedulerobjects.TierPro)})

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.promotedJobs.WithLabelValues("PRO")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.queueWait))
}
