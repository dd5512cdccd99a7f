package schedulerobjects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierFree, ParseTier("free"))
	assert.Equal(t, TierPro, ParseTier(" Pro "))
	assert.Equal(t, TierMax, ParseTier("MAX"))
	assert.Equal(t, Tier("ENTERPRISE"), ParseTier("enterprise"))
}

func TestPolicyTier(t *testing.T) {
	for _, tier := range KnownTiers {
		assert.True(t, tier.IsKnown())
		assert.Equal(t, tier, tier.PolicyTier())
	}
	assert.False(t, Tier("ENTERPRISE").IsKnown())
	assert.Equal(t, TierFree, Tier("ENTERPRISE").PolicyTier())
	assert.Equal(t, TierFree, Tier("").PolicyTier())
}

func TestJob_QueueDuration(t *testing.T) {
	submitted := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	job := &Job{Id: "a", Submitted: submitted}
	assert.Equal(t, time.Duration(0), job.QueueDuration())

	job.Started = submitted.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, job.QueueDuration())

	copied := job.DeepCopy()
	copied.Priority = 2
	assert.Equal(t, 0.0, job.Priority)
	assert.Nil(t, (*Job)(nil).DeepCopy())
}
