package simulator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

var testStartTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testSchedulingConfig(slots int) configuration.SchedulingConfig {
	config := configuration.DefaultSchedulingConfig()
	config.MaxConcurrentSlots = slots
	return config
}

func TestSimulator(t *testing.T) {
	tests := map[string]struct {
		workloadSpec     *WorkloadSpec
		slots            int
		expectedMakespan time.Duration
		expectedStats    map[schedulerobjects.Tier]*TierStats
	}{
		"single tenant within capacity": {
			workloadSpec: &WorkloadSpec{
				StartTime: testStartTime,
				Tenants: []*TenantSpec{
					{Name: "pro", Tier: "PRO", Jobs: 2, JobDuration: 10 * time.Minute},
				},
			},
			slots:            2,
			expectedMakespan: 10 * time.Minute,
			expectedStats: map[schedulerobjects.Tier]*TierStats{
				schedulerobjects.TierPro: {
					NumSubmitted: 2,
					NumAdmitted:  2,
					NumCompleted: 2,
					Waits:        []time.Duration{0, 0},
				},
			},
		},
		"single tenant over capacity": {
			workloadSpec: &WorkloadSpec{
				StartTime: testStartTime,
				Tenants: []*TenantSpec{
					{Name: "pro", Tier: "PRO", Jobs: 4, JobDuration: 10 * time.Minute},
				},
			},
			slots:            2,
			expectedMakespan: 20 * time.Minute,
			expectedStats: map[schedulerobjects.Tier]*TierStats{
				schedulerobjects.TierPro: {
					NumSubmitted: 4,
					NumAdmitted:  2,
					NumQueued:    2,
					NumCompleted: 4,
					Waits:        []time.Duration{0, 0, 10 * time.Minute, 10 * time.Minute},
					// Estimated at 7.5m and 15m.
					EstimateErrors: []time.Duration{150 * time.Second, -5 * time.Minute},
				},
			},
		},
		"max jobs overtake free jobs": {
			workloadSpec: &WorkloadSpec{
				StartTime: testStartTime,
				Tenants: []*TenantSpec{
					{Name: "free", Tier: "FREE", Replicas: 4, Jobs: 1, JobDuration: 10 * time.Minute},
					{Name: "max", Tier: "MAX", Jobs: 2, StartOffset: time.Minute, JobDuration: 10 * time.Minute},
				},
			},
			slots:            2,
			expectedMakespan: 30 * time.Minute,
			expectedStats: map[schedulerobjects.Tier]*TierStats{
				schedulerobjects.TierFree: {
					NumSubmitted:   4,
					NumAdmitted:    2,
					NumQueued:      2,
					NumCompleted:   4,
					Waits:          []time.Duration{0, 0, 20 * time.Minute, 20 * time.Minute},
					EstimateErrors: []time.Duration{12*time.Minute + 30*time.Second, 5 * time.Minute},
				},
				schedulerobjects.TierMax: {
					NumSubmitted:   2,
					NumQueued:      2,
					NumCompleted:   2,
					Waits:          []time.Duration{9 * time.Minute, 9 * time.Minute},
					EstimateErrors: []time.Duration{90 * time.Second, -6 * time.Minute},
				},
			},
		},
		"tenant limit holds back a single free tenant": {
			workloadSpec: &WorkloadSpec{
				StartTime: testStartTime,
				Tenants: []*TenantSpec{
					{Name: "free", Tier: "FREE", Jobs: 3, InterArrivalTime: time.Minute, JobDuration: 5 * time.Minute},
				},
			},
			slots:            4,
			expectedMakespan: 15 * time.Minute,
			expectedStats: map[schedulerobjects.Tier]*TierStats{
				schedulerobjects.TierFree: {
					NumSubmitted:   3,
					NumAdmitted:    1,
					NumQueued:      2,
					NumCompleted:   3,
					Waits:          []time.Duration{0, 4 * time.Minute, 8 * time.Minute},
					EstimateErrors: []time.Duration{4*time.Minute - 225*time.Second, 8*time.Minute - 450*time.Second},
				},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := NewSimulator(tc.workloadSpec, testSchedulingConfig(tc.slots))
			require.NoError(t, err)
			require.NoError(t, s.Run(context.Background()))
			assert.Equal(t, tc.expectedMakespan, s.Stats().Makespan)
			assert.Equal(t, tc.expectedStats, s.Stats().TierStats)
		})
	}
}

func TestSimulator_Cancelled(t *testing.T) {
	s, err := NewSimulator(&WorkloadSpec{
		StartTime: testStartTime,
		Tenants:   []*TenantSpec{{Name: "pro", Tier: "PRO", Jobs: 10, JobDuration: time.Minute}},
	}, testSchedulingConfig(2))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}

func TestNewSimulator_InvalidWorkload(t *testing.T) {
	_, err := NewSimulator(&WorkloadSpec{
		Tenants: []*TenantSpec{{Name: "pro", Tier: "PRO", Jobs: 1}},
	}, testSchedulingConfig(2))
	assert.Error(t, err)

	_, err = NewSimulator(&WorkloadSpec{
		Tenants: []*TenantSpec{
			{Name: "pro", Tier: "PRO", Jobs: 1, JobDuration: time.Minute},
			{Name: "pro", Tier: "MAX", Jobs: 1, JobDuration: time.Minute},
		},
	}, testSchedulingConfig(2))
	assert.Error(t, err)
}

func TestWorkloadSpecFromFilePath(t *testing.T) {
	spec, err := WorkloadSpecFromFilePath("testdata/workload.yaml")
	require.NoError(t, err)
	assert.Equal(t, &WorkloadSpec{
		Name:      "workload",
		StartTime: testStartTime,
		Tenants: []*TenantSpec{
			{Name: "pro", Tier: "PRO", Replicas: 1, Jobs: 4, JobDuration: 10 * time.Minute},
		},
	}, spec)
}

func TestWorkloadSpecFromBytes_UnknownField(t *testing.T) {
	_, err := WorkloadSpecFromBytes([]byte("tenants:\n  - name: a\n    tier: PRO\n    jobs: 1\n    jobDuration: 1m\n    colour: red\n"))
	assert.Error(t, err)
}

func TestSchedulingConfigFromFilePath(t *testing.T) {
	config, err := SchedulingConfigFromFilePath("testdata/scheduling.yaml")
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	expected := configuration.DefaultSchedulingConfig()
	expected.MaxConcurrentSlots = 2
	assert.Equal(t, expected, config)
}

func TestStats_Write(t *testing.T) {
	s, err := NewSimulator(&WorkloadSpec{
		StartTime: testStartTime,
		Tenants:   []*TenantSpec{{Name: "pro", Tier: "PRO", Jobs: 4, JobDuration: 10 * time.Minute}},
	}, testSchedulingConfig(2))
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, s.Stats().Write(&buf))
	assert.Contains(t, buf.String(), "Makespan:")
	assert.Contains(t, buf.String(), "PRO")
	assert.Contains(t, buf.String(), "20m0s")
}

func TestTierStats_PercentileWait(t *testing.T) {
	ts := &TierStats{}
	assert.Equal(t, time.Duration(0), ts.PercentileWait(95))

	for i := 1; i <= 20; i++ {
		ts.Waits = append(ts.Waits, time.Duration(i)*time.Minute)
	}
	assert.Equal(t, 19*time.Minute, ts.PercentileWait(95))
	assert.Equal(t, 20*time.Minute, ts.MaxWait())
	assert.Equal(t, 1*time.Minute, ts.PercentileWait(0))
	assert.Equal(t, 10*time.Minute+30*time.Second, ts.MeanWait())
}

func TestTierStats_MeanAbsoluteEstimateError(t *testing.T) {
	ts := &TierStats{EstimateErrors: []time.Duration{-2 * time.Minute, 4 * time.Minute}}
	assert.Equal(t, 3*time.Minute, ts.MeanAbsoluteEstimateError())
}
