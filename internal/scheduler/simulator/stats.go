package simulator

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// Stats summarises a simulation.
type Stats struct {
	// Time from the start of the simulation to the last completion.
	Makespan  time.Duration
	TierStats map[schedulerobjects.Tier]*TierStats
}

// TierStats summarises the jobs of one tier.
type TierStats struct {
	NumSubmitted int
	// Number of jobs admitted at submission.
	NumAdmitted int
	// Number of jobs that had to wait.
	NumQueued    int
	NumCompleted int
	// Time from submission to start, for every job that started. Zero for jobs admitted at submission.
	Waits []time.Duration
	// Difference between the estimated and the actual start time, for every job that had to wait.
	// Positive if the job started later than estimated.
	EstimateErrors []time.Duration
}

func NewStats() *Stats {
	return &Stats{
		TierStats: make(map[schedulerobjects.Tier]*TierStats),
	}
}

func (s *Stats) forTier(tier schedulerobjects.Tier) *TierStats {
	ts, ok := s.TierStats[tier]
	if !ok {
		ts = &TierStats{}
		s.TierStats[tier] = ts
	}
	return ts
}

func (ts *TierStats) MeanWait() time.Duration {
	return mean(ts.Waits)
}

func (ts *TierStats) MaxWait() time.Duration {
	return ts.PercentileWait(100)
}

// PercentileWait returns the smallest wait such that at least p percent of waits are less than or equal to it.
func (ts *TierStats) PercentileWait(p float64) time.Duration {
	if len(ts.Waits) == 0 {
		return 0
	}
	waits := slices.Clone(ts.Waits)
	slices.Sort(waits)
	i := int(float64(len(waits))*p/100+0.5) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(waits) {
		i = len(waits) - 1
	}
	return waits[i]
}

// MeanAbsoluteEstimateError is the average distance between estimated and actual start times of jobs that had to wait.
func (ts *TierStats) MeanAbsoluteEstimateError() time.Duration {
	abs := make([]time.Duration, len(ts.EstimateErrors))
	for i, d := range ts.EstimateErrors {
		if d < 0 {
			d = -d
		}
		abs[i] = d
	}
	return mean(abs)
}

// Write prints a table with one row per tier.
func (s *Stats) Write(out io.Writer) error {
	w := tabwriter.NewWriter(out, 1, 1, 2, ' ', 0)
	fmt.Fprintf(w, "Makespan:\t%s\n", s.Makespan)
	fmt.Fprintf(w, "Tier\tSubmitted\tAdmitted\tQueued\tCompleted\tMean wait\tP95 wait\tMax wait\tMean estimate error\n")
	tiers := maps.Keys(s.TierStats)
	slices.Sort(tiers)
	for _, tier := range tiers {
		ts := s.TierStats[tier]
		fmt.Fprintf(
			w, "%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			tier, ts.NumSubmitted, ts.NumAdmitted, ts.NumQueued, ts.NumCompleted,
			ts.MeanWait(), ts.PercentileWait(95), ts.MaxWait(), ts.MeanAbsoluteEstimateError(),
		)
	}
	return w.Flush()
}

func mean(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}
