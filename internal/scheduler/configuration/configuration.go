package configuration

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agentgate/agentgate/internal/common/config"
	"github.com/agentgate/agentgate/internal/common/logging"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

type Configuration struct {
	// Port the json api and health endpoint listen on.
	HttpPort uint16 `validate:"required"`
	// Port prometheus metrics are served on.
	MetricsPort uint16 `validate:"required"`
	Logging     logging.Config
	// Optional. If no addresses are given, dispatches are only logged.
	Redis    config.RedisConfig
	Dispatch DispatchConfig
	// How long completed job ids are remembered, so that repeated completion notifications
	// can be told apart from notifications for jobs the scheduler never knew about.
	CompletionMemory time.Duration `validate:"required"`
	Scheduling       SchedulingConfig
}

type DispatchConfig struct {
	// Prefix of the redis lists dispatch messages are pushed to.
	KeyPrefix string
	// If non-zero, dispatch lists expire this long after the last push.
	Retention time.Duration
}

// SchedulingConfig is the static scheduling policy. It is supplied once at construction
// and never changes for the lifetime of a scheduler.
type SchedulingConfig struct {
	// Maximum number of simultaneously active jobs across all tenants.
	MaxConcurrentSlots int `validate:"gt=0"`
	// Maximum number of simultaneously active jobs for a single tenant, by the tenant's tier.
	TierConcurrencyLimits map[schedulerobjects.Tier]int `validate:"required"`
	// Base priority by tier. Lower values are scheduled first.
	BasePriorities map[schedulerobjects.Tier]float64 `validate:"required"`
	// Hour ranges (UTC, inclusive) considered high-demand. Windows may overlap.
	PeakWindows []PeakWindow `validate:"dive"`
	// Population level average job run time used for start time estimates.
	AverageJobDuration time.Duration `validate:"gt=0"`
	// Reserved. Parsed and validated but not used by any scheduling computation.
	OffPeakDiscountFactor float64 `validate:"gte=0,lte=1"`
}

// PeakWindow is an inclusive range of UTC hours of the day.
type PeakWindow struct {
	Start int `validate:"gte=0,lte=23"`
	End   int `validate:"gte=0,lte=23"`
}

func (w PeakWindow) Contains(hour int) bool {
	return hour >= w.Start && hour <= w.End
}

func (w PeakWindow) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// IsPeakHour returns true if hour lies within any of the configured peak windows.
func (c SchedulingConfig) IsPeakHour(hour int) bool {
	for _, window := range c.PeakWindows {
		if window.Contains(hour) {
			return true
		}
	}
	return false
}

// ConcurrencyLimit returns the per-tenant concurrency limit for tier.
// Unknown tiers get the most restrictive limit.
func (c SchedulingConfig) ConcurrencyLimit(tier schedulerobjects.Tier) int {
	return c.TierConcurrencyLimits[tier.PolicyTier()]
}

// BasePriority returns the base priority for tier. Unknown tiers get the most restrictive base priority.
func (c SchedulingConfig) BasePriority(tier schedulerobjects.Tier) float64 {
	return c.BasePriorities[tier.PolicyTier()]
}

// SlotTurnover is the expected time between two slots freeing up,
// i.e., the expected wait contributed by each job ahead in the queue.
func (c SchedulingConfig) SlotTurnover() time.Duration {
	return c.AverageJobDuration / time.Duration(c.MaxConcurrentSlots)
}

// DefaultSchedulingConfig returns the policy the service was originally tuned with.
func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		MaxConcurrentSlots: 25,
		TierConcurrencyLimits: map[schedulerobjects.Tier]int{
			schedulerobjects.TierFree: 1,
			schedulerobjects.TierPro:  3,
			schedulerobjects.TierMax:  8,
		},
		BasePriorities: map[schedulerobjects.Tier]float64{
			schedulerobjects.TierFree: 3,
			schedulerobjects.TierPro:  2,
			schedulerobjects.TierMax:  1,
		},
		PeakWindows: []PeakWindow{
			{Start: 9, End: 17},
			{Start: 14, End: 22},
		},
		AverageJobDuration:    15 * time.Minute,
		OffPeakDiscountFactor: 0.7,
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(SchedulingConfigValidation, SchedulingConfig{})
	return validate.Struct(c)
}

func (c SchedulingConfig) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(SchedulingConfigValidation, SchedulingConfig{})
	return validate.Struct(c)
}

// SchedulingConfigValidation checks the constraints between fields of SchedulingConfig
// that can't be expressed with struct tags.
func SchedulingConfigValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(SchedulingConfig)

	freeLimit, ok := c.TierConcurrencyLimits[schedulerobjects.MostRestrictiveTier]
	if !ok {
		sl.ReportError(c.TierConcurrencyLimits, "TierConcurrencyLimits", "TierConcurrencyLimits", "MostRestrictiveTierMissing", "")
	}
	for tier, limit := range c.TierConcurrencyLimits {
		if !tier.IsKnown() {
			sl.ReportError(c.TierConcurrencyLimits, "TierConcurrencyLimits", "TierConcurrencyLimits", "UnknownTier", tier.String())
		}
		if limit <= 0 {
			sl.ReportError(c.TierConcurrencyLimits, "TierConcurrencyLimits", "TierConcurrencyLimits", "NonPositiveLimit", tier.String())
		}
		if ok && limit < freeLimit {
			sl.ReportError(c.TierConcurrencyLimits, "TierConcurrencyLimits", "TierConcurrencyLimits", "LimitBelowMostRestrictiveTier", tier.String())
		}
	}

	if _, ok := c.BasePriorities[schedulerobjects.MostRestrictiveTier]; !ok {
		sl.ReportError(c.BasePriorities, "BasePriorities", "BasePriorities", "MostRestrictiveTierMissing", "")
	}
	for tier := range c.BasePriorities {
		if !tier.IsKnown() {
			sl.ReportError(c.BasePriorities, "BasePriorities", "BasePriorities", "UnknownTier", tier.String())
		}
	}

	for i, window := range c.PeakWindows {
		if window.Start > window.End {
			sl.ReportError(c.PeakWindows, fmt.Sprintf("PeakWindows[%d]", i), "PeakWindows", "StartAfterEnd", window.String())
		}
	}
}
