package constraints

import (
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

const (
	UnschedulableReasonMaximumSlotsInUse    = "maximum concurrent slots in use"
	UnschedulableReasonMaximumJobsForTenant = "maximum concurrent jobs for tenant"
)

// IsTerminalUnschedulableReason returns true if reason indicates no job of any tenant can be admitted
// until some active job completes.
func IsTerminalUnschedulableReason(reason string) bool {
	return reason == UnschedulableReasonMaximumSlotsInUse
}

// AdmissionConstraints contains the limits a job must satisfy to become active.
type AdmissionConstraints struct {
	// Max number of simultaneously active jobs across all tenants.
	MaximumConcurrentSlots int
	// Max number of simultaneously active jobs per tenant, by tier.
	MaximumJobsPerTenantByTier map[schedulerobjects.Tier]int
}

func AdmissionConstraintsFromSchedulingConfig(config configuration.SchedulingConfig) AdmissionConstraints {
	limits := make(map[schedulerobjects.Tier]int, len(config.TierConcurrencyLimits))
	for tier, limit := range config.TierConcurrencyLimits {
		limits[tier] = limit
	}
	return AdmissionConstraints{
		MaximumConcurrentSlots:     config.MaxConcurrentSlots,
		MaximumJobsPerTenantByTier: limits,
	}
}

// MaximumJobsForTier returns the per-tenant limit that applies to tier.
// Tiers without an explicit limit get the limit of the most restrictive tier.
func (constraints *AdmissionConstraints) MaximumJobsForTier(tier schedulerobjects.Tier) int {
	if limit, ok := constraints.MaximumJobsPerTenantByTier[tier.PolicyTier()]; ok {
		return limit
	}
	return constraints.MaximumJobsPerTenantByTier[schedulerobjects.MostRestrictiveTier]
}

// CheckGlobalConstraints returns false if no further job can be admitted, regardless of tenant.
func (constraints *AdmissionConstraints) CheckGlobalConstraints(numActive int) (bool, string) {
	if numActive >= constraints.MaximumConcurrentSlots {
		return false, UnschedulableReasonMaximumSlotsInUse
	}
	return true, ""
}

// CheckPerTenantConstraints returns false if the tenant already has as many active jobs as its tier allows.
func (constraints *AdmissionConstraints) CheckPerTenantConstraints(tier schedulerobjects.Tier, numActiveForTenant int) (bool, string) {
	if numActiveForTenant >= constraints.MaximumJobsForTier(tier) {
		return false, UnschedulableReasonMaximumJobsForTenant
	}
	return true, ""
}

// CheckAdmission returns true if a job of the given tier may start now, and otherwise the reason it may not.
// Global capacity is checked before the tenant limit.
func (constraints *AdmissionConstraints) CheckAdmission(tier schedulerobjects.Tier, numActive, numActiveForTenant int) (bool, string) {
	if ok, reason := constraints.CheckGlobalConstraints(numActive); !ok {
		return false, reason
	}
	return constraints.CheckPerTenantConstraints(tier, numActiveForTenant)
}
