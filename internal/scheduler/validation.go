package scheduler

import (
	"github.com/hashicorp/go-multierror"

	"github.com/agentgate/agentgate/internal/common/agentgateerrors"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// ValidateJob checks that job is well-formed. All problems found are returned together as a *multierror.Error
// of *agentgateerrors.ErrInvalidArgument. An unrecognised tier is not a problem; such jobs are scheduled under
// the most restrictive policy.
func ValidateJob(job *schedulerobjects.Job) error {
	if job == nil {
		return &agentgateerrors.ErrInvalidArgument{
			Name:    "job",
			Value:   nil,
			Message: "job must be provided",
		}
	}
	var result *multierror.Error
	if job.Id == "" {
		result = multierror.Append(result, &agentgateerrors.ErrInvalidArgument{
			Name:    "id",
			Value:   job.Id,
			Message: "job id must be non-empty",
		})
	}
	if job.TenantId == "" {
		result = multierror.Append(result, &agentgateerrors.ErrInvalidArgument{
			Name:    "tenantId",
			Value:   job.TenantId,
			Message: "tenant id must be non-empty",
		})
	}
	if job.Tier == "" {
		result = multierror.Append(result, &agentgateerrors.ErrInvalidArgument{
			Name:    "tier",
			Value:   job.Tier,
			Message: "tier must be non-empty",
		})
	}
	if job.EstimatedDurationMinutes < 0 {
		result = multierror.Append(result, &agentgateerrors.ErrInvalidArgument{
			Name:    "estimatedDurationMinutes",
			Value:   job.EstimatedDurationMinutes,
			Message: "estimated duration must be non-negative",
		})
	}
	if job.CreatedAt.IsZero() {
		result = multierror.Append(result, &agentgateerrors.ErrInvalidArgument{
			Name:    "createdAt",
			Value:   job.CreatedAt,
			Message: "creation time must be set",
		})
	}
	return result.ErrorOrNil()
}
