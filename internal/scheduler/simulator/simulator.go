package simulator

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	clock "k8s.io/utils/clock/testing"

	"github.com/agentgate/agentgate/internal/scheduler"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// Simulator runs a workload through a scheduler in simulated time.
// Jobs run for exactly their configured duration once active.
type Simulator struct {
	WorkloadSpec     *WorkloadSpec
	schedulingConfig configuration.SchedulingConfig
	scheduler        *scheduler.Scheduler
	// Current simulated time. Shared with the scheduler.
	clock *clock.FakeClock
	// Sequence number of the next event to be published.
	sequenceNumber int
	// Events stored in a priority queue ordered first by timestamp and second by sequence number.
	eventLog EventLog
	// Run time of each job.
	durationByJobId map[string]time.Duration
	// Estimated start time of each job that had to wait.
	estimatedStartByJobId map[string]time.Time
	tierByJobId           map[string]schedulerobjects.Tier
	stats                 *Stats
}

func NewSimulator(workloadSpec *WorkloadSpec, schedulingConfig configuration.SchedulingConfig) (*Simulator, error) {
	initialiseWorkloadSpec(workloadSpec)
	if err := validateWorkloadSpec(workloadSpec); err != nil {
		return nil, err
	}
	fakeClock := clock.NewFakeClock(workloadSpec.StartTime)
	s, err := scheduler.New(schedulingConfig, scheduler.WithClock(fakeClock))
	if err != nil {
		return nil, err
	}
	simulator := &Simulator{
		WorkloadSpec:          workloadSpec,
		schedulingConfig:      schedulingConfig,
		scheduler:             s,
		clock:                 fakeClock,
		durationByJobId:       make(map[string]time.Duration),
		estimatedStartByJobId: make(map[string]time.Time),
		tierByJobId:           make(map[string]schedulerobjects.Tier),
		stats:                 NewStats(),
	}
	simulator.pushSubmitEvents()
	return simulator, nil
}

func (s *Simulator) pushSubmitEvents() {
	for _, tenant := range s.WorkloadSpec.Tenants {
		tier := schedulerobjects.ParseTier(tenant.Tier)
		for replica := 0; replica < tenant.Replicas; replica++ {
			tenantId := fmt.Sprintf("%s-%d", tenant.Name, replica)
			for i := 0; i < tenant.Jobs; i++ {
				submitTime := s.WorkloadSpec.StartTime.Add(tenant.StartOffset + time.Duration(i)*tenant.InterArrivalTime)
				job := &schedulerobjects.Job{
					Id:                       uuid.NewString(),
					TenantId:                 tenantId,
					TargetId:                 fmt.Sprintf("%s-target-%d", tenantId, i),
					Tier:                     tier,
					EstimatedDurationMinutes: tenant.JobDuration.Minutes(),
					CreatedAt:                submitTime.Add(-tenant.JobAge),
				}
				s.durationByJobId[job.Id] = tenant.JobDuration
				s.tierByJobId[job.Id] = tier
				s.pushEvent(submitTime, submitEvent{job: job})
			}
		}
	}
}

func (s *Simulator) pushEvent(t time.Time, submitOrComplete any) {
	heap.Push(&s.eventLog, Event{
		time:             t,
		sequenceNumber:   s.sequenceNumber,
		submitOrComplete: submitOrComplete,
	})
	s.sequenceNumber++
}

// Run processes events until none remain or ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	log.Infof("Simulating workload %s with %d events", s.WorkloadSpec.Name, s.eventLog.Len())
	for s.eventLog.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		event := heap.Pop(&s.eventLog).(Event)
		s.clock.SetTime(event.time)
		if err := s.handleEvent(event); err != nil {
			return err
		}
	}
	s.stats.Makespan = s.clock.Now().Sub(s.WorkloadSpec.StartTime)
	return nil
}

func (s *Simulator) handleEvent(event Event) error {
	now := s.clock.Now()
	switch e := event.submitOrComplete.(type) {
	case submitEvent:
		return s.handleSubmit(e.job, now)
	case completeEvent:
		return s.handleComplete(e.jobId, now)
	default:
		return errors.Errorf("unknown event type %T", e)
	}
}

func (s *Simulator) handleSubmit(job *schedulerobjects.Job, now time.Time) error {
	result, err := s.scheduler.Submit(job, now)
	if err != nil {
		return err
	}
	ts := s.stats.forTier(job.Tier)
	ts.NumSubmitted++
	if result.Admitted {
		ts.NumAdmitted++
		ts.Waits = append(ts.Waits, 0)
		s.pushEvent(now.Add(s.durationByJobId[job.Id]), completeEvent{jobId: job.Id})
	} else {
		ts.NumQueued++
		s.estimatedStartByJobId[job.Id] = result.EstimatedStart
	}
	return nil
}

func (s *Simulator) handleComplete(jobId string, now time.Time) error {
	promoted, err := s.scheduler.Complete(jobId)
	if err != nil {
		return err
	}
	s.stats.forTier(s.tierByJobId[jobId]).NumCompleted++
	for _, job := range promoted {
		ts := s.stats.forTier(job.Tier)
		ts.Waits = append(ts.Waits, job.QueueDuration())
		if estimatedStart, ok := s.estimatedStartByJobId[job.Id]; ok {
			ts.EstimateErrors = append(ts.EstimateErrors, job.Started.Sub(estimatedStart))
			delete(s.estimatedStartByJobId, job.Id)
		}
		s.pushEvent(now.Add(s.durationByJobId[job.Id]), completeEvent{jobId: job.Id})
	}
	return nil
}

func (s *Simulator) Stats() *Stats {
	return s.stats
}
