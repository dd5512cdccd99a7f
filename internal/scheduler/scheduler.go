package scheduler

import (
	"sync"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/agentgate/agentgate/internal/common/agentgateerrors"
	"github.com/agentgate/agentgate/internal/common/logging"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
	"github.com/agentgate/agentgate/internal/scheduler/constraints"
	"github.com/agentgate/agentgate/internal/scheduler/dispatch"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

const defaultCompletionMemory = 10 * time.Minute

// Scheduler decides which jobs may hold one of a fixed number of slots and in which order waiting jobs get one.
// Jobs are either active, i.e., holding a slot, or waiting. A job stays active until Complete is called for it.
//
// All methods are safe for concurrent use. State changes are serialised by a single mutex and
// nothing blocks while it's held. Dispatch messages are published after it's released,
// in the order the jobs became active.
type Scheduler struct {
	mu sync.Mutex
	// Held while publishing. Taken before mu, never while holding it.
	publishMu sync.Mutex
	// Immutable after construction.
	config      configuration.SchedulingConfig
	constraints constraints.AdmissionConstraints
	// Jobs currently holding a slot.
	active *JobDb
	// Jobs waiting for a slot.
	waiting *WaitingQueue
	// Ids of recently completed jobs. Only used to classify completions for unknown jobs.
	completed *cache.Cache
	// Copies of jobs that became active but haven't been published yet, oldest first. Guarded by mu.
	pendingDispatch []*schedulerobjects.Job
	// Told about every job that becomes active.
	publisher dispatch.Publisher
	metrics   *SchedulerMetrics
	// Used for timing decisions not driven by the caller. Injected here so that we can mock out for testing.
	clock clock.Clock
}

type Option func(s *Scheduler)

func WithClock(clock clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func WithPublisher(publisher dispatch.Publisher) Option {
	return func(s *Scheduler) {
		s.publisher = publisher
	}
}

func WithMetrics(metrics *SchedulerMetrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// WithCompletionMemory sets how long ids of completed jobs are remembered.
func WithCompletionMemory(d time.Duration) Option {
	return func(s *Scheduler) {
		s.completed = cache.New(d, d)
	}
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	// True if the job became active immediately.
	Admitted bool
	// When the job is expected to start. Equal to the submission time if the job was admitted.
	EstimatedStart time.Time
	// 1-based position in the waiting queue at the time of submission, or 0 if the job was admitted.
	Position int
}

// QueueStatus describes the situation of one tenant.
type QueueStatus struct {
	// 1-based position of the tenant's first waiting job, or 0 if the tenant has no waiting jobs.
	Position int
	// Expected wait until that job starts.
	EstimatedWaitMinutes float64
	// When that job is expected to start.
	EstimatedStart time.Time
	// Number of active jobs of the tenant.
	ActiveCount int
}

// SchedulerSnapshot is a point-in-time summary of the scheduler state.
type SchedulerSnapshot struct {
	MaxConcurrentSlots int
	ActiveJobs         int
	WaitingJobs        int
	Tenants            map[string]*TenantSnapshot
}

type TenantSnapshot struct {
	ActiveJobs  int
	WaitingJobs int
}

func New(config configuration.SchedulingConfig, opts ...Option) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid scheduling config")
	}
	jobDb, err := NewJobDb()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		config:      config,
		constraints: constraints.AdmissionConstraintsFromSchedulingConfig(config),
		active:      jobDb,
		waiting:     NewWaitingQueue(),
		completed:   cache.New(defaultCompletionMemory, defaultCompletionMemory),
		publisher:   dispatch.NoopPublisher{},
		clock:       clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit admits job if capacity and the tenant's limit allow, and otherwise places it in the waiting queue.
// Invalid jobs are rejected with an error wrapping *agentgateerrors.ErrInvalidArgument and jobs whose id is
// already held by the scheduler with *agentgateerrors.ErrAlreadyExists. The scheduler stores a copy of job.
func (s *Scheduler) Submit(job *schedulerobjects.Job, now time.Time) (SubmitResult, error) {
	if err := ValidateJob(job); err != nil {
		tier := schedulerobjects.Tier("")
		if job != nil {
			tier = job.Tier
		}
		s.metrics.ReportSubmitted(tier, outcomeInvalid)
		return SubmitResult{}, err
	}
	job = job.DeepCopy()
	job.Priority = 0
	job.Submitted = now
	job.Started = time.Time{}

	s.mu.Lock()
	result, err := s.submit(job, now)
	numActive, numWaiting := s.sizes()
	s.mu.Unlock()
	if err != nil {
		var alreadyExists *agentgateerrors.ErrAlreadyExists
		if errors.As(err, &alreadyExists) {
			s.metrics.ReportSubmitted(job.Tier, outcomeDuplicate)
		}
		return SubmitResult{}, err
	}

	s.metrics.ReportQueueSizes(numActive, numWaiting)
	if result.Admitted {
		s.metrics.ReportSubmitted(job.Tier, outcomeAdmitted)
		s.flushDispatch()
	} else {
		s.metrics.ReportSubmitted(job.Tier, outcomeQueued)
	}
	return result, nil
}

func (s *Scheduler) submit(job *schedulerobjects.Job, now time.Time) (SubmitResult, error) {
	txn := s.active.WriteTxn()
	defer txn.Abort()

	existing, err := s.active.GetById(txn, job.Id)
	if err != nil {
		return SubmitResult{}, err
	}
	if existing != nil || s.waiting.Contains(job.Id) {
		return SubmitResult{}, &agentgateerrors.ErrAlreadyExists{
			Type:  "job",
			Value: job.Id,
		}
	}
	s.completed.Delete(job.Id)

	ok, reason, err := s.checkAdmission(txn, job)
	if err != nil {
		return SubmitResult{}, err
	}
	logger := log.WithFields(log.Fields{"jobId": job.Id, "tenantId": job.TenantId, "tier": job.Tier})
	if ok {
		job.Started = now
		if err := s.active.Upsert(txn, []*schedulerobjects.Job{job}); err != nil {
			return SubmitResult{}, err
		}
		txn.Commit()
		s.pendingDispatch = append(s.pendingDispatch, job.DeepCopy())
		logger.Debug("Admitted job")
		return SubmitResult{
			Admitted:       true,
			EstimatedStart: now,
		}, nil
	}

	job.Priority = EffectivePriority(s.config, job, now)
	position := s.waiting.Insert(job) + 1
	estimatedStart := now.Add(time.Duration(position) * s.config.SlotTurnover())
	logger.WithFields(log.Fields{
		"priority": job.Priority,
		"position": position,
		"reason":   reason,
	}).Infof("Queued job; estimated start %s", estimatedStart.Format(time.RFC3339))
	return SubmitResult{
		Admitted:       false,
		EstimatedStart: estimatedStart,
		Position:       position,
	}, nil
}

// Promote moves jobs from the head of the waiting queue to the active set for as long as the head is admissible.
// The first inadmissible head ends the pass, even if jobs further back could be admitted.
// Returns copies of the promoted jobs, in promotion order.
func (s *Scheduler) Promote(now time.Time) ([]*schedulerobjects.Job, error) {
	s.mu.Lock()
	promoted, blockedReason, err := s.promote(now)
	numActive, numWaiting := s.sizes()
	s.mu.Unlock()
	s.afterPromotion(promoted, blockedReason, numActive, numWaiting)
	return promoted, err
}

// promote returns the promoted jobs and, if jobs are left waiting, why the head of the queue couldn't be admitted.
func (s *Scheduler) promote(now time.Time) ([]*schedulerobjects.Job, string, error) {
	promoted := make([]*schedulerobjects.Job, 0)
	for s.waiting.Len() > 0 {
		head := s.waiting.Peek()
		ok, reason, err := s.promoteHead(head, now)
		if err != nil {
			return promoted, "", err
		}
		if !ok {
			logger := log.WithFields(log.Fields{
				"jobId":    head.Id,
				"tenantId": head.TenantId,
				"reason":   reason,
			})
			if constraints.IsTerminalUnschedulableReason(reason) {
				logger.Debug("All slots in use; stopping promotion")
			} else {
				logger.Info("Head of waiting queue blocked by its tenant's limit; stopping promotion")
			}
			return promoted, reason, nil
		}
		s.waiting.Pop()
		log.WithFields(log.Fields{
			"jobId":    head.Id,
			"tenantId": head.TenantId,
			"tier":     head.Tier,
		}).Debugf("Promoted job after waiting %s", head.QueueDuration())
		promoted = append(promoted, head.DeepCopy())
		s.pendingDispatch = append(s.pendingDispatch, head.DeepCopy())
	}
	return promoted, "", nil
}

// promoteHead stores head in the active set if it's admissible. head is modified only if it's admitted.
func (s *Scheduler) promoteHead(head *schedulerobjects.Job, now time.Time) (bool, string, error) {
	txn := s.active.WriteTxn()
	defer txn.Abort()
	ok, reason, err := s.checkAdmission(txn, head)
	if err != nil || !ok {
		return false, reason, err
	}
	head.Started = now
	if err := s.active.Upsert(txn, []*schedulerobjects.Job{head}); err != nil {
		head.Started = time.Time{}
		return false, "", err
	}
	txn.Commit()
	return true, "", nil
}

// Complete removes jobId from the active set and then promotes as many waiting jobs as possible.
// Completing a job that isn't active changes nothing other than possibly promoting jobs.
// Returns copies of the promoted jobs.
func (s *Scheduler) Complete(jobId string) ([]*schedulerobjects.Job, error) {
	s.mu.Lock()
	completed, ignoredReason, err := s.complete(jobId)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	promoted, blockedReason, err := s.promote(s.clock.Now())
	numActive, numWaiting := s.sizes()
	s.mu.Unlock()

	if completed != nil {
		s.metrics.ReportCompleted(completed)
	} else {
		log.WithField("jobId", jobId).Debugf("Ignoring completion of %s job", ignoredReason)
		s.metrics.ReportIgnoredCompletion(ignoredReason)
	}
	s.afterPromotion(promoted, blockedReason, numActive, numWaiting)
	return promoted, err
}

func (s *Scheduler) complete(jobId string) (*schedulerobjects.Job, string, error) {
	txn := s.active.WriteTxn()
	defer txn.Abort()
	job, err := s.active.Delete(txn, jobId)
	if err != nil {
		return nil, "", err
	}
	txn.Commit()

	if job != nil {
		s.completed.SetDefault(jobId, struct{}{})
		return job, "", nil
	}
	if _, found := s.completed.Get(jobId); found {
		return nil, ignoredReasonDuplicate, nil
	}
	if s.waiting.Contains(jobId) {
		return nil, ignoredReasonWaiting, nil
	}
	return nil, ignoredReasonUnknown, nil
}

// QueueStatus reports where the first waiting job of tenantId is and when it's expected to start.
// The estimate assumes one slot frees up every AverageJobDuration / MaxConcurrentSlots.
func (s *Scheduler) QueueStatus(tenantId string, now time.Time) (QueueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activeCount, err := s.active.CountByTenant(s.active.ReadTxn(), tenantId)
	if err != nil {
		return QueueStatus{}, err
	}
	position := s.waiting.PositionOfTenant(tenantId)
	var wait time.Duration
	if position > 0 {
		wait = time.Duration(position-1) * s.config.SlotTurnover()
	}
	return QueueStatus{
		Position:             position,
		EstimatedWaitMinutes: wait.Minutes(),
		EstimatedStart:       now.Add(wait),
		ActiveCount:          activeCount,
	}, nil
}

// Snapshot returns a summary of the current state.
func (s *Scheduler) Snapshot() (*SchedulerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.active.GetAll(s.active.ReadTxn())
	if err != nil {
		return nil, err
	}
	snapshot := &SchedulerSnapshot{
		MaxConcurrentSlots: s.config.MaxConcurrentSlots,
		ActiveJobs:         len(active),
		WaitingJobs:        s.waiting.Len(),
		Tenants:            make(map[string]*TenantSnapshot),
	}
	tenant := func(tenantId string) *TenantSnapshot {
		ts, ok := snapshot.Tenants[tenantId]
		if !ok {
			ts = &TenantSnapshot{}
			snapshot.Tenants[tenantId] = ts
		}
		return ts
	}
	for _, job := range active {
		tenant(job.TenantId).ActiveJobs++
	}
	for _, job := range s.waiting.Jobs() {
		tenant(job.TenantId).WaitingJobs++
	}
	return snapshot, nil
}

// Config returns the scheduling policy the scheduler was created with.
func (s *Scheduler) Config() configuration.SchedulingConfig {
	return s.config
}

// checkAdmission returns true if job may become active given the active set as seen by txn,
// and otherwise the reason it may not.
func (s *Scheduler) checkAdmission(txn *memdb.Txn, job *schedulerobjects.Job) (bool, string, error) {
	numActive, err := s.active.Count(txn)
	if err != nil {
		return false, "", err
	}
	numActiveForTenant, err := s.active.CountByTenant(txn, job.TenantId)
	if err != nil {
		return false, "", err
	}
	ok, reason := s.constraints.CheckAdmission(job.Tier, numActive, numActiveForTenant)
	return ok, reason, nil
}

// sizes must be called with s.mu held.
func (s *Scheduler) sizes() (int, int) {
	numActive, err := s.active.Count(s.active.ReadTxn())
	if err != nil {
		logging.WithStacktrace(nil, err).Warn("Failed to count active jobs")
	}
	return numActive, s.waiting.Len()
}

func (s *Scheduler) afterPromotion(promoted []*schedulerobjects.Job, blockedReason string, numActive, numWaiting int) {
	s.metrics.ReportQueueSizes(numActive, numWaiting)
	if blockedReason != "" {
		s.metrics.ReportPromotionBlocked(blockedReason)
	}
	if len(promoted) == 0 {
		return
	}
	s.metrics.ReportPromoted(promoted)
	s.flushDispatch()
}

// flushDispatch publishes all pending jobs. Must be called without holding mu.
// Whichever caller gets publishMu first publishes everything pending at that point,
// so jobs are published in the order they became active even when callers race.
func (s *Scheduler) flushDispatch() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.mu.Lock()
	jobs := s.pendingDispatch
	s.pendingDispatch = nil
	s.mu.Unlock()
	if len(jobs) == 0 {
		return
	}
	if err := s.publisher.Publish(jobs); err != nil {
		logging.WithStacktrace(nil, err).Warnf("Failed to publish dispatch messages for %d jobs", len(jobs))
		s.metrics.ReportDispatchFailure()
	}
}
