package scheduler

import (
	"golang.org/x/exp/slices"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// WaitingQueue holds the jobs that could not be admitted, ordered by ascending priority.
// Jobs with equal priority are kept in insertion order.
// Priorities are fixed at insertion and never recomputed.
type WaitingQueue struct {
	jobs []*schedulerobjects.Job
	ids  map[string]bool
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{
		ids: make(map[string]bool),
	}
}

// Insert places job before the first job with strictly greater priority and returns its 0-based index.
func (q *WaitingQueue) Insert(job *schedulerobjects.Job) int {
	i := slices.IndexFunc(q.jobs, func(queued *schedulerobjects.Job) bool {
		return queued.Priority > job.Priority
	})
	if i == -1 {
		i = len(q.jobs)
	}
	q.jobs = slices.Insert(q.jobs, i, job)
	q.ids[job.Id] = true
	return i
}

// Peek returns the job at the head of the queue, or nil if the queue is empty.
func (q *WaitingQueue) Peek() *schedulerobjects.Job {
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

// Pop removes and returns the job at the head of the queue, or nil if the queue is empty.
func (q *WaitingQueue) Pop() *schedulerobjects.Job {
	if len(q.jobs) == 0 {
		return nil
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	delete(q.ids, job.Id)
	return job
}

func (q *WaitingQueue) Len() int {
	return len(q.jobs)
}

func (q *WaitingQueue) Contains(jobId string) bool {
	return q.ids[jobId]
}

// PositionOfTenant returns the 1-based position of the first job of tenantId, or 0 if the tenant has no waiting jobs.
func (q *WaitingQueue) PositionOfTenant(tenantId string) int {
	return slices.IndexFunc(q.jobs, func(job *schedulerobjects.Job) bool {
		return job.TenantId == tenantId
	}) + 1
}

// Jobs returns the waiting jobs in queue order. The returned slice is a copy; the jobs are not.
func (q *WaitingQueue) Jobs() []*schedulerobjects.Job {
	return slices.Clone(q.jobs)
}
