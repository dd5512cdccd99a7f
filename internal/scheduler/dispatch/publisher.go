// Package dispatch tells the outside world about jobs that have become active and should be started.
package dispatch

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// Publisher is an interface to be implemented by structs that announce newly active jobs.
// Implementations must be safe for concurrent use.
type Publisher interface {
	// Publish announces that jobs have been granted a slot. Publishing is best-effort;
	// a returned error never changes the state of the scheduler.
	Publish(jobs []*schedulerobjects.Job) error
}

// DispatchMessage is the wire representation of a job that has become active.
type DispatchMessage struct {
	JobId                    string    `json:"jobId"`
	TenantId                 string    `json:"tenantId"`
	TargetId                 string    `json:"targetId"`
	Tier                     string    `json:"tier"`
	EstimatedDurationMinutes float64   `json:"estimatedDurationMinutes"`
	CreatedAt                time.Time `json:"createdAt"`
	Started                  time.Time `json:"started"`
}

func NewDispatchMessage(job *schedulerobjects.Job) *DispatchMessage {
	return &DispatchMessage{
		JobId:                    job.Id,
		TenantId:                 job.TenantId,
		TargetId:                 job.TargetId,
		Tier:                     job.Tier.String(),
		EstimatedDurationMinutes: job.EstimatedDurationMinutes,
		CreatedAt:                job.CreatedAt,
		Started:                  job.Started,
	}
}

// LogPublisher logs each dispatch. Used when no message broker is configured.
type LogPublisher struct {
	logger *log.Entry
}

func NewLogPublisher(logger *log.Entry) *LogPublisher {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(jobs []*schedulerobjects.Job) error {
	for _, job := range jobs {
		p.logger.WithFields(log.Fields{
			"jobId":    job.Id,
			"tenantId": job.TenantId,
			"targetId": job.TargetId,
			"tier":     job.Tier,
		}).Info("Dispatching job")
	}
	return nil
}

// NoopPublisher discards everything.
type NoopPublisher struct{}

func (NoopPublisher) Publish([]*schedulerobjects.Job) error {
	return nil
}
