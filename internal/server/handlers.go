package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/agentgate/agentgate/internal/common/agentgateerrors"
	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

type submitJobRequest struct {
	JobId                    string    `json:"jobId"`
	TenantId                 string    `json:"tenantId"`
	TargetId                 string    `json:"targetId"`
	Tier                     string    `json:"tier"`
	EstimatedDurationMinutes float64   `json:"estimatedDurationMinutes"`
	CreatedAt                time.Time `json:"createdAt"`
}

type submitJobResponse struct {
	Admitted       bool      `json:"admitted"`
	EstimatedStart time.Time `json:"estimatedStart"`
	Position       int       `json:"position"`
}

type jobResponse struct {
	JobId     string    `json:"jobId"`
	TenantId  string    `json:"tenantId"`
	TargetId  string    `json:"targetId,omitempty"`
	Tier      string    `json:"tier"`
	Submitted time.Time `json:"submitted"`
	Started   time.Time `json:"started"`
}

type completeJobResponse struct {
	Promoted []*jobResponse `json:"promoted"`
}

type tenantStatusResponse struct {
	TenantId             string    `json:"tenantId"`
	Position             int       `json:"position"`
	EstimatedWaitMinutes float64   `json:"estimatedWaitMinutes"`
	EstimatedStart       time.Time `json:"estimatedStart"`
	ActiveCount          int       `json:"activeCount"`
}

type tenantSnapshotResponse struct {
	ActiveJobs  int `json:"activeJobs"`
	WaitingJobs int `json:"waitingJobs"`
}

type snapshotResponse struct {
	MaxConcurrentSlots        int                                `json:"maxConcurrentSlots"`
	TierConcurrencyLimits     map[string]int                     `json:"tierConcurrencyLimits"`
	AverageJobDurationMinutes float64                            `json:"averageJobDurationMinutes"`
	PeakHour                  bool                               `json:"peakHour"`
	ActiveJobs                int                                `json:"activeJobs"`
	WaitingJobs               int                                `json:"waitingJobs"`
	Tenants                   map[string]*tenantSnapshotResponse `json:"tenants"`
}

// maxRequestBodyBytes bounds the size of request bodies.
const maxRequestBodyBytes = 64 << 10

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		respondError(w, r, &agentgateerrors.ErrInvalidArgument{
			Name:    "body",
			Value:   "",
			Message: err.Error(),
		})
		return
	}
	now := s.clock.Now()
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	result, err := s.scheduler.Submit(&schedulerobjects.Job{
		Id:                       req.JobId,
		TenantId:                 req.TenantId,
		TargetId:                 req.TargetId,
		Tier:                     schedulerobjects.ParseTier(req.Tier),
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		CreatedAt:                createdAt,
	}, now)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, &submitJobResponse{
		Admitted:       result.Admitted,
		EstimatedStart: result.EstimatedStart,
		Position:       result.Position,
	})
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	promoted, err := s.scheduler.Complete(chi.URLParam(r, "jobId"))
	if err != nil {
		respondError(w, r, errors.WithMessage(err, "error completing job"))
		return
	}
	resp := &completeJobResponse{Promoted: make([]*jobResponse, len(promoted))}
	for i, job := range promoted {
		resp.Promoted[i] = &jobResponse{
			JobId:     job.Id,
			TenantId:  job.TenantId,
			TargetId:  job.TargetId,
			Tier:      job.Tier.String(),
			Submitted: job.Submitted,
			Started:   job.Started,
		}
	}
	respondOK(w, resp)
}

func (s *Server) handleGetTenantStatus(w http.ResponseWriter, r *http.Request) {
	tenantId := chi.URLParam(r, "tenantId")
	status, err := s.scheduler.QueueStatus(tenantId, s.clock.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, &tenantStatusResponse{
		TenantId:             tenantId,
		Position:             status.Position,
		EstimatedWaitMinutes: status.EstimatedWaitMinutes,
		EstimatedStart:       status.EstimatedStart,
		ActiveCount:          status.ActiveCount,
	})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.scheduler.Snapshot()
	if err != nil {
		respondError(w, r, err)
		return
	}
	config := s.scheduler.Config()
	resp := &snapshotResponse{
		MaxConcurrentSlots:        snapshot.MaxConcurrentSlots,
		TierConcurrencyLimits:     make(map[string]int, len(config.TierConcurrencyLimits)),
		AverageJobDurationMinutes: config.AverageJobDuration.Minutes(),
		PeakHour:                  config.IsPeakHour(s.clock.Now().UTC().Hour()),
		ActiveJobs:                snapshot.ActiveJobs,
		WaitingJobs:               snapshot.WaitingJobs,
		Tenants:                   make(map[string]*tenantSnapshotResponse, len(snapshot.Tenants)),
	}
	for tier, limit := range config.TierConcurrencyLimits {
		resp.TierConcurrencyLimits[tier.String()] = limit
	}
	for tenantId, ts := range snapshot.Tenants {
		resp.Tenants[tenantId] = &tenantSnapshotResponse{ActiveJobs: ts.ActiveJobs, WaitingJobs: ts.WaitingJobs}
	}
	respondOK(w, resp)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, &agentgateerrors.ErrNotFound{
		Type:  "route",
		Value: r.Method + " " + r.URL.Path,
	})
}
