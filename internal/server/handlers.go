package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/idea-scout/internal/db"
	"github.com/jonathan/idea-scout/internal/pipeline"
	"github.com/jonathan/idea-scout/internal/server/middleware"
	"github.com/jonathan/idea-scout/internal/types"
)

const maxRequestBytes = 64 << 10

// SessionResponse is returned when a session is created
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JobAcceptedResponse is returned when an async job is queued
type JobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobsResponse lists a session's jobs
type JobsResponse struct {
	Jobs  []db.Job `json:"jobs"`
	Count int      `json:"count"`
}

// StepsResponse lists a job's stage executions
type StepsResponse struct {
	JobID string       `json:"job_id"`
	Steps []db.JobStep `json:"steps"`
}

// PivotsResponse lists a job's pivot history
type PivotsResponse struct {
	JobID  string          `json:"job_id"`
	Pivots []db.PivotEntry `json:"pivots"`
}

// ReportResponse carries the final markdown report
type ReportResponse struct {
	JobID      string `json:"job_id"`
	ReportType string `json:"report_type"`
	Report     string `json:"report"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.WithError(err).Warn("database ping failed")
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
			return
		}
		resp["database"] = "ok"
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleCreateSession creates an anonymous session and returns its token
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.CreateSession(r.Context())
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	token, expiresAt, err := s.tokens.Issue(session.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, SessionResponse{
		SessionID: session.ID.String(),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// handleListSessionJobs lists the caller's jobs, newest first
func (s *Server) handleListSessionJobs(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.currentSession(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	pathID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}
	if pathID != sessionID {
		s.errorResponse(w, &ErrForbidden{Resource: "session"})
		return
	}

	limit := db.DefaultSessionJobsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			s.errorResponse(w, &ErrValidation{Field: "limit", Message: "must be between 1 and 100"})
			return
		}
	}

	jobs, err := s.store.ListSessionJobs(r.Context(), sessionID, limit)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if jobs == nil {
		jobs = []db.Job{}
	}
	s.jsonResponse(w, http.StatusOK, JobsResponse{Jobs: jobs, Count: len(jobs)})
}

// handleCreateJob queues an evaluation and returns immediately
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.startJob(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.runner.Execute(s.jobsCtx, job, nil)
	}()

	s.jsonResponse(w, http.StatusAccepted, JobAcceptedResponse{
		JobID:  job.ID.String(),
		Status: job.Status,
	})
}

// handleStreamJob runs an evaluation within the request, streaming progress
func (s *Server) handleStreamJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.startJob(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	result := s.runner.Execute(r.Context(), job, func(ev pipeline.ProgressEvent) {
		if err := sse.WriteEvent(EventProgress, ev); err != nil {
			s.logger.WithError(err).Debug("client stopped reading progress")
		}
	})
	if result.Status == types.StatusFailed && result.Error != "" {
		sse.WriteError(result.Error)
	}
	sse.WriteComplete(result)
}

// handleGetJob returns one job
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.ownedJob(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleListJobSteps returns the recorded stage executions of a job
func (s *Server) handleListJobSteps(w http.ResponseWriter, r *http.Request) {
	job, err := s.ownedJob(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	steps, err := s.store.ListJobSteps(r.Context(), job.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if steps == nil {
		steps = []db.JobStep{}
	}
	s.jsonResponse(w, http.StatusOK, StepsResponse{JobID: job.ID.String(), Steps: steps})
}

// handleListJobPivots returns the pivot history of a job
func (s *Server) handleListJobPivots(w http.ResponseWriter, r *http.Request) {
	job, err := s.ownedJob(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	pivots, err := s.store.ListPivots(r.Context(), job.ID)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if pivots == nil {
		pivots = []db.PivotEntry{}
	}
	s.jsonResponse(w, http.StatusOK, PivotsResponse{JobID: job.ID.String(), Pivots: pivots})
}

// handleGetJobReport returns the final report of a completed job
func (s *Server) handleGetJobReport(w http.ResponseWriter, r *http.Request) {
	job, err := s.ownedJob(r)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if job.FinalReport == nil {
		s.errorResponse(w, &ErrNotReady{JobID: job.ID.String(), Status: job.Status})
		return
	}

	resp := ReportResponse{JobID: job.ID.String(), Report: *job.FinalReport}
	if job.ReportType != nil {
		resp.ReportType = *job.ReportType
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// currentSession returns the authenticated session, confirming it still exists.
func (s *Server) currentSession(r *http.Request) (uuid.UUID, error) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		return uuid.Nil, &ErrUnauthorized{Reason: err.Error()}
	}
	if _, err := s.store.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return uuid.Nil, &ErrUnauthorized{Reason: "session not found"}
		}
		return uuid.Nil, err
	}
	return sessionID, nil
}

// ownedJob loads the job named in the path and checks it belongs to the caller.
func (s *Server) ownedJob(r *http.Request) (*db.Job, error) {
	sessionID, err := middleware.GetSessionID(r)
	if err != nil {
		return nil, &ErrUnauthorized{Reason: err.Error()}
	}
	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		return nil, err
	}
	if job.SessionID != sessionID {
		return nil, &ErrForbidden{Resource: "job"}
	}
	return job, nil
}

// startJob validates the request body and creates the pending job.
func (s *Server) startJob(r *http.Request) (*db.Job, error) {
	sessionID, err := s.currentSession(r)
	if err != nil {
		return nil, err
	}

	var req types.RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validate.Struct(&req); err != nil || strings.TrimSpace(req.Idea) == "" {
		return nil, &ErrValidation{Field: "idea", Message: "is required and must be at most 2000 characters"}
	}

	return s.runner.Start(r.Context(), sessionID, req.Idea)
}
