// Package api exposes the job-oriented HTTP surface: submitting a training
// run, polling its status, fetching its result, and cancelling it.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/automlerrors"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/jobs"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/pipeline"
)

const maxRequestBody = 64 << 20 // 64 MiB

// Server hosts the HTTP API over a job manager.
type Server struct {
	manager       *jobs.Manager
	maxSampleRows int
	log           *logging.Logger
	http          *http.Server
}

// NewServer builds the server and its routes. maxSampleRows is the
// server-side sampling cap applied to requests that do not set their own;
// zero disables the default.
func NewServer(addr string, manager *jobs.Manager, maxSampleRows int, log *logging.Logger) *Server {
	s := &Server{
		manager:       manager,
		maxSampleRows: maxSampleRows,
		log:           log.Component("api"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/train", s.handleTrain).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/result", s.handleResult).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/cancel", s.handleCancel).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts serving requests.
func (s *Server) ListenAndServe() error {
	s.log.Info("http server listening", logging.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", logging.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// trainRequest is the submit payload: the dataset inline as row maps plus
// the run configuration.
type trainRequest struct {
	Dataset struct {
		Name string           `json:"name"`
		Rows []map[string]any `json:"rows"`
	} `json:"dataset"`
	Config pipeline.Config `json:"config"`
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	name := req.Dataset.Name
	if name == "" {
		name = "upload"
	}
	ds, err := dataset.FromRows(name, req.Dataset.Rows)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Config.MaxSampleRows == 0 {
		req.Config.MaxSampleRows = s.maxSampleRows
	}

	jobID, err := s.manager.Submit(ds, req.Config)
	if err != nil {
		var verr *automlerrors.ValidationError
		var derr *automlerrors.UnsupportedDataTypeError
		if errors.As(err, &verr) || errors.As(err, &derr) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	views, err := s.manager.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	view, err := s.manager.GetStatus(jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown job "+jobID)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	result, err := s.manager.GetResult(jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown job "+jobID)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	err := s.manager.Cancel(jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		s.writeError(w, http.StatusNotFound, "unknown job "+jobID)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "cancelling"})
}
