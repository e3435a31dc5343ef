// Package jobs owns the asynchronous job lifecycle: accepting run requests,
// executing the pipeline off the request path, tracking stage and progress,
// and storing the outcome for polling clients.
package jobs

import (
	"errors"
	"time"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/pipeline"
)

// Status is the job lifecycle state. Terminal states are never left.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is one run request and its lifecycle state. Only the job manager
// mutates a job, and exactly one worker owns a given job at any time.
type Job struct {
	JobID     string              `json:"job_id"`
	Status    Status              `json:"status"`
	Stage     string              `json:"stage,omitempty"`
	Progress  int                 `json:"progress"`
	Config    pipeline.Config     `json:"config"`
	Result    *pipeline.RunResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// StatusView is the polling contract consumed by clients. It surfaces only
// the JSON-safe summary of a job.
type StatusView struct {
	JobID            string         `json:"job_id"`
	Status           Status         `json:"status"`
	Stage            string         `json:"stage,omitempty"`
	Progress         int            `json:"progress"`
	BestModel        string         `json:"best_model,omitempty"`
	Metrics          map[string]any `json:"metrics,omitempty"`
	SelectedFeatures []string       `json:"selected_features,omitempty"`
	TrainedModels    []string       `json:"trained_models,omitempty"`
	Error            string         `json:"error,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// View projects a job onto the polling contract.
func (j *Job) View() StatusView {
	v := StatusView{
		JobID:     j.JobID,
		Status:    j.Status,
		Stage:     j.Stage,
		Progress:  j.Progress,
		Error:     j.Error,
		Timestamp: j.UpdatedAt,
	}
	if j.Result != nil {
		v.BestModel = j.Result.BestModelName
		v.Metrics = j.Result.Metrics
		v.SelectedFeatures = j.Result.SelectedFeatures
		v.TrainedModels = j.Result.TrainedModels
	}
	return v
}

// ErrJobNotFound is returned when a job id is unknown to the store.
var ErrJobNotFound = errors.New("job not found")

// Store persists jobs. Implementations must be safe for concurrent use;
// the manager guarantees single-writer-per-job discipline above it.
type Store interface {
	Create(job *Job) error
	Update(job *Job) error
	Get(jobID string) (*Job, error)
	List() ([]*Job, error)
	Delete(jobID string) error
	Close() error
}
