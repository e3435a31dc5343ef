package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/artifacts"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/dataset"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/pipeline"
)

// Manager owns the job lifecycle. It validates run requests, executes the
// pipeline on background workers, and is the single component translating
// pipeline errors into a job's terminal error state.
type Manager struct {
	store     Store
	runner    *pipeline.Runner
	artifacts *artifacts.Manager
	log       *logging.Logger

	retention time.Duration
	sem       chan struct{}
	cron      *cron.Cron

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager wires the store, runner, and artifact manager together.
// maxWorkers bounds how many jobs execute concurrently.
func NewManager(store Store, runner *pipeline.Runner, arts *artifacts.Manager, maxWorkers int, retention time.Duration, log *logging.Logger) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Manager{
		store:     store,
		runner:    runner,
		artifacts: arts,
		log:       log.Component("jobs"),
		retention: retention,
		sem:       make(chan struct{}, maxWorkers),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Submit validates the request, persists a queued job, and schedules the
// run on a background worker. It returns the job id immediately.
func (m *Manager) Submit(ds *dataset.Dataset, cfg pipeline.Config) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if err := ds.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	job := &Job{
		JobID:     uuid.NewString(),
		Status:    StatusQueued,
		Progress:  0,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Create(job); err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[job.JobID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.execute(ctx, job.JobID, ds, cfg)

	m.log.Info("job submitted", logging.JobID(job.JobID),
		logging.String("task_type", cfg.TaskType),
		logging.String("target", cfg.TargetColumn))
	return job.JobID, nil
}

// execute runs one job end to end. Exactly one goroutine owns the job's
// status record while it runs.
func (m *Manager) execute(ctx context.Context, jobID string, ds *dataset.Dataset, cfg pipeline.Config) {
	defer m.wg.Done()
	m.sem <- struct{}{}
	defer func() { <-m.sem }()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, jobID)
		m.mu.Unlock()
	}()

	m.updateJob(jobID, func(j *Job) {
		j.Status = StatusProcessing
		j.Stage = "loading"
		j.Progress = 5
	})

	progress := func(stage string, pct int) {
		m.updateJob(jobID, func(j *Job) {
			j.Stage = stage
			j.Progress = pct
		})
	}

	result, err := m.runner.Run(ctx, ds, cfg, progress)
	if err != nil {
		msg := err.Error()
		if ctx.Err() != nil {
			msg = "job cancelled"
		}
		m.updateJob(jobID, func(j *Job) {
			j.Status = StatusError
			j.Error = msg
			j.Progress = 100
		})
		m.log.Error("job failed", err, logging.JobID(jobID))
		return
	}

	m.updateJob(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Stage = "completed"
		j.Progress = 100
		j.Result = result
	})
	m.log.Info("job completed", logging.JobID(jobID), logging.RunID(result.RunID))
}

func (m *Manager) updateJob(jobID string, mutate func(*Job)) {
	job, err := m.store.Get(jobID)
	if err != nil {
		m.log.Warn("failed to load job for update", logging.JobID(jobID), logging.Err(err))
		return
	}
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(job); err != nil {
		m.log.Warn("failed to update job", logging.JobID(jobID), logging.Err(err))
	}
}

// GetStatus returns the polling view of a job.
func (m *Manager) GetStatus(jobID string) (StatusView, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return StatusView{}, err
	}
	return job.View(), nil
}

// GetResult returns the full run result of a completed job.
func (m *Manager) GetResult(jobID string) (*pipeline.RunResult, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != StatusCompleted {
		return nil, fmt.Errorf("job %s is %s, not completed", jobID, job.Status)
	}
	return job.Result, nil
}

// List returns the status views of all jobs, newest first.
func (m *Manager) List() ([]StatusView, error) {
	jobList, err := m.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]StatusView, len(jobList))
	for i, j := range jobList {
		out[i] = j.View()
	}
	return out, nil
}

// Cancel requests cooperative cancellation of a running job. The pipeline
// checks at stage boundaries; nothing stops mid-stage.
func (m *Manager) Cancel(jobID string) error {
	job, err := m.store.Get(jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return fmt.Errorf("job %s is already %s", jobID, job.Status)
	}

	m.mu.Lock()
	cancel, ok := m.cancels[jobID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s has no running worker", jobID)
	}
	cancel()
	m.log.Info("job cancellation requested", logging.JobID(jobID))
	return nil
}

// StartRetentionSweeper schedules an hourly sweep deleting terminal jobs
// older than the retention window and orphaned artifact staging
// directories.
func (m *Manager) StartRetentionSweeper() {
	m.cron = cron.New()
	m.cron.AddFunc("@hourly", m.sweep)
	m.cron.Start()
}

func (m *Manager) sweep() {
	jobList, err := m.store.List()
	if err != nil {
		m.log.Warn("retention sweep failed to list jobs", logging.Err(err))
		return
	}
	cutoff := time.Now().UTC().Add(-m.retention)
	removed := 0
	for _, job := range jobList {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			if err := m.store.Delete(job.JobID); err != nil {
				m.log.Warn("failed to delete expired job", logging.JobID(job.JobID), logging.Err(err))
				continue
			}
			removed++
		}
	}
	if err := m.artifacts.SweepStaging(m.retention); err != nil {
		m.log.Warn("staging sweep failed", logging.Err(err))
	}
	if removed > 0 {
		m.log.Info("retention sweep complete", logging.Int("removed", removed))
	}
}

// Shutdown stops the sweeper and waits for running jobs to finish.
func (m *Manager) Shutdown() {
	if m.cron != nil {
		m.cron.Stop()
	}
	m.wg.Wait()
}
