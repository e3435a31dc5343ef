package jobs

import (
	"sort"
	"sync"
)

// MemoryStore is the default in-process job store: a mutex-guarded map of
// deep-copied jobs keyed by job id.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func copyJob(j *Job) *Job {
	c := *j
	return &c
}

// Create stores a new job.
func (s *MemoryStore) Create(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = copyJob(job)
	return nil
}

// Update replaces a job's stored state.
func (s *MemoryStore) Update(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.JobID]; !ok {
		return ErrJobNotFound
	}
	s.jobs[job.JobID] = copyJob(job)
	return nil
}

// Get returns a copy of the stored job.
func (s *MemoryStore) Get(jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

// List returns all jobs, newest first.
func (s *MemoryStore) List() ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, copyJob(j))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

// Delete removes a job.
func (s *MemoryStore) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
