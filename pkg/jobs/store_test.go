package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	job := &Job{JobID: "j1", Status: StatusQueued, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Create(job))

	got, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)

	// The store hands out copies, not the live record.
	got.Status = StatusCompleted
	again, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, again.Status)

	job.Status = StatusProcessing
	require.NoError(t, s.Update(job))
	got, err = s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	require.NoError(t, s.Delete("j1"))
	_, err = s.Get("j1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(&Job{JobID: "ghost"})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	require.NoError(t, s.Create(&Job{JobID: "old", CreatedAt: base.Add(-time.Hour)}))
	require.NoError(t, s.Create(&Job{JobID: "new", CreatedAt: base}))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].JobID)
	assert.Equal(t, "old", list[1].JobID)
}

func TestSQLiteStoreCRUD(t *testing.T) {
	s, err := NewSQLiteStore(t.TempDir() + "/jobs.db")
	require.NoError(t, err)
	defer s.Close()

	job := &Job{
		JobID:     "j1",
		Status:    StatusQueued,
		Stage:     "loading",
		Progress:  5,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Create(job))

	got, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Equal(t, "loading", got.Stage)

	job.Status = StatusCompleted
	job.Progress = 100
	require.NoError(t, s.Update(job))

	got, err = s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete("j1"))
	_, err = s.Get("j1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSQLiteStoreUpdateMissing(t *testing.T) {
	s, err := NewSQLiteStore(t.TempDir() + "/jobs.db")
	require.NoError(t, err)
	defer s.Close()

	err = s.Update(&Job{JobID: "ghost"})
	assert.ErrorIs(t, err, ErrJobNotFound)
}
