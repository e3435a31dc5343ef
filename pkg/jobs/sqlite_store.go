package jobs

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists jobs across restarts. Writes are serialized by
// SQLite; WAL mode keeps reads from blocking on them.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) the job database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes are serialized anyway; keep the pool small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		stage TEXT,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// retryOnBusy retries an operation hitting SQLITE_BUSY with exponential
// backoff, as a safety net on top of the busy_timeout pragma.
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if err.Error() == "database is locked (5) (SQLITE_BUSY)" {
			backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
			time.Sleep(backoff)
			continue
		}
		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

// Create stores a new job row.
func (s *SQLiteStore) Create(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(
			`INSERT INTO jobs (job_id, status, stage, progress, created_at, updated_at, data)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			job.JobID, string(job.Status), job.Stage, job.Progress, job.CreatedAt, job.UpdatedAt, string(data))
		return err
	}, 5)
}

// Update replaces a job row.
func (s *SQLiteStore) Update(job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.retryOnBusy(func() error {
		res, err := s.db.Exec(
			`UPDATE jobs SET status = ?, stage = ?, progress = ?, updated_at = ?, data = ? WHERE job_id = ?`,
			string(job.Status), job.Stage, job.Progress, job.UpdatedAt, string(data), job.JobID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrJobNotFound
		}
		return nil
	}, 5)
}

// Get loads one job by id.
func (s *SQLiteStore) Get(jobID string) (*Job, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM jobs WHERE job_id = ?`, jobID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job := &Job{}
	if err := json.Unmarshal([]byte(data), job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return job, nil
}

// List returns all jobs, newest first.
func (s *SQLiteStore) List() ([]*Job, error) {
	rows, err := s.db.Query(`SELECT data FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		job := &Job{}
		if err := json.Unmarshal([]byte(data), job); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Delete removes a job row.
func (s *SQLiteStore) Delete(jobID string) error {
	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID)
		return err
	}, 5)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
