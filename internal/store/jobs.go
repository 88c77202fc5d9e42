package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Job statuses.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// JobRecord is the persisted state of one background job.
type JobRecord struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	BookID     *int64     `json:"book_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	Metadata   string     `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// CreateJob inserts a pending job record.
func (s *Store) CreateJob(ctx context.Context, j JobRecord) error {
	if j.Status == "" {
		j.Status = JobStatusPending
	}
	if j.Metadata == "" {
		j.Metadata = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (job_id, job_type, status, book_id, error, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.Type, j.Status, j.BookID, j.Error, j.Metadata)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", j.ID, err)
	}
	return nil
}

// MarkJobRunning transitions a job to running and stamps the start time.
func (s *Store) MarkJobRunning(ctx context.Context, id string) error {
	return s.setJobStatus(ctx, id, JobStatusRunning, "", "started_at")
}

// MarkJobCompleted transitions a job to completed.
func (s *Store) MarkJobCompleted(ctx context.Context, id string) error {
	return s.setJobStatus(ctx, id, JobStatusCompleted, "", "finished_at")
}

// MarkJobFailed transitions a job to failed, recording the error text.
func (s *Store) MarkJobFailed(ctx context.Context, id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return s.setJobStatus(ctx, id, JobStatusFailed, msg, "finished_at")
}

func (s *Store) setJobStatus(ctx context.Context, id, status, errMsg, stampCol string) error {
	q := fmt.Sprintf(`UPDATE jobs SET status = ?, error = ?, %s = CURRENT_TIMESTAMP WHERE job_id = ?`, stampCol)
	res, err := s.db.ExecContext(ctx, q, status, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

const jobColumns = `job_id, job_type, status, book_id, error, metadata, created_at, started_at, finished_at`

func scanJob(row interface{ Scan(...any) error }) (JobRecord, error) {
	var j JobRecord
	var bookID sql.NullInt64
	var started, finished sql.NullTime
	err := row.Scan(&j.ID, &j.Type, &j.Status, &bookID, &j.Error, &j.Metadata,
		&j.CreatedAt, &started, &finished)
	if err != nil {
		return JobRecord{}, err
	}
	if bookID.Valid {
		j.BookID = &bookID.Int64
	}
	if started.Valid {
		j.StartedAt = &started.Time
	}
	if finished.Valid {
		j.FinishedAt = &finished.Time
	}
	return j, nil
}

// GetJob returns one job record.
func (s *Store) GetJob(ctx context.Context, id string) (JobRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return JobRecord{}, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return j, nil
}

// ListJobs returns job records newest first, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, status string) ([]JobRecord, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, job_id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
