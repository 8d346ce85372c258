package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
	error_message, scheduled_at, started_at, completed_at, created_at, updated_at`

func scanJob(row *sql.Row) (Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts,
		&j.MaxAttempts, &j.ErrorMessage, &j.ScheduledAt, &j.StartedAt,
		&j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// EnqueueJobParams contains the fields for inserting a job.
type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO jobs (job_type, payload, status, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING `+jobColumns,
		arg.JobType, arg.Payload, arg.Priority, arg.MaxAttempts, arg.ScheduledAt,
	)
	return scanJob(row)
}

// DequeueJob claims the next runnable job using SKIP LOCKED so
// concurrent workers never grab the same row. Returns sql.ErrNoRows
// when the queue is empty.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'pending' AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)
	return scanJob(row)
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'running', attempts = attempts + 1,
			started_at = now(), updated_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobCompleted marks a job as successfully completed.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'completed', completed_at = now(), updated_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobFailedParams records a failure message for a job.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// UpdateJobFailed marks a job as failed or reschedules it with
// exponential backoff while attempts remain.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET
			status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at
				ELSE now() + (interval '30 seconds' * power(2, attempts)) END,
			error_message = $2,
			updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.ErrorMessage)
	return err
}

// RecoverStaleJobs resets jobs stuck in running longer than the
// threshold back to pending. Returns the number of recovered jobs.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'pending', updated_at = now()
		WHERE status = 'running'
		AND started_at < now() - ($1 * interval '1 second')`,
		thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountPendingJobs returns the queue depth, exported as a gauge.
func (q *Queries) CountPendingJobs(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM jobs WHERE status = 'pending'`).Scan(&count)
	return count, err
}
