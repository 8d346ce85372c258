package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InsertAICall records one completed AI drafting call for quota
// accounting.
func (q *Queries) InsertAICall(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO ai_calls (user_id) VALUES ($1)`, userID)
	return err
}

// CountAICallsSinceParams bounds a quota usage count.
type CountAICallsSinceParams struct {
	UserID uuid.UUID
	Since  time.Time
}

// CountAICallsSince counts AI calls made at or after Since, used for
// monthly quota enforcement.
func (q *Queries) CountAICallsSince(ctx context.Context, arg CountAICallsSinceParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM ai_calls WHERE user_id = $1 AND created_at >= $2`,
		arg.UserID, arg.Since).Scan(&count)
	return count, err
}
