package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const quoteColumns = `id, user_id, number, client_name, client_email, client_address,
	items, tax_rate, subtotal, tax_amount, total, status, valid_until, notes,
	created_at, updated_at`

func scanQuote(row *sql.Row) (Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.UserID, &q.Number, &q.ClientName, &q.ClientEmail, &q.ClientAddress,
		&q.Items, &q.TaxRate, &q.Subtotal, &q.TaxAmount, &q.Total, &q.Status,
		&q.ValidUntil, &q.Notes, &q.CreatedAt, &q.UpdatedAt,
	)
	return q, err
}

// CreateQuoteParams contains the fields for inserting a quote.
type CreateQuoteParams struct {
	UserID        uuid.UUID
	Number        string
	ClientName    string
	ClientEmail   sql.NullString
	ClientAddress sql.NullString
	Items         json.RawMessage
	TaxRate       float64
	Subtotal      float64
	TaxAmount     float64
	Total         float64
	Status        string
	ValidUntil    sql.NullTime
	Notes         sql.NullString
}

// CreateQuote inserts a new quote.
func (q *Queries) CreateQuote(ctx context.Context, arg CreateQuoteParams) (Quote, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO quotes (user_id, number, client_name, client_email, client_address,
			items, tax_rate, subtotal, tax_amount, total, status, valid_until, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+quoteColumns,
		arg.UserID, arg.Number, arg.ClientName, arg.ClientEmail, arg.ClientAddress,
		arg.Items, arg.TaxRate, arg.Subtotal, arg.TaxAmount, arg.Total,
		arg.Status, arg.ValidUntil, arg.Notes,
	)
	return scanQuote(row)
}

// GetQuoteByIDAndUserIDParams scopes a quote lookup to its owner.
type GetQuoteByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// GetQuoteByIDAndUserID fetches a quote owned by the given user.
func (q *Queries) GetQuoteByIDAndUserID(ctx context.Context, arg GetQuoteByIDAndUserIDParams) (Quote, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID)
	return scanQuote(row)
}

// ListQuotesByUserIDParams contains pagination bounds for a quote list.
type ListQuotesByUserIDParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

// ListQuotesByUserID returns a user's quotes, newest first.
func (q *Queries) ListQuotesByUserID(ctx context.Context, arg ListQuotesByUserIDParams) ([]Quote, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+quoteColumns+`
		FROM quotes WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var item Quote
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Number, &item.ClientName, &item.ClientEmail,
			&item.ClientAddress, &item.Items, &item.TaxRate, &item.Subtotal,
			&item.TaxAmount, &item.Total, &item.Status, &item.ValidUntil, &item.Notes,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		quotes = append(quotes, item)
	}
	return quotes, rows.Err()
}

// CountQuotesByUserID returns the total number of quotes for a user.
func (q *Queries) CountQuotesByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM quotes WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// CountQuotesCreatedSinceParams bounds a quota usage count.
type CountQuotesCreatedSinceParams struct {
	UserID uuid.UUID
	Since  time.Time
}

// CountQuotesCreatedSince counts quotes created at or after Since, used
// for monthly quota enforcement.
func (q *Queries) CountQuotesCreatedSince(ctx context.Context, arg CountQuotesCreatedSinceParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM quotes WHERE user_id = $1 AND created_at >= $2`,
		arg.UserID, arg.Since).Scan(&count)
	return count, err
}

// CountQuotesByUserIDAndStatusParams bounds a per-status count.
type CountQuotesByUserIDAndStatusParams struct {
	UserID uuid.UUID
	Status string
	Since  time.Time
}

// CountQuotesByUserIDAndStatus counts quotes in a given status created
// at or after Since, used by the weekly summary email.
func (q *Queries) CountQuotesByUserIDAndStatus(ctx context.Context, arg CountQuotesByUserIDAndStatusParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM quotes WHERE user_id = $1 AND status = $2 AND created_at >= $3`,
		arg.UserID, arg.Status, arg.Since).Scan(&count)
	return count, err
}

// SumQuoteTotalsByUserIDAndStatus sums quote totals in a given status
// created at or after Since, used by the weekly summary email.
func (q *Queries) SumQuoteTotalsByUserIDAndStatus(ctx context.Context, arg CountQuotesByUserIDAndStatusParams) (float64, error) {
	var sum float64
	err := q.db.QueryRowContext(ctx,
		`SELECT coalesce(sum(total), 0) FROM quotes WHERE user_id = $1 AND status = $2 AND created_at >= $3`,
		arg.UserID, arg.Status, arg.Since).Scan(&sum)
	return sum, err
}

// UpdateQuoteByIDAndUserIDParams contains the writable quote fields.
type UpdateQuoteByIDAndUserIDParams struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ClientName    string
	ClientEmail   sql.NullString
	ClientAddress sql.NullString
	Items         json.RawMessage
	TaxRate       float64
	Subtotal      float64
	TaxAmount     float64
	Total         float64
	ValidUntil    sql.NullTime
	Notes         sql.NullString
}

// UpdateQuoteByIDAndUserID rewrites a quote's content. Status changes
// go through UpdateQuoteStatus so the transition check cannot be
// bypassed by a generic update.
func (q *Queries) UpdateQuoteByIDAndUserID(ctx context.Context, arg UpdateQuoteByIDAndUserIDParams) (Quote, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE quotes SET client_name = $3, client_email = $4, client_address = $5,
			items = $6, tax_rate = $7, subtotal = $8, tax_amount = $9, total = $10,
			valid_until = $11, notes = $12, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+quoteColumns,
		arg.ID, arg.UserID, arg.ClientName, arg.ClientEmail, arg.ClientAddress,
		arg.Items, arg.TaxRate, arg.Subtotal, arg.TaxAmount, arg.Total,
		arg.ValidUntil, arg.Notes,
	)
	return scanQuote(row)
}

// UpdateQuoteStatusParams contains the fields for a status write.
type UpdateQuoteStatusParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Status string
}

// UpdateQuoteStatus writes a new status.
func (q *Queries) UpdateQuoteStatus(ctx context.Context, arg UpdateQuoteStatusParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE quotes SET status = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID, arg.Status)
	return err
}

// DeleteQuoteByIDAndUserIDParams scopes a delete to the owner.
type DeleteQuoteByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// DeleteQuoteByIDAndUserID removes a quote permanently.
func (q *Queries) DeleteQuoteByIDAndUserID(ctx context.Context, arg DeleteQuoteByIDAndUserIDParams) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM quotes WHERE id = $1 AND user_id = $2`, arg.ID, arg.UserID)
	return err
}
