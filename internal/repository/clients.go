package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const clientColumns = `id, user_id, name, email, phone, address,
	total_spent, quotes_count, created_at, updated_at`

func scanClient(row *sql.Row) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address,
		&c.TotalSpent, &c.QuotesCount, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// CreateClientParams contains the fields for inserting a client.
type CreateClientParams struct {
	UserID  uuid.UUID
	Name    string
	Email   sql.NullString
	Phone   sql.NullString
	Address sql.NullString
}

// CreateClient inserts a new client with zeroed ledger accumulators.
func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO clients (user_id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+clientColumns,
		arg.UserID, arg.Name, arg.Email, arg.Phone, arg.Address,
	)
	return scanClient(row)
}

// GetClientByIDAndUserIDParams scopes a client lookup to its owner.
type GetClientByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// GetClientByIDAndUserID fetches a client owned by the given user.
func (q *Queries) GetClientByIDAndUserID(ctx context.Context, arg GetClientByIDAndUserIDParams) (Client, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID)
	return scanClient(row)
}

// GetClientByNameAndUserIDParams is the ledger's exact-name lookup key.
type GetClientByNameAndUserIDParams struct {
	UserID uuid.UUID
	Name   string
}

// GetClientByNameAndUserID fetches a client by its exact name within an
// owner's scope.
func (q *Queries) GetClientByNameAndUserID(ctx context.Context, arg GetClientByNameAndUserIDParams) (Client, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE user_id = $1 AND name = $2`,
		arg.UserID, arg.Name)
	return scanClient(row)
}

// ListClientsByUserIDParams contains pagination bounds for a client list.
type ListClientsByUserIDParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

// ListClientsByUserID returns a page of clients ordered by name.
func (q *Queries) ListClientsByUserID(ctx context.Context, arg ListClientsByUserIDParams) ([]Client, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients WHERE user_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`,
		arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClients(rows)
}

// ListAllClientsByUserID returns every client for a user, for dropdowns.
func (q *Queries) ListAllClientsByUserID(ctx context.Context, userID uuid.UUID) ([]Client, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients WHERE user_id = $1
		ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectClients(rows)
}

func collectClients(rows *sql.Rows) ([]Client, error) {
	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.TotalSpent, &c.QuotesCount, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CountClientsByUserID returns the total number of clients for a user.
func (q *Queries) CountClientsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT count(*) FROM clients WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// UpdateClientByIDAndUserIDParams contains the editable client fields.
type UpdateClientByIDAndUserIDParams struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Name    string
	Email   sql.NullString
	Phone   sql.NullString
	Address sql.NullString
}

// UpdateClientByIDAndUserID updates a client's identity and contact
// fields. Ledger accumulators are only touched by AdjustClientLedger.
func (q *Queries) UpdateClientByIDAndUserID(ctx context.Context, arg UpdateClientByIDAndUserIDParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clients SET name = $3, email = $4, phone = $5, address = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2`,
		arg.ID, arg.UserID, arg.Name, arg.Email, arg.Phone, arg.Address)
	return err
}

// UpdateClientContactParams refreshes contact fields from a quote save.
type UpdateClientContactParams struct {
	ID      uuid.UUID
	Email   sql.NullString
	Phone   sql.NullString
	Address sql.NullString
}

// UpdateClientContact refreshes a client's contact fields, keeping any
// existing value when the quote carried none.
func (q *Queries) UpdateClientContact(ctx context.Context, arg UpdateClientContactParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clients SET
			email = COALESCE($2, email),
			phone = COALESCE($3, phone),
			address = COALESCE($4, address),
			updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.Email, arg.Phone, arg.Address)
	return err
}

// DeleteClientByIDAndUserIDParams scopes a delete to the owner.
type DeleteClientByIDAndUserIDParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// DeleteClientByIDAndUserID removes a client and, via cascade, its
// recorded quote contributions.
func (q *Queries) DeleteClientByIDAndUserID(ctx context.Context, arg DeleteClientByIDAndUserIDParams) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM clients WHERE id = $1 AND user_id = $2`, arg.ID, arg.UserID)
	return err
}

// =============================================================================
// Ledger Contributions
// =============================================================================

// AdjustClientLedgerParams applies a delta to a client's accumulators.
type AdjustClientLedgerParams struct {
	ID         uuid.UUID
	SpentDelta float64
	CountDelta int32
}

// AdjustClientLedger moves the ledger accumulators by the given deltas.
func (q *Queries) AdjustClientLedger(ctx context.Context, arg AdjustClientLedgerParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE clients SET total_spent = total_spent + $2,
			quotes_count = quotes_count + $3, updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.SpentDelta, arg.CountDelta)
	return err
}

// GetContributionByQuoteID fetches the recorded ledger contribution of
// a quote, if any.
func (q *Queries) GetContributionByQuoteID(ctx context.Context, quoteID uuid.UUID) (ClientContribution, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT quote_id, client_id, amount, updated_at
		FROM client_contributions WHERE quote_id = $1`, quoteID)
	var c ClientContribution
	err := row.Scan(&c.QuoteID, &c.ClientID, &c.Amount, &c.UpdatedAt)
	return c, err
}

// UpsertContributionParams records a quote's applied ledger amount.
type UpsertContributionParams struct {
	QuoteID  uuid.UUID
	ClientID uuid.UUID
	Amount   float64
}

// UpsertContribution records or replaces the contribution row for a
// quote. The quote id primary key is what makes ledger application
// idempotent.
func (q *Queries) UpsertContribution(ctx context.Context, arg UpsertContributionParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO client_contributions (quote_id, client_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (quote_id) DO UPDATE
		SET client_id = EXCLUDED.client_id, amount = EXCLUDED.amount, updated_at = now()`,
		arg.QuoteID, arg.ClientID, arg.Amount)
	return err
}

// DeleteContribution removes a quote's contribution row.
func (q *Queries) DeleteContribution(ctx context.Context, quoteID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM client_contributions WHERE quote_id = $1`, quoteID)
	return err
}
