// Package service contains the business logic layer.
//
// This file implements the client service: dashboard CRUD plus the
// ledger that accumulates per-client spend as quotes are saved.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ClientService defines the interface for client-related operations.
//
// The ledger half (ApplyQuote/ReverseQuote) is invoked by the quote
// service on every save and delete. Each quote contributes to a
// client's accumulators exactly once, keyed by quote id: re-saving
// supersedes the earlier contribution instead of incrementing again,
// and deleting the quote reverses it.
type ClientService interface {
	// Create creates a new client.
	// Returns domain.EINVALID for validation errors and domain.ECONFLICT
	// when the name is already taken within the owner's scope.
	Create(ctx context.Context, params domain.CreateClientParams) (*domain.Client, error)

	// GetByID retrieves a client by ID and user ID (for authorization).
	// Returns domain.ENOTFOUND if the client does not exist or belongs
	// to another user.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Client, error)

	// List retrieves a paginated list of clients for a user.
	List(ctx context.Context, params domain.ListClientsParams) (*domain.ListClientsResult, error)

	// ListAll retrieves all clients for a user (for dropdowns).
	ListAll(ctx context.Context, userID uuid.UUID) ([]domain.Client, error)

	// Update updates an existing client.
	Update(ctx context.Context, params domain.UpdateClientParams) error

	// Delete deletes a client and its recorded quote contributions.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// ApplyQuote credits a quote's total to the ledger entry matched by
	// exact client name within the owner's scope, creating the entry if
	// needed. Applying the same quote again adjusts the stored
	// contribution instead of double-counting.
	ApplyQuote(ctx context.Context, userID uuid.UUID, quote *domain.Quote) error

	// ReverseQuote removes a deleted quote's contribution from the
	// ledger. Unknown quote ids are a no-op.
	ReverseQuote(ctx context.Context, quoteID uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type clientService struct {
	db      *sql.DB
	queries *repository.Queries
	logger  *slog.Logger
}

// NewClientService creates a new ClientService.
func NewClientService(db *sql.DB, queries *repository.Queries, logger *slog.Logger) ClientService {
	return &clientService{
		db:      db,
		queries: queries,
		logger:  logger,
	}
}

// =============================================================================
// Create
// =============================================================================

// Create creates a new client.
func (s *clientService) Create(ctx context.Context, params domain.CreateClientParams) (*domain.Client, error) {
	const op = "client.create"

	if err := validateClientName(op, params.Name); err != nil {
		return nil, err
	}

	// Exact-name uniqueness within the owner's scope
	_, err := s.queries.GetClientByNameAndUserID(ctx, repository.GetClientByNameAndUserIDParams{
		UserID: params.UserID,
		Name:   params.Name,
	})
	if err == nil {
		return nil, domain.Conflict(op, "a client with this name already exists")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check client name")
	}

	row, err := s.queries.CreateClient(ctx, repository.CreateClientParams{
		UserID:  params.UserID,
		Name:    strings.TrimSpace(params.Name),
		Email:   domain.ToNullString(params.Email),
		Phone:   domain.ToNullString(params.Phone),
		Address: domain.ToNullString(params.Address),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create client")
	}

	client := rowToClient(row)

	s.logger.Info("client created",
		"client_id", client.ID,
		"user_id", params.UserID,
		"name", params.Name,
	)

	return client, nil
}

func validateClientName(op, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Invalid(op, "name is required")
	}
	if len(name) > 255 {
		return domain.Invalid(op, "name must be 255 characters or less")
	}
	return nil
}

// =============================================================================
// GetByID / List
// =============================================================================

// GetByID retrieves a client by ID.
func (s *clientService) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Client, error) {
	const op = "client.get"

	row, err := s.queries.GetClientByIDAndUserID(ctx, repository.GetClientByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "client", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get client")
	}

	return rowToClient(row), nil
}

// List retrieves a paginated list of clients.
func (s *clientService) List(ctx context.Context, params domain.ListClientsParams) (*domain.ListClientsResult, error) {
	const op = "client.list"

	total, err := s.queries.CountClientsByUserID(ctx, params.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count clients")
	}

	rows, err := s.queries.ListClientsByUserID(ctx, repository.ListClientsByUserIDParams{
		UserID: params.UserID,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list clients")
	}

	clients := make([]domain.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, *rowToClient(row))
	}

	return &domain.ListClientsResult{
		Clients: clients,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
	}, nil
}

// ListAll retrieves all clients for a user (for dropdowns).
func (s *clientService) ListAll(ctx context.Context, userID uuid.UUID) ([]domain.Client, error) {
	const op = "client.list_all"

	rows, err := s.queries.ListAllClientsByUserID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list clients")
	}

	clients := make([]domain.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, *rowToClient(row))
	}

	return clients, nil
}

// =============================================================================
// Update / Delete
// =============================================================================

// Update updates an existing client.
func (s *clientService) Update(ctx context.Context, params domain.UpdateClientParams) error {
	const op = "client.update"

	if err := validateClientName(op, params.Name); err != nil {
		return err
	}

	_, err := s.queries.GetClientByIDAndUserID(ctx, repository.GetClientByIDAndUserIDParams{
		ID:     params.ID,
		UserID: params.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "client", params.ID.String())
		}
		return domain.Internal(err, op, "failed to get client")
	}

	err = s.queries.UpdateClientByIDAndUserID(ctx, repository.UpdateClientByIDAndUserIDParams{
		ID:      params.ID,
		UserID:  params.UserID,
		Name:    strings.TrimSpace(params.Name),
		Email:   domain.ToNullString(params.Email),
		Phone:   domain.ToNullString(params.Phone),
		Address: domain.ToNullString(params.Address),
	})
	if err != nil {
		return domain.Internal(err, op, "failed to update client")
	}

	s.logger.Info("client updated",
		"client_id", params.ID,
		"user_id", params.UserID,
	)

	return nil
}

// Delete deletes a client. Contribution rows cascade with it; the
// quotes themselves are left untouched.
func (s *clientService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	const op = "client.delete"

	_, err := s.queries.GetClientByIDAndUserID(ctx, repository.GetClientByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "client", id.String())
		}
		return domain.Internal(err, op, "failed to get client")
	}

	err = s.queries.DeleteClientByIDAndUserID(ctx, repository.DeleteClientByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		return domain.Internal(err, op, "failed to delete client")
	}

	s.logger.Info("client deleted",
		"client_id", id,
		"user_id", userID,
	)

	return nil
}

// =============================================================================
// Ledger
// =============================================================================

// ApplyQuote credits a quote's total to the matching ledger entry.
// The whole operation runs in one transaction so the accumulator and
// the contribution row can never diverge.
func (s *clientService) ApplyQuote(ctx context.Context, userID uuid.UUID, quote *domain.Quote) error {
	const op = "client.apply_quote"

	name := strings.TrimSpace(quote.ClientName)
	if name == "" {
		return domain.Invalid(op, "quote has no client name")
	}
	amount := domain.RoundMoney(quote.Total)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	// Find or create the ledger entry by exact name
	client, err := qtx.GetClientByNameAndUserID(ctx, repository.GetClientByNameAndUserIDParams{
		UserID: userID,
		Name:   name,
	})
	if errors.Is(err, sql.ErrNoRows) {
		client, err = qtx.CreateClient(ctx, repository.CreateClientParams{
			UserID:  userID,
			Name:    name,
			Email:   domain.ToNullString(quote.ClientEmail),
			Address: domain.ToNullString(quote.ClientAddress),
		})
	}
	if err != nil {
		return domain.Internal(err, op, "failed to resolve client")
	}

	// Refresh contact fields carried by the quote
	if quote.ClientEmail != "" || quote.ClientAddress != "" {
		err = qtx.UpdateClientContact(ctx, repository.UpdateClientContactParams{
			ID:      client.ID,
			Email:   domain.ToNullString(quote.ClientEmail),
			Address: domain.ToNullString(quote.ClientAddress),
		})
		if err != nil {
			return domain.Internal(err, op, "failed to refresh client contact")
		}
	}

	// Compute the deltas against any contribution this quote already made
	var prevPtr *repository.ClientContribution
	prev, err := qtx.GetContributionByQuoteID(ctx, quote.ID)
	switch {
	case err == nil:
		prevPtr = &prev
	case errors.Is(err, sql.ErrNoRows):
		// First application of this quote
	default:
		return domain.Internal(err, op, "failed to read contribution")
	}

	for _, adj := range ledgerDeltas(prevPtr, client.ID, amount) {
		if err := qtx.AdjustClientLedger(ctx, adj); err != nil {
			return domain.Internal(err, op, "failed to adjust ledger")
		}
	}

	if err := qtx.UpsertContribution(ctx, repository.UpsertContributionParams{
		QuoteID:  quote.ID,
		ClientID: client.ID,
		Amount:   amount,
	}); err != nil {
		return domain.Internal(err, op, "failed to record contribution")
	}

	if err := tx.Commit(); err != nil {
		return domain.Internal(err, op, "failed to commit")
	}

	return nil
}

// ReverseQuote removes a quote's ledger contribution.
func (s *clientService) ReverseQuote(ctx context.Context, quoteID uuid.UUID) error {
	const op = "client.reverse_quote"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	prev, err := qtx.GetContributionByQuoteID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The quote never reached the ledger
			return nil
		}
		return domain.Internal(err, op, "failed to read contribution")
	}

	if err := qtx.AdjustClientLedger(ctx, repository.AdjustClientLedgerParams{
		ID:         prev.ClientID,
		SpentDelta: -prev.Amount,
		CountDelta: -1,
	}); err != nil {
		return domain.Internal(err, op, "failed to adjust ledger")
	}

	if err := qtx.DeleteContribution(ctx, quoteID); err != nil {
		return domain.Internal(err, op, "failed to delete contribution")
	}

	if err := tx.Commit(); err != nil {
		return domain.Internal(err, op, "failed to commit")
	}

	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// ledgerDeltas computes the accumulator adjustments needed to make the
// ledger reflect a quote worth amount attributed to clientID, given the
// contribution the quote previously made (nil if none). Re-applying the
// same amount to the same client yields a zero adjustment, so saves are
// idempotent; a quote that changed client reverses the old entry fully
// before crediting the new one.
func ledgerDeltas(prev *repository.ClientContribution, clientID uuid.UUID, amount float64) []repository.AdjustClientLedgerParams {
	if prev == nil {
		return []repository.AdjustClientLedgerParams{
			{ID: clientID, SpentDelta: amount, CountDelta: 1},
		}
	}
	if prev.ClientID == clientID {
		return []repository.AdjustClientLedgerParams{
			{ID: clientID, SpentDelta: amount - prev.Amount, CountDelta: 0},
		}
	}
	return []repository.AdjustClientLedgerParams{
		{ID: prev.ClientID, SpentDelta: -prev.Amount, CountDelta: -1},
		{ID: clientID, SpentDelta: amount, CountDelta: 1},
	}
}

// rowToClient converts a repository client row to a domain Client.
func rowToClient(row repository.Client) *domain.Client {
	client := &domain.Client{
		ID:          row.ID,
		UserID:      row.UserID,
		Name:        row.Name,
		Email:       domain.NullStringValue(row.Email),
		Phone:       domain.NullStringValue(row.Phone),
		Address:     domain.NullStringValue(row.Address),
		TotalSpent:  row.TotalSpent,
		QuotesCount: int(row.QuotesCount),
	}
	if t := domain.NullTimeValue(row.CreatedAt); t != nil {
		client.CreatedAt = *t
	}
	if t := domain.NullTimeValue(row.UpdatedAt); t != nil {
		client.UpdatedAt = *t
	}
	return client
}
