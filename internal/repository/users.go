package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, password_hash, name, phone, stripe_customer_id,
	subscription_status, subscription_tier, subscription_id,
	email_verified, email_verified_at, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.StripeCustomerID,
		&u.SubscriptionStatus, &u.SubscriptionTier, &u.SubscriptionID,
		&u.EmailVerified, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams contains the fields for inserting a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        sql.NullString
}

// CreateUser inserts a new user on the free tier.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.Name, arg.Phone,
	)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByStripeCustomerID fetches a user by Stripe customer id.
func (q *Queries) GetUserByStripeCustomerID(ctx context.Context, customerID string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)
	return scanUser(row)
}

// UpdateUserProfileParams contains the editable profile fields.
type UpdateUserProfileParams struct {
	ID    uuid.UUID
	Name  string
	Phone sql.NullString
}

// UpdateUserProfile updates a user's profile fields.
func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET name = $2, phone = $3, updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.Name, arg.Phone,
	)
	return err
}

// UpdateUserPasswordParams contains the fields for a password change.
type UpdateUserPasswordParams struct {
	ID           uuid.UUID
	PasswordHash string
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.PasswordHash,
	)
	return err
}

// UpdateUserEmailVerified marks a user's email as verified.
func (q *Queries) UpdateUserEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET email_verified = true, email_verified_at = now(), updated_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateUserSubscriptionParams contains the billing fields synced from
// Stripe webhooks.
type UpdateUserSubscriptionParams struct {
	ID                 uuid.UUID
	StripeCustomerID   sql.NullString
	SubscriptionID     sql.NullString
	SubscriptionStatus string
	SubscriptionTier   string
}

// UpdateUserSubscription updates the billing state of a user.
func (q *Queries) UpdateUserSubscription(ctx context.Context, arg UpdateUserSubscriptionParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET stripe_customer_id = $2, subscription_id = $3,
			subscription_status = $4, subscription_tier = $5, updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.StripeCustomerID, arg.SubscriptionID,
		arg.SubscriptionStatus, arg.SubscriptionTier,
	)
	return err
}

// UpdateUserStripeCustomerParams links a user to a Stripe customer.
type UpdateUserStripeCustomerParams struct {
	ID               uuid.UUID
	StripeCustomerID sql.NullString
}

// UpdateUserStripeCustomer records the Stripe customer id, set when the
// first checkout session is created.
func (q *Queries) UpdateUserStripeCustomer(ctx context.Context, arg UpdateUserStripeCustomerParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE users SET stripe_customer_id = $2, updated_at = now()
		WHERE id = $1`,
		arg.ID, arg.StripeCustomerID,
	)
	return err
}

// ListUsersWithWeeklyReport returns users who opted into the weekly
// summary email.
func (q *Queries) ListUsersWithWeeklyReport(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.password_hash, u.name, u.phone, u.stripe_customer_id,
			u.subscription_status, u.subscription_tier, u.subscription_id,
			u.email_verified, u.email_verified_at, u.created_at, u.updated_at
		FROM users u
		JOIN settings s ON s.user_id = u.id
		WHERE s.weekly_report = true
		ORDER BY u.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.StripeCustomerID,
			&u.SubscriptionStatus, &u.SubscriptionTier, &u.SubscriptionID,
			&u.EmailVerified, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// Sessions
// =============================================================================

// CreateSessionParams contains the fields for inserting a session.
type CreateSessionParams struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// CreateSession inserts a new session.
func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token_hash, expires_at, created_at`,
		arg.UserID, arg.TokenHash, arg.ExpiresAt,
	)
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

// GetSessionByTokenHash fetches a session by its hashed token.
func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions WHERE token_hash = $1 AND expires_at > now()`, tokenHash)
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

// DeleteSessionByTokenHash removes a single session (logout).
func (q *Queries) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteSessionsByUserID removes all of a user's sessions (password reset).
func (q *Queries) DeleteSessionsByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpiredSessions prunes sessions past their expiry.
func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// Email Verification Tokens
// =============================================================================

// CreateEmailVerificationTokenParams contains the fields for inserting
// a verification token. Any previous token for the user is replaced.
type CreateEmailVerificationTokenParams struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// CreateEmailVerificationToken inserts a verification token, replacing
// any existing one for the same user.
func (q *Queries) CreateEmailVerificationToken(ctx context.Context, arg CreateEmailVerificationTokenParams) (EmailVerificationToken, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO email_verification_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at, created_at = now()
		RETURNING id, user_id, token_hash, expires_at, created_at`,
		arg.UserID, arg.TokenHash, arg.ExpiresAt,
	)
	var t EmailVerificationToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

// GetEmailVerificationTokenByHash fetches a verification token.
func (q *Queries) GetEmailVerificationTokenByHash(ctx context.Context, tokenHash string) (EmailVerificationToken, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM email_verification_tokens WHERE token_hash = $1 AND expires_at > now()`, tokenHash)
	var t EmailVerificationToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

// DeleteEmailVerificationToken removes a consumed token.
func (q *Queries) DeleteEmailVerificationToken(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE id = $1`, id)
	return err
}

// DeleteExpiredEmailVerificationTokens removes expired verification
// tokens, returning how many were deleted.
func (q *Queries) DeleteExpiredEmailVerificationTokens(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// Password Reset Tokens
// =============================================================================

// CreatePasswordResetTokenParams contains the fields for inserting a
// reset token. Any previous token for the user is replaced.
type CreatePasswordResetTokenParams struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// CreatePasswordResetToken inserts a reset token, replacing any
// existing one for the same user.
func (q *Queries) CreatePasswordResetToken(ctx context.Context, arg CreatePasswordResetTokenParams) (PasswordResetToken, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash, expires_at = EXCLUDED.expires_at,
			used = false, created_at = now()
		RETURNING id, user_id, token_hash, expires_at, used, created_at`,
		arg.UserID, arg.TokenHash, arg.ExpiresAt,
	)
	var t PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	return t, err
}

// GetPasswordResetTokenByHash fetches a live reset token. Expired and
// already-used tokens are filtered out here.
func (q *Queries) GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (PasswordResetToken, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1 AND used = false AND expires_at > now()`, tokenHash)
	var t PasswordResetToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	return t, err
}

// MarkPasswordResetTokenUsed consumes a reset token. The row is kept
// for auditing.
func (q *Queries) MarkPasswordResetTokenUsed(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE password_reset_tokens SET used = true WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpiredPasswordResetTokens removes expired reset tokens,
// returning how many were deleted.
func (q *Queries) DeleteExpiredPasswordResetTokens(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
