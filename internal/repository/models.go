package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User mirrors the users table.
type User struct {
	ID                 uuid.UUID
	Email              string
	PasswordHash       string
	Name               string
	Phone              sql.NullString
	StripeCustomerID   sql.NullString
	SubscriptionStatus string
	SubscriptionTier   string
	SubscriptionID     sql.NullString
	EmailVerified      bool
	EmailVerifiedAt    sql.NullTime
	CreatedAt          sql.NullTime
	UpdatedAt          sql.NullTime
}

// Session mirrors the sessions table. Only the token hash is stored.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt sql.NullTime
}

// EmailVerificationToken mirrors the email_verification_tokens table.
type EmailVerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt sql.NullTime
}

// PasswordResetToken mirrors the password_reset_tokens table. Consumed
// tokens are marked used rather than deleted.
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt sql.NullTime
}

// Quote mirrors the quotes table. Items is the JSONB-encoded ordered
// line item list; the service layer owns its shape.
type Quote struct {
	ID            uuid.UUID
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
	CreatedAt     sql.NullTime
	UpdatedAt     sql.NullTime
}

// Client mirrors the clients table.
type Client struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Email       sql.NullString
	Phone       sql.NullString
	Address     sql.NullString
	TotalSpent  float64
	QuotesCount int32
	CreatedAt   sql.NullTime
	UpdatedAt   sql.NullTime
}

// ClientContribution mirrors the client_contributions table. One row
// per quote, recording the amount already applied to the client ledger.
type ClientContribution struct {
	QuoteID   uuid.UUID
	ClientID  uuid.UUID
	Amount    float64
	UpdatedAt sql.NullTime
}

// Company mirrors the companies table, keyed by user id.
type Company struct {
	UserID       uuid.UUID
	Name         string
	Siret        string
	LegalForm    string
	TvaNumber    sql.NullString
	Address      string
	Phone        string
	Email        string
	Website      sql.NullString
	LogoKey      sql.NullString
	PrimaryColor sql.NullString
	UpdatedAt    sql.NullTime
}

// Setting mirrors the settings table, keyed by user id.
type Setting struct {
	UserID               uuid.UUID
	DefaultTaxRate       float64
	DefaultValidityDays  int32
	QuotePrefix          string
	DefaultLegalMentions string
	Theme                string
	Language             string
	EmailOnQuoteCreated  bool
	EmailOnQuoteAccepted bool
	WeeklyReport         bool
	ProductUpdates       bool
	UpdatedAt            sql.NullTime
}

// Job mirrors the jobs table backing the background worker.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      json.RawMessage
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    sql.NullTime
	UpdatedAt    sql.NullTime
}
