// This file implements authentication and account management: sessions,
// email verification, password reset and billing state.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 provides good security (~250ms on modern hardware) while being
	// fast enough for login flows. NIST recommends cost 10+.
	//
	// SECURITY NOTE: This should NOT be configurable at runtime to prevent
	// accidental weakening. If you need to change it, do so here and redeploy.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy, sufficient for cryptographic security.
	// The token is then hex-encoded to 64 characters for storage/transmission.
	SessionTokenBytes = 32

	// DefaultSessionDuration is how long a session remains valid unless
	// configured otherwise.
	DefaultSessionDuration = 24 * time.Hour

	// MinSessionDuration is the shortest configurable session lifetime.
	MinSessionDuration = 15 * time.Minute

	// MaxSessionDuration is the longest configurable session lifetime.
	MaxSessionDuration = 30 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	// NIST SP 800-63B recommends 8+ characters minimum.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for user-related operations.
type UserService interface {
	// Register creates a new user account.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns the user and raw session token on success.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token.
	// This is idempotent - calling with an invalid token is not an error.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	// Returns domain.ENOTFOUND if user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken retrieves a user by their session token.
	// Returns domain.EUNAUTHORIZED if token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// UpdateProfile updates a user's profile information.
	// Returns domain.ENOTFOUND if user does not exist.
	UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) error

	// ChangePassword changes a user's password.
	// Validates the current password before allowing the change.
	// Invalidates all existing sessions after password change.
	// Returns domain.EUNAUTHORIZED if current password is wrong.
	ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error

	// DeleteExpiredSessions removes all expired sessions from the database.
	// This should be called periodically (e.g., daily) to clean up.
	DeleteExpiredSessions(ctx context.Context) error

	// =========================================================================
	// Email Verification Methods
	// =========================================================================

	// CreateEmailVerificationToken creates a new email verification token.
	// Returns the raw token (to send in email) and expiration time.
	// Replaces any existing token for the user.
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error)

	// VerifyEmail validates a verification token and marks the user verified.
	// Returns domain.ENOTFOUND if token is invalid or expired.
	// Returns domain.ECONFLICT if user is already verified.
	VerifyEmail(ctx context.Context, token string) error

	// ResendVerificationEmail creates a new verification token for an
	// unverified user.
	ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error)

	// DeleteExpiredEmailVerificationTokens removes expired verification
	// tokens. Periodic cleanup task.
	DeleteExpiredEmailVerificationTokens(ctx context.Context) error

	// =========================================================================
	// Password Reset Methods
	// =========================================================================

	// CreatePasswordResetToken creates a new password reset token.
	// Returns domain.ENOTFOUND if email does not exist (for security,
	// caller should NOT expose this to end user - always show "if email
	// exists..." message).
	CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error)

	// ValidatePasswordResetToken checks if a reset token is valid and
	// returns the associated user ID.
	ValidatePasswordResetToken(ctx context.Context, token string) (uuid.UUID, error)

	// ResetPassword validates the token and updates the user's password.
	// On success: updates password, marks token as used, invalidates all
	// sessions.
	ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error

	// DeleteExpiredPasswordResetTokens removes expired reset tokens.
	// Periodic cleanup task.
	DeleteExpiredPasswordResetTokens(ctx context.Context) error

	// =========================================================================
	// Billing Methods
	// =========================================================================

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error

	// UpdateSubscription updates a user's subscription status, tier, and ID.
	UpdateSubscription(ctx context.Context, params domain.SubscriptionUpdateParams) error

	// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
	// Returns domain.ENOTFOUND if no user has that customer ID.
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error)
}

// =============================================================================
// Implementation
// =============================================================================

// UserServiceConfig carries the tunable parts of the user service.
type UserServiceConfig struct {
	// SessionDuration is how long new sessions remain valid. Zero means
	// DefaultSessionDuration; out-of-range values are clamped.
	SessionDuration time.Duration
}

// normalizeSessionDuration clamps a configured session duration into
// the allowed range, substituting the default for zero.
func normalizeSessionDuration(d time.Duration) time.Duration {
	if d == 0 {
		return DefaultSessionDuration
	}
	if d < MinSessionDuration {
		return MinSessionDuration
	}
	if d > MaxSessionDuration {
		return MaxSessionDuration
	}
	return d
}

// userService is the concrete implementation of UserService.
type userService struct {
	queries         *repository.Queries
	logger          *slog.Logger
	sessionDuration time.Duration
}

// NewUserService creates a new UserService instance with default
// configuration.
func NewUserService(queries *repository.Queries, logger *slog.Logger) UserService {
	return NewUserServiceWithConfig(queries, logger, UserServiceConfig{})
}

// NewUserServiceWithConfig creates a new UserService with an explicit
// configuration.
func NewUserServiceWithConfig(queries *repository.Queries, logger *slog.Logger, cfg UserServiceConfig) UserService {
	return &userService{
		queries:         queries,
		logger:          logger,
		sessionDuration: normalizeSessionDuration(cfg.SessionDuration),
	}
}

// =============================================================================
// Register Implementation
// =============================================================================

// Register creates a new user account with the provided parameters.
//
// Security Considerations:
// - Password is hashed with bcrypt cost 12
// - Timing attacks are mitigated by always hashing even on duplicate email
// - The raw password is never logged or stored
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	// Validate and normalize input
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	params.Phone = strings.TrimSpace(params.Phone)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}

	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}

	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	// Check if email already exists
	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		// User exists - to prevent timing attacks, we hash the password anyway
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	repoUser, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Name:         params.Name,
		Phone:        domain.ToNullString(params.Phone),
	})
	if err != nil {
		// Check for unique constraint violation (race condition)
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)

	return user, nil
}

// =============================================================================
// Login Implementation
// =============================================================================

// Login authenticates a user and creates a new session.
//
// Security Considerations:
// - Constant-time password comparison via bcrypt
// - Generic error message prevents email enumeration
// - Session token is only returned once (not stored anywhere in plaintext)
// - Token is hashed before storage (if DB is compromised, tokens are useless)
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		// If user not found, still do a bcrypt comparison to prevent timing attacks
		if errors.Is(err, sql.ErrNoRows) {
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW" // bcrypt hash of "dummy"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	err = bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password))
	if err != nil {
		// Password mismatch - use same error message as user not found
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	tokenHash := hashSessionToken(token)
	expiresAt := time.Now().Add(s.sessionDuration)

	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    repoUser.ID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return &domain.LoginResult{
		User:  user,
		Token: token,
	}, nil
}

// =============================================================================
// Logout Implementation
// =============================================================================

// Logout invalidates a session. Idempotent: an invalid or
// already-deleted token simply does nothing.
func (s *userService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	// Token should be 64 hex characters
	if len(token) != 64 {
		return nil
	}

	tokenHash := hashSessionToken(token)

	err := s.queries.DeleteSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to delete session", "error", err)
		}
	}

	s.logger.Debug("session invalidated")

	return nil
}

// =============================================================================
// GetByID Implementation
// =============================================================================

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	return user, nil
}

// =============================================================================
// GetBySessionToken Implementation
// =============================================================================

// GetBySessionToken retrieves a user by their session token.
//
// Security Considerations:
// - Token is hashed before database lookup
// - Expired sessions are rejected at database level
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if token == "" {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	// Token should be 64 hex characters
	if len(token) != 64 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	tokenHash := hashSessionToken(token)

	session, err := s.queries.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	repoUser, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unlikely but possible if user was deleted
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	return user, nil
}

// =============================================================================
// UpdateProfile Implementation
// =============================================================================

// UpdateProfile updates a user's profile information.
func (s *userService) UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) error {
	const op = "UserService.UpdateProfile"

	params.Name = strings.TrimSpace(params.Name)
	params.Phone = strings.TrimSpace(params.Phone)

	if params.Name == "" {
		return domain.Invalid(op, "Name is required")
	}

	_, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", params.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	err = s.queries.UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
		ID:    params.UserID,
		Name:  params.Name,
		Phone: domain.ToNullString(params.Phone),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update profile")
	}

	s.logger.Info("user profile updated", "user_id", params.UserID)

	return nil
}

// =============================================================================
// ChangePassword Implementation
// =============================================================================

// ChangePassword changes a user's password.
//
// Security Considerations:
// - Current password must be verified to prevent session hijacking attacks
// - All sessions are invalidated to force re-authentication
func (s *userService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	const op = "UserService.ChangePassword"

	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid new password")
	}

	repoUser, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", params.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	err = bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(params.CurrentPassword))
	if err != nil {
		return domain.Unauthorized(op, "Current password is incorrect")
	}

	newPasswordHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           params.UserID,
		PasswordHash: string(newPasswordHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	// Invalidate all user sessions (force re-authentication)
	err = s.queries.DeleteSessionsByUserID(ctx, params.UserID)
	if err != nil {
		// Log but don't fail - password was changed successfully
		s.logger.Warn("failed to delete user sessions after password change", "user_id", params.UserID, "error", err)
	}

	s.logger.Info("user password changed", "user_id", params.UserID)

	return nil
}

// =============================================================================
// DeleteExpiredSessions Implementation
// =============================================================================

// DeleteExpiredSessions removes all expired sessions.
// This should be called periodically as a maintenance task.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "UserService.DeleteExpiredSessions"

	deleted, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired sessions")
	}

	s.logger.Info("expired sessions cleaned up", "deleted", deleted)

	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken creates a cryptographically secure session token.
//
// The token is generated using crypto/rand and returned as a hex-encoded string.
// This provides 256 bits of entropy (32 bytes * 8 bits/byte).
func generateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashSessionToken creates a SHA-256 hash of a session token.
//
// We hash session tokens before storing them because:
//  1. If the database is compromised, attackers cannot use the hashes directly
//  2. SHA-256 is fast enough for per-request validation
//  3. Unlike passwords, session tokens are high-entropy random values,
//     so SHA-256 is sufficient (bcrypt would be overkill and slow)
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// repoUserToDomain converts a repository.User to domain.User.
//
// This handles the conversion from database types (sql.Null*) to Go types,
// making the domain model easier to work with in business logic.
func repoUserToDomain(u repository.User) *domain.User {
	var createdAt time.Time
	if u.CreatedAt.Valid {
		createdAt = u.CreatedAt.Time
	}

	var updatedAt time.Time
	if u.UpdatedAt.Valid {
		updatedAt = u.UpdatedAt.Time
	}

	return &domain.User{
		ID:                 u.ID,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Name:               u.Name,
		Phone:              domain.NullStringValue(u.Phone),
		StripeCustomerID:   domain.NullStringValue(u.StripeCustomerID),
		SubscriptionStatus: domain.SubscriptionStatus(u.SubscriptionStatus),
		SubscriptionTier:   domain.SubscriptionTier(u.SubscriptionTier),
		SubscriptionID:     domain.NullStringValue(u.SubscriptionID),
		EmailVerified:      u.EmailVerified,
		EmailVerifiedAt:    domain.NullTimeValue(u.EmailVerifiedAt),
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}
}

// validateEmail validates an email address format.
//
// Checks:
// - Basic format validation (contains @, has domain)
// - Length limits (RFC 5321: 254 chars max)
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}

	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	// Must contain exactly one @, and domain part must have a dot
	atIndex := -1
	atCount := 0
	for i, c := range email {
		if c == '@' {
			atCount++
			atIndex = i
		}
	}

	if atCount != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}

	if atIndex == 0 {
		return domain.Invalid("", "Email cannot start with @")
	}

	if atIndex == len(email)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}

	// Check for domain part with at least one dot
	domainPart := email[atIndex+1:]
	hasDot := false
	for _, c := range domainPart {
		if c == '.' {
			hasDot = true
			break
		}
	}

	if !hasDot {
		return domain.Invalid("", "Email domain must contain a dot")
	}

	// Don't allow consecutive dots
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}

	return nil
}

// commonPasswords lists passwords rejected outright even when they meet
// the structural rules. All entries are lowercase.
var commonPasswords = map[string]struct{}{
	"password1": {},
	"password123": {},
	"qwerty123": {},
	"letmein1":  {},
	"welcome1":  {},
	"admin123":  {},
	"azerty123": {},
	"soleil123": {},
}

// validatePassword validates password strength requirements.
//
// Rules:
// - Minimum length: 8 characters (NIST SP 800-63B)
// - Maximum length: 72 characters (bcrypt limit)
// - At least one letter and one digit
// - Not on the common password list
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}

	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	var hasLetter, hasDigit bool
	for _, c := range password {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			hasLetter = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}

	if !hasLetter {
		return domain.Invalid("", "Password must contain at least one letter")
	}

	if !hasDigit {
		return domain.Invalid("", "Password must contain at least one number")
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return domain.Invalid("", "Password is too common, choose another one")
	}

	return nil
}

// =============================================================================
// Email Verification Token Implementation
// =============================================================================

// CreateEmailVerificationToken creates a new email verification token for a user.
//
// Security Considerations:
// - Raw token is returned only once (not stored anywhere in plaintext)
// - Token is hashed before storage using same pattern as session tokens
// - Caller is responsible for sending the raw token via email
func (s *userService) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error) {
	const op = "UserService.CreateEmailVerificationToken"

	_, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	rawToken, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}

	tokenHash := hashSessionToken(rawToken)
	expiresAt := time.Now().Add(domain.EmailVerificationTokenDuration)

	// The insert replaces any previous token for the user
	_, err = s.queries.CreateEmailVerificationToken(ctx, repository.CreateEmailVerificationTokenParams{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create verification token")
	}

	s.logger.Info("email verification token created", "user_id", userID)

	return &domain.EmailVerificationResult{
		Token:     rawToken,
		ExpiresAt: expiresAt,
		UserID:    userID,
	}, nil
}

// VerifyEmail validates an email verification token and marks the user as verified.
//
// Security Considerations:
// - Token lookup is by hash, not raw token
// - Expired tokens are filtered at query level
// - Token is deleted after use (one-time use)
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	const op = "UserService.VerifyEmail"

	if len(token) != 64 {
		return domain.Invalid(op, "Invalid verification token")
	}

	tokenHash := hashSessionToken(token)

	verificationToken, err := s.queries.GetEmailVerificationTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "verification token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve verification token")
	}

	user, err := s.queries.GetUserByID(ctx, verificationToken.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", verificationToken.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	if user.EmailVerified {
		return domain.Conflict(op, "Email is already verified")
	}

	if err := s.queries.UpdateUserEmailVerified(ctx, user.ID); err != nil {
		return domain.Internal(err, op, "Failed to mark email as verified")
	}

	if err := s.queries.DeleteEmailVerificationToken(ctx, verificationToken.ID); err != nil {
		// Log but don't fail - verification already succeeded
		s.logger.Warn("failed to delete verification token after use", "error", err, "user_id", user.ID)
	}

	s.logger.Info("email verified", "user_id", user.ID, "email", user.Email)

	return nil
}

// ResendVerificationEmail creates a new verification token for an unverified user.
//
// Security Considerations:
// - Returns error if user not found (caller should use generic message to user)
// - Returns error if already verified (no need to spam verified users)
func (s *userService) ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error) {
	const op = "UserService.ResendVerificationEmail"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if user.EmailVerified {
		return nil, domain.Conflict(op, "Email is already verified")
	}

	return s.CreateEmailVerificationToken(ctx, user.ID)
}

// DeleteExpiredEmailVerificationTokens removes all expired email verification tokens.
func (s *userService) DeleteExpiredEmailVerificationTokens(ctx context.Context) error {
	const op = "UserService.DeleteExpiredEmailVerificationTokens"

	deleted, err := s.queries.DeleteExpiredEmailVerificationTokens(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired tokens")
	}

	s.logger.Info("expired email verification tokens cleaned up", "deleted", deleted)
	return nil
}

// =============================================================================
// Password Reset Token Implementation
// =============================================================================

// CreatePasswordResetToken creates a new password reset token for a user.
//
// Security Considerations:
//   - Returns NotFound if email doesn't exist, but caller should NOT expose this
//     to end user (always show "if account exists, we sent an email" message)
//   - Shorter expiration than email verification (1 hour vs 24 hours)
//   - Old tokens are replaced by the insert
func (s *userService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
	const op = "UserService.CreatePasswordResetToken"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	rawToken, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}

	tokenHash := hashSessionToken(rawToken)
	expiresAt := time.Now().Add(domain.PasswordResetTokenDuration)

	_, err = s.queries.CreatePasswordResetToken(ctx, repository.CreatePasswordResetTokenParams{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create password reset token")
	}

	s.logger.Info("password reset token created", "user_id", user.ID, "email", user.Email)

	return &domain.PasswordResetResult{
		Token:     rawToken,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
	}, nil
}

// ValidatePasswordResetToken checks if a password reset token is valid.
//
// Security Considerations:
// - Query filters both expired AND used tokens
// - Does not mark token as used (that happens in ResetPassword)
func (s *userService) ValidatePasswordResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "UserService.ValidatePasswordResetToken"

	if len(token) != 64 {
		return uuid.Nil, domain.Invalid(op, "Invalid reset token")
	}

	tokenHash := hashSessionToken(token)

	resetToken, err := s.queries.GetPasswordResetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.NotFound(op, "reset token", "")
		}
		return uuid.Nil, domain.Internal(err, op, "Failed to retrieve reset token")
	}

	return resetToken.UserID, nil
}

// ResetPassword validates the token and updates the user's password.
//
// Security Considerations:
// - Token is validated again (race condition protection)
// - Token is marked used, not deleted (audit trail)
// - All sessions are invalidated (force re-authentication)
func (s *userService) ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error {
	const op = "UserService.ResetPassword"

	if len(params.Token) != 64 {
		return domain.Invalid(op, "Invalid reset token")
	}

	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid new password")
	}

	tokenHash := hashSessionToken(params.Token)

	resetToken, err := s.queries.GetPasswordResetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "reset token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve reset token")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           resetToken.UserID,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	if err := s.queries.MarkPasswordResetTokenUsed(ctx, tokenHash); err != nil {
		// Log but don't fail - password was already changed
		s.logger.Warn("failed to mark reset token as used", "error", err, "user_id", resetToken.UserID)
	}

	if err := s.queries.DeleteSessionsByUserID(ctx, resetToken.UserID); err != nil {
		// Log but don't fail - password was changed successfully
		s.logger.Warn("failed to delete user sessions after password reset", "error", err, "user_id", resetToken.UserID)
	}

	s.logger.Info("password reset completed", "user_id", resetToken.UserID)

	return nil
}

// DeleteExpiredPasswordResetTokens removes all expired password reset tokens.
func (s *userService) DeleteExpiredPasswordResetTokens(ctx context.Context) error {
	const op = "UserService.DeleteExpiredPasswordResetTokens"

	deleted, err := s.queries.DeleteExpiredPasswordResetTokens(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired tokens")
	}

	s.logger.Info("expired password reset tokens cleaned up", "deleted", deleted)
	return nil
}

// =============================================================================
// Billing Methods Implementation
// =============================================================================

// UpdateStripeCustomer saves the Stripe customer ID for a user.
func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	const op = "UserService.UpdateStripeCustomer"

	err := s.queries.UpdateUserStripeCustomer(ctx, repository.UpdateUserStripeCustomerParams{
		ID:               userID,
		StripeCustomerID: domain.ToNullString(stripeCustomerID),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update Stripe customer ID")
	}

	s.logger.Info("stripe customer ID updated", "user_id", userID, "stripe_customer_id", stripeCustomerID)
	return nil
}

// UpdateSubscription updates a user's subscription status, tier, and subscription ID.
func (s *userService) UpdateSubscription(ctx context.Context, params domain.SubscriptionUpdateParams) error {
	const op = "UserService.UpdateSubscription"

	err := s.queries.UpdateUserSubscription(ctx, repository.UpdateUserSubscriptionParams{
		ID:                 params.UserID,
		StripeCustomerID:   domain.ToNullString(params.StripeCustomerID),
		SubscriptionID:     domain.ToNullString(params.SubscriptionID),
		SubscriptionStatus: string(params.Status),
		SubscriptionTier:   string(params.Tier),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update subscription")
	}

	s.logger.Info("subscription updated", "user_id", params.UserID, "status", params.Status, "tier", params.Tier)
	return nil
}

// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
func (s *userService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	const op = "UserService.GetByStripeCustomerID"

	repoUser, err := s.queries.GetUserByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", stripeCustomerID)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user by Stripe customer ID")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Compile-time interface check
// =============================================================================

// Ensure userService implements UserService
var _ UserService = (*userService)(nil)
