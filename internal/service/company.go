// This file implements the company profile service, including logo
// upload and removal.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
	"github.com/tbouquin/artisia/internal/storage"
)

// =============================================================================
// Interface Definition
// =============================================================================

// CompanyService manages the issuing business profile shown on
// generated documents.
type CompanyService interface {
	// Get retrieves the company profile. Returns domain.ENOTFOUND when
	// no profile has been saved yet.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Company, error)

	// Upsert creates or replaces the company profile. The logo is
	// managed by UploadLogo and never touched here.
	Upsert(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error)

	// UploadLogo processes and stores a logo image, replacing any
	// previous one. Returns the new storage key.
	UploadLogo(ctx context.Context, userID uuid.UUID, filename string, data io.Reader) (string, error)

	// RemoveLogo deletes the stored logo and clears the profile key.
	RemoveLogo(ctx context.Context, userID uuid.UUID) error

	// LogoURL returns a time-limited URL for the stored logo, or an
	// empty string when none is set.
	LogoURL(ctx context.Context, userID uuid.UUID) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

type companyService struct {
	queries *repository.Queries
	storage storage.Storage
	logos   LogoProcessor
	logger  *slog.Logger
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(
	queries *repository.Queries,
	store storage.Storage,
	logos LogoProcessor,
	logger *slog.Logger,
) CompanyService {
	return &companyService{
		queries: queries,
		storage: store,
		logos:   logos,
		logger:  logger,
	}
}

// Get retrieves the company profile.
func (s *companyService) Get(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	const op = "company.get"

	row, err := s.queries.GetCompanyByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "company", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to get company")
	}

	return rowToCompany(row), nil
}

// Upsert creates or replaces the company profile.
func (s *companyService) Upsert(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error) {
	const op = "company.upsert"

	params.Siret = strings.ReplaceAll(params.Siret, " ", "")

	if strings.TrimSpace(params.Name) == "" {
		return nil, domain.Invalid(op, "company name is required")
	}
	if !domain.ValidSiret(params.Siret) {
		return nil, domain.Invalid(op, "SIRET must be exactly 14 digits")
	}
	if strings.TrimSpace(params.Address) == "" {
		return nil, domain.Invalid(op, "address is required")
	}

	row, err := s.queries.UpsertCompany(ctx, repository.UpsertCompanyParams{
		UserID:       params.UserID,
		Name:         strings.TrimSpace(params.Name),
		Siret:        params.Siret,
		LegalForm:    strings.TrimSpace(params.LegalForm),
		TvaNumber:    domain.ToNullString(params.TVANumber),
		Address:      strings.TrimSpace(params.Address),
		Phone:        strings.TrimSpace(params.Phone),
		Email:        strings.TrimSpace(params.Email),
		Website:      domain.ToNullString(params.Website),
		PrimaryColor: domain.ToNullString(params.PrimaryColor),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to save company")
	}

	s.logger.Info("company profile saved", "user_id", params.UserID)

	return rowToCompany(row), nil
}

// UploadLogo processes and stores a logo image.
func (s *companyService) UploadLogo(ctx context.Context, userID uuid.UUID, filename string, data io.Reader) (string, error) {
	const op = "company.upload_logo"

	// Profile must exist before a logo can be attached to it
	company, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	processed, err := s.logos.ProcessLogo(io.LimitReader(data, domain.LogoMaxUploadBytes))
	if err != nil {
		return "", domain.Invalid(op, "file is not a readable image")
	}

	key := storage.LogoKey(userID, "logo.png")
	if err := s.storage.Put(ctx, key, bytes.NewReader(processed), storage.PutOptions{
		ContentType: "image/png",
		Overwrite:   true,
	}); err != nil {
		return "", domain.Internal(err, op, "failed to store logo")
	}

	if err := s.queries.UpdateCompanyLogoKey(ctx, repository.UpdateCompanyLogoKeyParams{
		UserID:  userID,
		LogoKey: domain.ToNullString(key),
	}); err != nil {
		return "", domain.Internal(err, op, "failed to record logo key")
	}

	// The old object is unreachable once the key changes
	if company.HasLogo() && company.LogoKey != key {
		if err := s.storage.Delete(ctx, company.LogoKey); err != nil {
			s.logger.Warn("failed to delete previous logo",
				"user_id", userID,
				"key", company.LogoKey,
				"error", err,
			)
		}
	}

	s.logger.Info("logo uploaded", "user_id", userID, "key", key, "original_name", filename)

	return key, nil
}

// RemoveLogo deletes the stored logo and clears the profile key.
func (s *companyService) RemoveLogo(ctx context.Context, userID uuid.UUID) error {
	const op = "company.remove_logo"

	company, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !company.HasLogo() {
		return nil
	}

	if err := s.queries.UpdateCompanyLogoKey(ctx, repository.UpdateCompanyLogoKeyParams{
		UserID:  userID,
		LogoKey: sql.NullString{},
	}); err != nil {
		return domain.Internal(err, op, "failed to clear logo key")
	}

	if err := s.storage.Delete(ctx, company.LogoKey); err != nil {
		s.logger.Warn("failed to delete logo object",
			"user_id", userID,
			"key", company.LogoKey,
			"error", err,
		)
	}

	s.logger.Info("logo removed", "user_id", userID)

	return nil
}

// LogoURL returns a time-limited URL for the stored logo.
func (s *companyService) LogoURL(ctx context.Context, userID uuid.UUID) (string, error) {
	company, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !company.HasLogo() {
		return "", nil
	}
	return s.storage.URL(ctx, company.LogoKey, 1*time.Hour)
}

// =============================================================================
// Helper Functions
// =============================================================================

// rowToCompany converts a repository company row to a domain Company.
func rowToCompany(row repository.Company) *domain.Company {
	company := &domain.Company{
		UserID:       row.UserID,
		Name:         row.Name,
		Siret:        row.Siret,
		LegalForm:    row.LegalForm,
		TVANumber:    domain.NullStringValue(row.TvaNumber),
		Address:      row.Address,
		Phone:        row.Phone,
		Email:        row.Email,
		Website:      domain.NullStringValue(row.Website),
		LogoKey:      domain.NullStringValue(row.LogoKey),
		PrimaryColor: domain.NullStringValue(row.PrimaryColor),
	}
	if t := domain.NullTimeValue(row.UpdatedAt); t != nil {
		company.UpdatedAt = *t
	}
	return company
}
