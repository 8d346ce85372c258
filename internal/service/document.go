// Package service contains the business logic layer.
//
// This file implements the document service, which gathers everything
// the PDF renderer needs for a quote: the quote itself, the issuer's
// company profile, the user's settings and the stored logo.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/storage"
)

// =============================================================================
// Interface Definition
// =============================================================================

// DocumentService defines operations for preparing quote documents.
type DocumentService interface {
	// PrepareQuoteDocument aggregates all data needed to render a quote
	// as a PDF. Returns ENOTFOUND when the quote does not exist or
	// belongs to another user.
	PrepareQuoteDocument(ctx context.Context, quoteID, userID uuid.UUID) (*domain.QuoteDocument, error)
}

// =============================================================================
// Implementation
// =============================================================================

type documentService struct {
	quotes   QuoteService
	company  CompanyService
	settings SettingsService
	storage  storage.Storage
	logger   *slog.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	quotes QuoteService,
	company CompanyService,
	settings SettingsService,
	store storage.Storage,
	logger *slog.Logger,
) DocumentService {
	return &documentService{
		quotes:   quotes,
		company:  company,
		settings: settings,
		storage:  store,
		logger:   logger,
	}
}

// PrepareQuoteDocument aggregates all data needed to render a quote.
func (s *documentService) PrepareQuoteDocument(ctx context.Context, quoteID, userID uuid.UUID) (*domain.QuoteDocument, error) {
	quote, err := s.quotes.GetByID(ctx, quoteID, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A missing profile is fine; the document renders without the
	// issuer block.
	var company *domain.Company
	company, err = s.company.Get(ctx, userID)
	if err != nil {
		if domain.ErrorCode(err) != domain.ENOTFOUND {
			return nil, err
		}
		company = nil
	}

	doc := &domain.QuoteDocument{
		Quote:       quote,
		Company:     company,
		Settings:    *settings,
		GeneratedAt: time.Now(),
	}

	if company != nil && company.HasLogo() {
		doc.Logo = s.fetchLogo(ctx, company.LogoKey)
	}

	return doc, nil
}

// fetchLogo reads the stored logo bytes. Failures are logged and the
// document renders without the logo.
func (s *documentService) fetchLogo(ctx context.Context, key string) []byte {
	rc, _, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to fetch logo for document", "key", key, "error", err)
		return nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		s.logger.Warn("failed to read logo for document", "key", key, "error", err)
		return nil
	}
	return data
}
