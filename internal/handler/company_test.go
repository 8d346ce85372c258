package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
)

// =============================================================================
// Mock CompanyService
// =============================================================================

type mockCompanyService struct {
	GetFunc        func(ctx context.Context, userID uuid.UUID) (*domain.Company, error)
	UpsertFunc     func(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error)
	UploadLogoFunc func(ctx context.Context, userID uuid.UUID, filename string, data io.Reader) (string, error)
	RemoveLogoFunc func(ctx context.Context, userID uuid.UUID) error
	LogoURLFunc    func(ctx context.Context, userID uuid.UUID) (string, error)
}

func (m *mockCompanyService) Get(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, domain.NotFound("company.Get", "company", userID.String())
}

func (m *mockCompanyService) Upsert(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return nil, errors.New("UpsertFunc not implemented")
}

func (m *mockCompanyService) UploadLogo(ctx context.Context, userID uuid.UUID, filename string, data io.Reader) (string, error) {
	if m.UploadLogoFunc != nil {
		return m.UploadLogoFunc(ctx, userID, filename, data)
	}
	return "", errors.New("UploadLogoFunc not implemented")
}

func (m *mockCompanyService) RemoveLogo(ctx context.Context, userID uuid.UUID) error {
	if m.RemoveLogoFunc != nil {
		return m.RemoveLogoFunc(ctx, userID)
	}
	return errors.New("RemoveLogoFunc not implemented")
}

func (m *mockCompanyService) LogoURL(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.LogoURLFunc != nil {
		return m.LogoURLFunc(ctx, userID)
	}
	return "", nil
}

func newTestCompanyHandler(companies *mockCompanyService) (*CompanyHandler, *mockRenderer) {
	renderer := &mockRenderer{}
	return NewCompanyHandler(companies, renderer, newTestLogger(), false), renderer
}

// =============================================================================
// POST /company - Save Profile
// =============================================================================

func TestCompanySave_Success(t *testing.T) {
	user := testUser()
	var gotParams domain.UpsertCompanyParams

	companies := &mockCompanyService{
		UpsertFunc: func(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error) {
			gotParams = params
			return &domain.Company{UserID: user.ID, Name: params.Name}, nil
		},
	}
	h, _ := newTestCompanyHandler(companies)

	req := withUser(newFormRequest(t, "/company", url.Values{
		"name":       {"Menuiserie Dupont"},
		"siret":      {"12345678901234"},
		"legal_form": {"Auto-entrepreneur"},
		"address":    {"5 rue des Artisans, 44000 Nantes"},
	}), user)
	rec := httptest.NewRecorder()

	h.Save(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/company?saved=1" {
		t.Errorf("redirect = %q", loc)
	}
	if gotParams.Name != "Menuiserie Dupont" {
		t.Errorf("Name = %q", gotParams.Name)
	}
	if gotParams.UserID != user.ID {
		t.Errorf("UserID = %s, want %s", gotParams.UserID, user.ID)
	}
}

func TestCompanySave_ValidationErrors(t *testing.T) {
	user := testUser()
	upsertCalled := false

	companies := &mockCompanyService{
		UpsertFunc: func(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error) {
			upsertCalled = true
			return nil, nil
		},
	}
	h, renderer := newTestCompanyHandler(companies)

	req := withUser(newFormRequest(t, "/company", url.Values{
		"name":    {""},
		"siret":   {"123"},
		"address": {""},
	}), user)
	rec := httptest.NewRecorder()

	h.Save(rec, req)

	if upsertCalled {
		t.Error("Upsert should not be called with validation errors")
	}
	if renderer.LastTemplate != "company/show" {
		t.Fatalf("template = %q, want company/show", renderer.LastTemplate)
	}
	data, ok := renderer.LastData.(CompanyPageData)
	if !ok {
		t.Fatalf("data type = %T, want CompanyPageData", renderer.LastData)
	}
	for _, field := range []string{"name", "siret", "address"} {
		if data.Errors[field] == "" {
			t.Errorf("expected an error for %q", field)
		}
	}
}

func TestCompanySave_AcceptsSpacedSiret(t *testing.T) {
	user := testUser()
	companies := &mockCompanyService{
		UpsertFunc: func(ctx context.Context, params domain.UpsertCompanyParams) (*domain.Company, error) {
			return &domain.Company{UserID: user.ID}, nil
		},
	}
	h, _ := newTestCompanyHandler(companies)

	req := withUser(newFormRequest(t, "/company", url.Values{
		"name":    {"Menuiserie Dupont"},
		"siret":   {"123 456 789 01234"},
		"address": {"5 rue des Artisans, 44000 Nantes"},
	}), user)
	rec := httptest.NewRecorder()

	h.Save(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (spaces in SIRET should be tolerated)", rec.Code)
	}
}

// =============================================================================
// GET /company
// =============================================================================

func TestCompanyShow_WithLogo(t *testing.T) {
	user := testUser()
	companies := &mockCompanyService{
		GetFunc: func(ctx context.Context, userID uuid.UUID) (*domain.Company, error) {
			return &domain.Company{
				UserID:  user.ID,
				Name:    "Menuiserie Dupont",
				LogoKey: "logos/" + user.ID.String() + ".png",
			}, nil
		},
		LogoURLFunc: func(ctx context.Context, userID uuid.UUID) (string, error) {
			return "https://files.example.fr/logos/signed.png", nil
		},
	}
	h, renderer := newTestCompanyHandler(companies)

	req := withUser(httptest.NewRequest("GET", "/company", nil), user)
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	data, ok := renderer.LastData.(CompanyPageData)
	if !ok {
		t.Fatalf("data type = %T, want CompanyPageData", renderer.LastData)
	}
	if data.LogoURL != "https://files.example.fr/logos/signed.png" {
		t.Errorf("LogoURL = %q", data.LogoURL)
	}
	if data.Form["name"] != "Menuiserie Dupont" {
		t.Errorf("form name = %q", data.Form["name"])
	}
}

func TestCompanyShow_NoProfileYet(t *testing.T) {
	user := testUser()
	h, renderer := newTestCompanyHandler(&mockCompanyService{})

	req := withUser(httptest.NewRequest("GET", "/company", nil), user)
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data, ok := renderer.LastData.(CompanyPageData)
	if !ok {
		t.Fatalf("data type = %T, want CompanyPageData", renderer.LastData)
	}
	if data.Company != nil {
		t.Error("Company should be nil before the first save")
	}
}

// =============================================================================
// DELETE /company/logo
// =============================================================================

func TestCompanyRemoveLogo_HTMXRedirect(t *testing.T) {
	user := testUser()
	removed := false
	companies := &mockCompanyService{
		RemoveLogoFunc: func(ctx context.Context, userID uuid.UUID) error {
			removed = true
			return nil
		},
	}
	h, _ := newTestCompanyHandler(companies)

	req := withUser(httptest.NewRequest("DELETE", "/company/logo", nil), user)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	h.RemoveLogo(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/company?logo=0" {
		t.Errorf("HX-Redirect = %q", got)
	}
	if !removed {
		t.Error("RemoveLogo was not called")
	}
}
