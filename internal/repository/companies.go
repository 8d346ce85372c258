package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const companyColumns = `user_id, name, siret, legal_form, tva_number,
	address, phone, email, website, logo_key, primary_color, updated_at`

func scanCompany(row *sql.Row) (Company, error) {
	var c Company
	err := row.Scan(
		&c.UserID, &c.Name, &c.Siret, &c.LegalForm, &c.TvaNumber,
		&c.Address, &c.Phone, &c.Email, &c.Website, &c.LogoKey,
		&c.PrimaryColor, &c.UpdatedAt,
	)
	return c, err
}

// GetCompanyByUserID fetches the company profile of a user.
func (q *Queries) GetCompanyByUserID(ctx context.Context, userID uuid.UUID) (Company, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE user_id = $1`, userID)
	return scanCompany(row)
}

// UpsertCompanyParams contains the writable company profile fields.
type UpsertCompanyParams struct {
	UserID       uuid.UUID
	Name         string
	Siret        string
	LegalForm    string
	TvaNumber    sql.NullString
	Address      string
	Phone        string
	Email        string
	Website      sql.NullString
	PrimaryColor sql.NullString
}

// UpsertCompany creates or replaces the company profile. The logo key
// is managed separately so a profile save never clears an uploaded logo.
func (q *Queries) UpsertCompany(ctx context.Context, arg UpsertCompanyParams) (Company, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO companies (user_id, name, siret, legal_form, tva_number,
			address, phone, email, website, primary_color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name, siret = EXCLUDED.siret, legal_form = EXCLUDED.legal_form,
			tva_number = EXCLUDED.tva_number, address = EXCLUDED.address,
			phone = EXCLUDED.phone, email = EXCLUDED.email, website = EXCLUDED.website,
			primary_color = EXCLUDED.primary_color, updated_at = now()
		RETURNING `+companyColumns,
		arg.UserID, arg.Name, arg.Siret, arg.LegalForm, arg.TvaNumber,
		arg.Address, arg.Phone, arg.Email, arg.Website, arg.PrimaryColor,
	)
	return scanCompany(row)
}

// UpdateCompanyLogoKeyParams sets or clears the uploaded logo key.
type UpdateCompanyLogoKeyParams struct {
	UserID  uuid.UUID
	LogoKey sql.NullString
}

// UpdateCompanyLogoKey records the storage key of the company logo.
func (q *Queries) UpdateCompanyLogoKey(ctx context.Context, arg UpdateCompanyLogoKeyParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE companies SET logo_key = $2, updated_at = now()
		WHERE user_id = $1`,
		arg.UserID, arg.LogoKey)
	return err
}
