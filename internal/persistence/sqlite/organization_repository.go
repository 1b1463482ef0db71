package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/grant-tracker/internal/persistence"
	"github.com/example/grant-tracker/internal/schedule"
)

// OrganizationRepository implements persistence.OrganizationRepository using SQLite.
type OrganizationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOrganizationRepository creates a new SQLite organization repository.
func NewOrganizationRepository(pool *ConnectionPool) *OrganizationRepository {
	return &OrganizationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateOrganization inserts a new organization.
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, organization persistence.Organization) error {
	if organization.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	_, err := r.helper.Exec(ctx,
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		organization.ID, organization.Name, now.Format(time.RFC3339), now.Format(time.RFC3339))
	return r.mapper.MapError(err)
}

// GetOrganization retrieves an organization by ID.
func (r *OrganizationRepository) GetOrganization(ctx context.Context, id string) (persistence.Organization, error) {
	if id == "" {
		return persistence.Organization{}, persistence.ErrNotFound
	}

	var organization persistence.Organization
	var createdStr, updatedStr string
	err := r.helper.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = ?`, id).
		Scan(&organization.ID, &organization.Name, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Organization{}, persistence.ErrNotFound
		}
		return persistence.Organization{}, r.mapper.MapError(err)
	}

	if organization.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Organization{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if organization.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Organization{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return organization, nil
}

// ListOrganizations returns all organizations ordered by name.
func (r *OrganizationRepository) ListOrganizations(ctx context.Context) ([]persistence.Organization, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM organizations ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var organizations []persistence.Organization
	for rows.Next() {
		var organization persistence.Organization
		var createdStr, updatedStr string
		if err := rows.Scan(&organization.ID, &organization.Name, &createdStr, &updatedStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if organization.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if organization.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		organizations = append(organizations, organization)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return organizations, nil
}

// CreateOrganizationYear inserts a new organization year.
func (r *OrganizationRepository) CreateOrganizationYear(ctx context.Context, year persistence.OrganizationYear) error {
	if year.ID == "" || year.OrganizationID == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	_, err := r.helper.Exec(ctx,
		`INSERT INTO organization_years (id, organization_id, label, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		year.ID, year.OrganizationID, year.Label, now.Format(time.RFC3339), now.Format(time.RFC3339))
	return r.mapper.MapError(err)
}

// GetOrganizationYear retrieves an organization year by ID.
func (r *OrganizationRepository) GetOrganizationYear(ctx context.Context, id string) (persistence.OrganizationYear, error) {
	if id == "" {
		return persistence.OrganizationYear{}, persistence.ErrNotFound
	}

	var year persistence.OrganizationYear
	var createdStr, updatedStr string
	err := r.helper.QueryRow(ctx,
		`SELECT id, organization_id, label, created_at, updated_at FROM organization_years WHERE id = ?`, id).
		Scan(&year.ID, &year.OrganizationID, &year.Label, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.OrganizationYear{}, persistence.ErrNotFound
		}
		return persistence.OrganizationYear{}, r.mapper.MapError(err)
	}

	if year.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.OrganizationYear{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if year.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.OrganizationYear{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return year, nil
}

// ListOrganizationYears returns an organization's years newest label first.
func (r *OrganizationRepository) ListOrganizationYears(ctx context.Context, organizationID string) ([]persistence.OrganizationYear, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, organization_id, label, created_at, updated_at
		FROM organization_years
		WHERE organization_id = ?
		ORDER BY label DESC, id ASC
	`, organizationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var years []persistence.OrganizationYear
	for rows.Next() {
		var year persistence.OrganizationYear
		var createdStr, updatedStr string
		if err := rows.Scan(&year.ID, &year.OrganizationID, &year.Label, &createdStr, &updatedStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if year.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if year.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		years = append(years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return years, nil
}

// CreateBlackoutDate inserts an organization-wide blackout date.
func (r *OrganizationRepository) CreateBlackoutDate(ctx context.Context, blackout persistence.BlackoutDate) error {
	if blackout.ID == "" || blackout.OrganizationID == "" || blackout.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO blackout_dates (id, organization_id, date) VALUES (?, ?, ?)`,
		blackout.ID, blackout.OrganizationID, blackout.Date.String())
	return r.mapper.MapError(err)
}

// ListBlackoutDates returns an organization's blackout dates ascending.
func (r *OrganizationRepository) ListBlackoutDates(ctx context.Context, organizationID string) ([]persistence.BlackoutDate, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, organization_id, date FROM blackout_dates WHERE organization_id = ? ORDER BY date ASC`,
		organizationID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var blackouts []persistence.BlackoutDate
	for rows.Next() {
		var blackout persistence.BlackoutDate
		var dateStr string
		if err := rows.Scan(&blackout.ID, &blackout.OrganizationID, &dateStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if blackout.Date, err = schedule.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse blackout date: %w", err)
		}
		blackouts = append(blackouts, blackout)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return blackouts, nil
}

// DeleteBlackoutDate removes an organization-wide blackout date.
func (r *OrganizationRepository) DeleteBlackoutDate(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM blackout_dates WHERE id = ?`, id)
}

// CreateSessionBlackoutDate inserts a session-level blackout date.
func (r *OrganizationRepository) CreateSessionBlackoutDate(ctx context.Context, blackout persistence.SessionBlackoutDate) error {
	if blackout.ID == "" || blackout.SessionID == "" || blackout.Date.IsZero() {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO session_blackout_dates (id, session_id, date) VALUES (?, ?, ?)`,
		blackout.ID, blackout.SessionID, blackout.Date.String())
	return r.mapper.MapError(err)
}

// ListSessionBlackoutDates returns a session's blackout dates ascending.
func (r *OrganizationRepository) ListSessionBlackoutDates(ctx context.Context, sessionID string) ([]persistence.SessionBlackoutDate, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT id, session_id, date FROM session_blackout_dates WHERE session_id = ? ORDER BY date ASC`,
		sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var blackouts []persistence.SessionBlackoutDate
	for rows.Next() {
		var blackout persistence.SessionBlackoutDate
		var dateStr string
		if err := rows.Scan(&blackout.ID, &blackout.SessionID, &dateStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if blackout.Date, err = schedule.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse blackout date: %w", err)
		}
		blackouts = append(blackouts, blackout)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return blackouts, nil
}

// DeleteSessionBlackoutDate removes a session-level blackout date.
func (r *OrganizationRepository) DeleteSessionBlackoutDate(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM session_blackout_dates WHERE id = ?`, id)
}

func (r *OrganizationRepository) deleteByID(ctx context.Context, query, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, query, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
