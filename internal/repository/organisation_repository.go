package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sqrlplanner/timetable-sync/internal/models"
	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// OrganisationRepository manages persistence for organisations. It can be
// constructed over a *sqlx.DB or over an open transaction, letting a sync
// run stage every write and commit once.
type OrganisationRepository struct {
	db sqlx.ExtContext
}

// NewOrganisationRepository constructs an OrganisationRepository.
func NewOrganisationRepository(db sqlx.ExtContext) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

// Upsert inserts the organisation or updates its name in place, keyed by
// code. The same organisation is never duplicated across runs.
func (r *OrganisationRepository) Upsert(ctx context.Context, org *models.Organisation) error {
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = now

	const query = `INSERT INTO organisations (code, name, created_at, updated_at)
		VALUES (:code, :name, :created_at, :updated_at)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name,
		    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, org); err != nil {
		return fmt.Errorf("upsert organisation %s: %w", org.Code, err)
	}
	return nil
}

// FindByCode fetches an organisation by its code.
func (r *OrganisationRepository) FindByCode(ctx context.Context, code string) (*models.Organisation, error) {
	const query = `SELECT code, name, created_at, updated_at FROM organisations WHERE code = $1`
	var org models.Organisation
	if err := sqlx.GetContext(ctx, r.db, &org, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find organisation %s: %w", code, err)
	}
	return &org, nil
}

// List returns all organisations ordered by code.
func (r *OrganisationRepository) List(ctx context.Context) ([]models.Organisation, error) {
	const query = `SELECT code, name, created_at, updated_at FROM organisations ORDER BY code`
	var orgs []models.Organisation
	if err := sqlx.SelectContext(ctx, r.db, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organisations: %w", err)
	}
	return orgs, nil
}

// Count returns the number of stored organisations.
func (r *OrganisationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM organisations`); err != nil {
		return 0, fmt.Errorf("count organisations: %w", err)
	}
	return count, nil
}
