// facility_repository.go implements FacilityRepository, providing database queries
// for facility CRUD and the contract-ID lookup used by member facility assignment.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// FacilityRepository handles database operations for facilities
type FacilityRepository struct {
	db *sql.DB
}

// NewFacilityRepository creates a new facility repository
func NewFacilityRepository(db *sql.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// GetByID retrieves a facility by ID
func (r *FacilityRepository) GetByID(ctx context.Context, id string) (*models.Facility, error) {
	query := `
		SELECT id, org_id, name, contract_id, address, created_at, updated_at
		FROM facilities
		WHERE id = $1
	`

	f := &models.Facility{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID,
		&f.OrgID,
		&f.Name,
		&f.ContractID,
		&f.Address,
		&f.CreatedAt,
		&f.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}

	return f, nil
}

// GetByContractID retrieves a facility by its external contract identifier.
// Member records store this value rather than the facility row ID.
func (r *FacilityRepository) GetByContractID(ctx context.Context, orgID, contractID string) (*models.Facility, error) {
	query := `
		SELECT id, org_id, name, contract_id, address, created_at, updated_at
		FROM facilities
		WHERE org_id = $1 AND contract_id = $2
	`

	f := &models.Facility{}
	err := r.db.QueryRowContext(ctx, query, orgID, contractID).Scan(
		&f.ID,
		&f.OrgID,
		&f.Name,
		&f.ContractID,
		&f.Address,
		&f.CreatedAt,
		&f.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get facility by contract id: %w", err)
	}

	return f, nil
}

// Create creates a new facility
func (r *FacilityRepository) Create(ctx context.Context, f *models.Facility) error {
	query := `
		INSERT INTO facilities (org_id, name, contract_id, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, f.OrgID, f.Name, f.ContractID, f.Address).Scan(
		&f.ID,
		&f.CreatedAt,
		&f.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create facility: %w", err)
	}

	return nil
}

// Update updates a facility's name and address
func (r *FacilityRepository) Update(ctx context.Context, f *models.Facility) error {
	query := `
		UPDATE facilities
		SET name = $2, address = $3, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.Address)
	if err != nil {
		return fmt.Errorf("failed to update facility: %w", err)
	}

	return nil
}

// Delete deletes a facility
func (r *FacilityRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM facilities WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete facility: %w", err)
	}

	return nil
}

// List retrieves all facilities of an organization
func (r *FacilityRepository) List(ctx context.Context, orgID string) ([]*models.Facility, error) {
	query := `
		SELECT id, org_id, name, contract_id, address, created_at, updated_at
		FROM facilities
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	defer rows.Close()

	facilities := make([]*models.Facility, 0)
	for rows.Next() {
		f := &models.Facility{}
		err := rows.Scan(
			&f.ID,
			&f.OrgID,
			&f.Name,
			&f.ContractID,
			&f.Address,
			&f.CreatedAt,
			&f.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		facilities = append(facilities, f)
	}

	return facilities, rows.Err()
}
