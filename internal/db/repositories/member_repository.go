// member_repository.go implements MemberRepository, providing database queries for
// member accounts: lookup for login, profile and role updates, and avatar paths.
// Role values are validated here so an unknown role can never reach the table.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// MemberRepository handles database operations for organization members
type MemberRepository struct {
	db *sql.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, org_id, email, password_hash, display_name, role, facility_id, photo_url, avatar_path, created_at, updated_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*models.Member, error) {
	m := &models.Member{}
	err := row.Scan(
		&m.ID,
		&m.OrgID,
		&m.Email,
		&m.PasswordHash,
		&m.DisplayName,
		&m.Role,
		&m.FacilityID,
		&m.PhotoURL,
		&m.AvatarPath,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return m, nil
}

// GetByEmail retrieves a member by org and email, used for login
func (r *MemberRepository) GetByEmail(ctx context.Context, orgID, email string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE org_id = $1 AND email = $2`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, orgID, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}

	return m, nil
}

// FindByEmail retrieves every member row carrying the given email, across
// organizations. Email is only unique per org, so login uses this to detect
// the ambiguous case and ask for an organization slug.
func (r *MemberRepository) FindByEmail(ctx context.Context, email string) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE email = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find members by email: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// Create creates a new member
func (r *MemberRepository) Create(ctx context.Context, m *models.Member) error {
	if !m.Role.Valid() {
		return fmt.Errorf("invalid role: %s", m.Role)
	}

	query := `
		INSERT INTO members (org_id, email, password_hash, display_name, role, facility_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		m.OrgID,
		m.Email,
		m.PasswordHash,
		m.DisplayName,
		m.Role,
		m.FacilityID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// UpdateProfile updates a member's display name and facility assignment
func (r *MemberRepository) UpdateProfile(ctx context.Context, m *models.Member) error {
	query := `
		UPDATE members
		SET display_name = $2, facility_id = $3, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, m.ID, m.DisplayName, m.FacilityID)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}

	return nil
}

// UpdateRole changes a member's role
func (r *MemberRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role: %s", role)
	}

	query := `UPDATE members SET role = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	return nil
}

// UpdateAvatar sets the member's avatar storage path and public URL
func (r *MemberRepository) UpdateAvatar(ctx context.Context, id, avatarPath, photoURL string) error {
	query := `
		UPDATE members
		SET avatar_path = $2, photo_url = $3, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, avatarPath, photoURL)
	if err != nil {
		return fmt.Errorf("failed to update member avatar: %w", err)
	}

	return nil
}

// UpdatePassword sets a new password hash
func (r *MemberRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE members SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update member password: %w", err)
	}

	return nil
}

// List retrieves all members of an organization, newest first
func (r *MemberRepository) List(ctx context.Context, orgID string) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE org_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
