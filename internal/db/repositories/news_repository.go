// news_repository.go implements NewsRepository, providing database queries for
// organization announcements and their public/unpublished split.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// NewsRepository handles database operations for news posts
type NewsRepository struct {
	db *sql.DB
}

// NewNewsRepository creates a new news repository
func NewNewsRepository(db *sql.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

const newsColumns = `id, org_id, title, body, published, created_by, created_at, updated_at`

func scanNewsPost(row interface{ Scan(...interface{}) error }) (*models.NewsPost, error) {
	n := &models.NewsPost{}
	err := row.Scan(
		&n.ID,
		&n.OrgID,
		&n.Title,
		&n.Body,
		&n.Published,
		&n.CreatedBy,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

// GetByID retrieves a news post by ID
func (r *NewsRepository) GetByID(ctx context.Context, id string) (*models.NewsPost, error) {
	query := `SELECT ` + newsColumns + ` FROM news_posts WHERE id = $1`

	n, err := scanNewsPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get news post: %w", err)
	}

	return n, nil
}

// Create creates a new news post
func (r *NewsRepository) Create(ctx context.Context, n *models.NewsPost) error {
	query := `
		INSERT INTO news_posts (org_id, title, body, published, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		n.OrgID,
		n.Title,
		n.Body,
		n.Published,
		n.CreatedBy,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create news post: %w", err)
	}

	return nil
}

// Update updates a news post
func (r *NewsRepository) Update(ctx context.Context, n *models.NewsPost) error {
	query := `
		UPDATE news_posts
		SET title = $2, body = $3, published = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, n.ID, n.Title, n.Body, n.Published)
	if err != nil {
		return fmt.Errorf("failed to update news post: %w", err)
	}

	return nil
}

// Delete deletes a news post
func (r *NewsRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM news_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete news post: %w", err)
	}

	return nil
}

// List retrieves an organization's news posts, newest first. When
// publishedOnly is true only published posts are returned; that variant
// backs the public page.
func (r *NewsRepository) List(ctx context.Context, orgID string, publishedOnly bool) ([]*models.NewsPost, error) {
	query := `SELECT ` + newsColumns + ` FROM news_posts WHERE org_id = $1`
	if publishedOnly {
		query += ` AND published = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list news posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.NewsPost, 0)
	for rows.Next() {
		n, err := scanNewsPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news post: %w", err)
		}
		posts = append(posts, n)
	}

	return posts, rows.Err()
}
