// licolog_repository.go implements LicologRepository, providing database queries
// for Licolog posts, the batch approval transaction, and the append-only
// moderation event trail. Post statuses are validated here so an unknown value
// can never reach the table.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// ErrPostNotFound is returned when a moderation target does not exist in the
// caller's organization. The whole batch fails so the event trail never
// records a transition that did not happen.
var ErrPostNotFound = errors.New("licolog post not found")

// LicologRepository handles database operations for Licolog posts and events
type LicologRepository struct {
	db *sqlx.DB
}

// NewLicologRepository creates a new Licolog repository
func NewLicologRepository(db *sqlx.DB) *LicologRepository {
	return &LicologRepository{db: db}
}

const licologPostColumns = `id, org_id, body, facility_id, author_id, status, media, created_at, updated_at`

func scanLicologPost(row interface{ Scan(...interface{}) error }) (*models.LicologPost, error) {
	p := &models.LicologPost{}
	var mediaJSON []byte
	err := row.Scan(
		&p.ID,
		&p.OrgID,
		&p.Body,
		&p.FacilityID,
		&p.AuthorID,
		&p.Status,
		&mediaJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(mediaJSON) > 0 {
		if err := json.Unmarshal(mediaJSON, &p.Media); err != nil {
			return nil, fmt.Errorf("failed to parse media: %w", err)
		}
	}
	return p, nil
}

// GetPost retrieves a post by ID
func (r *LicologRepository) GetPost(ctx context.Context, id string) (*models.LicologPost, error) {
	query := `SELECT ` + licologPostColumns + ` FROM licolog_posts WHERE id = $1`

	p, err := scanLicologPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get licolog post: %w", err)
	}

	return p, nil
}

// CreatePost creates a new post. New posts always start pending unless the
// author explicitly marks them internal.
func (r *LicologRepository) CreatePost(ctx context.Context, p *models.LicologPost) error {
	if p.Status == "" {
		p.Status = models.PostStatusPending
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid post status: %s", p.Status)
	}

	mediaJSON, err := json.Marshal(p.Media)
	if err != nil {
		return fmt.Errorf("failed to marshal media: %w", err)
	}
	if p.Media == nil {
		mediaJSON = []byte("[]")
	}

	query := `
		INSERT INTO licolog_posts (org_id, body, facility_id, author_id, status, media)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		p.OrgID,
		p.Body,
		p.FacilityID,
		p.AuthorID,
		p.Status,
		mediaJSON,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create licolog post: %w", err)
	}

	return nil
}

// ListPosts retrieves an organization's posts, newest first, optionally
// filtered by status.
func (r *LicologRepository) ListPosts(ctx context.Context, orgID string, status *models.PostStatus, limit int) ([]*models.LicologPost, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("invalid post status: %s", *status)
	}

	query := `SELECT ` + licologPostColumns + ` FROM licolog_posts WHERE org_id = $1`
	args := []interface{}{orgID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list licolog posts: %w", err)
	}
	defer rows.Close()

	posts := make([]*models.LicologPost, 0)
	for rows.Next() {
		p, err := scanLicologPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan licolog post: %w", err)
		}
		posts = append(posts, p)
	}

	return posts, rows.Err()
}

// ApproveMany sets the given posts to approved and appends one approval event
// per post, all inside a single transaction. An empty id list is a no-op and
// touches neither the pool nor the tables. An id that matches no row in the
// organization fails the whole batch with ErrPostNotFound.
func (r *LicologRepository) ApproveMany(ctx context.Context, orgID string, ids []string, actorID string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE licolog_posts SET status = $1, updated_at = $2 WHERE org_id = $3 AND id = $4`,
			models.PostStatusApproved, now, orgID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to approve post %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to approve post %s: %w", id, err)
		} else if n == 0 {
			return fmt.Errorf("post %s: %w", id, ErrPostNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO licolog_events (id, org_id, type, post_id, actor_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), orgID, models.EventLicologApproved, id, actorID, now,
		); err != nil {
			return fmt.Errorf("failed to record approval event for post %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}

	return nil
}

// Unapprove returns a single post to pending and appends the matching event,
// in one transaction. ErrPostNotFound when the id matches no row in the
// organization; no event is written.
func (r *LicologRepository) Unapprove(ctx context.Context, orgID, id, actorID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE licolog_posts SET status = $1, updated_at = $2 WHERE org_id = $3 AND id = $4`,
		models.PostStatusPending, now, orgID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to unapprove post %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to unapprove post %s: %w", id, err)
	} else if n == 0 {
		return fmt.Errorf("post %s: %w", id, ErrPostNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO licolog_events (id, org_id, type, post_id, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), orgID, models.EventLicologUnapproved, id, actorID, now,
	); err != nil {
		return fmt.Errorf("failed to record unapproval event for post %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unapproval: %w", err)
	}

	return nil
}

// ListEvents retrieves an organization's moderation events, newest first
func (r *LicologRepository) ListEvents(ctx context.Context, orgID string, limit int) ([]*models.LicologEvent, error) {
	query := `
		SELECT id, org_id, type, post_id, actor_id, created_at
		FROM licolog_events
		WHERE org_id = $1
		ORDER BY created_at DESC
	`
	args := []interface{}{orgID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list licolog events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.LicologEvent, 0)
	for rows.Next() {
		e := &models.LicologEvent{}
		err := rows.Scan(
			&e.ID,
			&e.OrgID,
			&e.Type,
			&e.PostID,
			&e.ActorID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan licolog event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// ListEventsForPost retrieves the moderation trail of a single post, oldest first
func (r *LicologRepository) ListEventsForPost(ctx context.Context, postID string) ([]*models.LicologEvent, error) {
	query := `
		SELECT id, org_id, type, post_id, actor_id, created_at
		FROM licolog_events
		WHERE post_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for post: %w", err)
	}
	defer rows.Close()

	events := make([]*models.LicologEvent, 0)
	for rows.Next() {
		e := &models.LicologEvent{}
		err := rows.Scan(
			&e.ID,
			&e.OrgID,
			&e.Type,
			&e.PostID,
			&e.ActorID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan licolog event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountByStatus returns the number of posts in the given status
func (r *LicologRepository) CountByStatus(ctx context.Context, orgID string, status models.PostStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("invalid post status: %s", status)
	}

	var count int
	query := `SELECT COUNT(*) FROM licolog_posts WHERE org_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, orgID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count licolog posts: %w", err)
	}

	return count, nil
}
