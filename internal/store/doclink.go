package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vlearn/apiserver/types"
)

// DocumentationLinkRepository handles persistence for documentation links.
type DocumentationLinkRepository struct {
	db *sql.DB
}

func NewDocumentationLinkRepository(db *sql.DB) *DocumentationLinkRepository {
	return &DocumentationLinkRepository{db: db}
}

// List returns all documentation links in insertion order.
func (r *DocumentationLinkRepository) List(ctx context.Context) ([]types.DocumentationLink, error) {
	const query = `
		SELECT id, title, url, description, category, rating, created_at
		FROM documentation_links
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []types.DocumentationLink
	for rows.Next() {
		var link types.DocumentationLink
		if err := rows.Scan(
			&link.ID,
			&link.Title,
			&link.URL,
			&link.Description,
			&link.Category,
			&link.Rating,
			&link.CreatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func (r *DocumentationLinkRepository) Get(ctx context.Context, id int) (types.DocumentationLink, error) {
	const query = `
		SELECT id, title, url, description, category, rating, created_at
		FROM documentation_links
		WHERE id = $1`
	var link types.DocumentationLink
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&link.ID,
		&link.Title,
		&link.URL,
		&link.Description,
		&link.Category,
		&link.Rating,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.DocumentationLink{}, ErrNotFound
		}
		return types.DocumentationLink{}, err
	}
	return link, nil
}

func (r *DocumentationLinkRepository) Create(ctx context.Context, link types.DocumentationLink) (types.DocumentationLink, error) {
	link.CreatedAt = time.Now()

	const query = `
		INSERT INTO documentation_links (title, url, description, category, rating, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		link.Title,
		link.URL,
		link.Description,
		link.Category,
		link.Rating,
		link.CreatedAt,
	).Scan(&link.ID); err != nil {
		return types.DocumentationLink{}, err
	}
	return link, nil
}

func (r *DocumentationLinkRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM documentation_links WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count reports the number of documentation links. Used to decide whether
// the default set should be seeded.
func (r *DocumentationLinkRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM documentation_links`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
