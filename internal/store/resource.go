package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vlearn/apiserver/types"
)

// ResourceRepository handles persistence for community resources.
type ResourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns all resources in insertion order.
func (r *ResourceRepository) List(ctx context.Context) ([]types.Resource, error) {
	const query = `
		SELECT id, title, author, category, type, description, content,
		       file_path, original_filename, created_at
		FROM resources
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []types.Resource
	for rows.Next() {
		var resource types.Resource
		if err := rows.Scan(
			&resource.ID,
			&resource.Title,
			&resource.Author,
			&resource.Category,
			&resource.Type,
			&resource.Description,
			&resource.Content,
			&resource.FilePath,
			&resource.OriginalFilename,
			&resource.CreatedAt,
		); err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *ResourceRepository) Get(ctx context.Context, id int) (types.Resource, error) {
	const query = `
		SELECT id, title, author, category, type, description, content,
		       file_path, original_filename, created_at
		FROM resources
		WHERE id = $1`
	var resource types.Resource
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&resource.ID,
		&resource.Title,
		&resource.Author,
		&resource.Category,
		&resource.Type,
		&resource.Description,
		&resource.Content,
		&resource.FilePath,
		&resource.OriginalFilename,
		&resource.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resource{}, ErrNotFound
		}
		return types.Resource{}, err
	}
	return resource, nil
}

func (r *ResourceRepository) Create(ctx context.Context, resource types.Resource) (types.Resource, error) {
	resource.CreatedAt = time.Now()

	const query = `
		INSERT INTO resources (title, author, category, type, description, content,
		                       file_path, original_filename, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		resource.Title,
		resource.Author,
		resource.Category,
		resource.Type,
		resource.Description,
		resource.Content,
		resource.FilePath,
		resource.OriginalFilename,
		resource.CreatedAt,
	).Scan(&resource.ID); err != nil {
		return types.Resource{}, err
	}
	return resource, nil
}

// UpdateFilePath records the object-storage key of an uploaded file after
// the row exists (keys embed the resource ID).
func (r *ResourceRepository) UpdateFilePath(ctx context.Context, id int, filePath, originalFilename string) error {
	const query = `
		UPDATE resources
		SET file_path = $1, original_filename = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, filePath, originalFilename, id)
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

func (r *ResourceRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM resources WHERE id = $1`
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
