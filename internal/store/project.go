package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/vlearn/apiserver/types"
)

// ProjectRepository handles persistence for showcased projects.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// List returns all projects in insertion order.
func (r *ProjectRepository) List(ctx context.Context) ([]types.Project, error) {
	const query = `
		SELECT id, title, author, category, description, technologies,
		       github_url, demo_url, external_link, status, challenges,
		       learnings, future_plans, image_path, likes, created_at
		FROM projects
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		var project types.Project
		var technologiesJSON []byte
		if err := rows.Scan(
			&project.ID,
			&project.Title,
			&project.Author,
			&project.Category,
			&project.Description,
			&technologiesJSON,
			&project.GithubURL,
			&project.DemoURL,
			&project.ExternalLink,
			&project.Status,
			&project.Challenges,
			&project.Learnings,
			&project.FuturePlans,
			&project.ImagePath,
			&project.Likes,
			&project.CreatedAt,
		); err != nil {
			return nil, err
		}

		_ = json.Unmarshal(technologiesJSON, &project.Technologies)
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int) (types.Project, error) {
	const query = `
		SELECT id, title, author, category, description, technologies,
		       github_url, demo_url, external_link, status, challenges,
		       learnings, future_plans, image_path, likes, created_at
		FROM projects
		WHERE id = $1`
	var project types.Project
	var technologiesJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Title,
		&project.Author,
		&project.Category,
		&project.Description,
		&technologiesJSON,
		&project.GithubURL,
		&project.DemoURL,
		&project.ExternalLink,
		&project.Status,
		&project.Challenges,
		&project.Learnings,
		&project.FuturePlans,
		&project.ImagePath,
		&project.Likes,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Project{}, ErrNotFound
		}
		return types.Project{}, err
	}

	_ = json.Unmarshal(technologiesJSON, &project.Technologies)
	return project, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project types.Project) (types.Project, error) {
	project.CreatedAt = time.Now()
	if project.Technologies == nil {
		project.Technologies = []string{}
	}

	technologiesJSON, err := json.Marshal(project.Technologies)
	if err != nil {
		return types.Project{}, err
	}

	const query = `
		INSERT INTO projects (title, author, category, description, technologies,
		                      github_url, demo_url, external_link, status, challenges,
		                      learnings, future_plans, image_path, likes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		project.Title,
		project.Author,
		project.Category,
		project.Description,
		technologiesJSON,
		project.GithubURL,
		project.DemoURL,
		project.ExternalLink,
		project.Status,
		project.Challenges,
		project.Learnings,
		project.FuturePlans,
		project.ImagePath,
		project.Likes,
		project.CreatedAt,
	).Scan(&project.ID); err != nil {
		return types.Project{}, err
	}
	return project, nil
}

// UpdateImagePath records the object-storage key of a showcase image after
// the row exists (keys embed the project ID).
func (r *ProjectRepository) UpdateImagePath(ctx context.Context, id int, imagePath string) error {
	const query = `UPDATE projects SET image_path = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, imagePath, id)
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

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM projects WHERE id = $1`
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
