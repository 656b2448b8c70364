package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dori/mindmap/internal/model"
)

// GetProjects returns all projects by creation time
func (db *DB) GetProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM projects
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProject returns a single project by ID, or nil if it does not exist
func (db *DB) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProject creates a new project with a generated id
func (db *DB) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	return db.EnsureProject(ctx, uuid.New().String(), name)
}

// EnsureProject returns the project with the given id, creating it first if needed.
// An existing project keeps its name.
func (db *DB) EnsureProject(ctx context.Context, id, name string) (*model.Project, error) {
	name = model.ProjectName(name)
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO projects (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, id, name, now, now)
	if err != nil {
		return nil, err
	}
	return db.GetProject(ctx, id)
}

// RenameProject updates a project's name
func (db *DB) RenameProject(ctx context.Context, id, name string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE projects SET name = ?, updated_at = ? WHERE id = ?
	`, model.ProjectName(name), time.Now(), id)
	if err != nil {
		return err
	}
	return notFound(res, "project", id)
}
