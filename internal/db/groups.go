package db

import (
	"context"
	"strings"
	"time"

	"github.com/dori/mindmap/internal/model"
)

// LoadProject returns every group and task of a project.
// Each result set is drained before the next query runs; with a single
// connection a nested query would block forever.
func (db *DB) LoadProject(ctx context.Context, projectID string) ([]model.Group, []model.Task, error) {
	groups, err := db.getGroups(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := db.getTasks(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return groups, tasks, nil
}

func (db *DB) getGroups(ctx context.Context, projectID string) ([]model.Group, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, project_id, title, order_index, created_at, updated_at
		FROM task_groups
		WHERE project_id = ?
		ORDER BY order_index, created_at, id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Title, &g.OrderIndex, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateGroup inserts g under its own id and returns the stored row
func (db *DB) CreateGroup(ctx context.Context, g model.Group) (model.Group, error) {
	g.Title = normalizeTitle(g.Title)
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO task_groups (id, project_id, title, order_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, g.ProjectID, g.Title, g.OrderIndex, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return model.Group{}, err
	}
	return g, nil
}

// UpdateGroup applies a field-level patch
func (db *DB) UpdateGroup(ctx context.Context, id string, patch model.GroupPatch) error {
	var sets []string
	var args []interface{}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, normalizeTitle(*patch.Title))
	}
	if patch.OrderIndex != nil {
		sets = append(sets, "order_index = ?")
		args = append(args, *patch.OrderIndex)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), id)

	res, err := db.ExecContext(ctx,
		"UPDATE task_groups SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return notFound(res, "group", id)
}

// DeleteGroup removes a group; its tasks go with it through the foreign key
func (db *DB) DeleteGroup(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM task_groups WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return notFound(res, "group", id)
}

func normalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Untitled"
	}
	return s
}
