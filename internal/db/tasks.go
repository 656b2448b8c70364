package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dori/mindmap/internal/model"
)

const taskColumns = `t.id, t.group_id, t.parent_task_id, t.title, t.status, t.priority,
	t.order_index, t.scheduled_at, t.created_at, t.updated_at`

func (db *DB) getTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		JOIN task_groups g ON g.id = t.group_id
		WHERE g.project_id = ?
		ORDER BY t.group_id, t.order_index, t.created_at, t.id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var status string
		var priority sql.NullInt64
		var scheduled sql.NullTime
		err := rows.Scan(
			&t.ID, &t.GroupID, &t.ParentTaskID, &t.Title, &status, &priority,
			&t.OrderIndex, &scheduled, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		t.Status = model.Status(status)
		if priority.Valid {
			p := int(priority.Int64)
			t.Priority = &p
		}
		if scheduled.Valid {
			s := scheduled.Time
			t.ScheduledAt = &s
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts t under its own id and returns the stored row
func (db *DB) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	t = t.Clone()
	t.Title = normalizeTitle(t.Title)
	if !t.Status.Valid() {
		t.Status = model.StatusTodo
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO tasks (id, group_id, parent_task_id, title, status, priority,
		                   order_index, scheduled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.GroupID, orNull(t.ParentTaskID), t.Title, string(t.Status),
		orNull(t.Priority), t.OrderIndex, orNull(t.ScheduledAt), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// UpdateTask applies a field-level patch, structural fields included
func (db *DB) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) error {
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Title != nil {
		set("title", normalizeTitle(*patch.Title))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.ClearPriority {
		set("priority", nil)
	} else if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.ClearScheduledAt {
		set("scheduled_at", nil)
	} else if patch.ScheduledAt != nil {
		set("scheduled_at", *patch.ScheduledAt)
	}
	if patch.OrderIndex != nil {
		set("order_index", *patch.OrderIndex)
	}
	if patch.GroupID != nil {
		set("group_id", *patch.GroupID)
	}
	if patch.ClearParent {
		set("parent_task_id", nil)
	} else if patch.ParentTaskID != nil {
		set("parent_task_id", *patch.ParentTaskID)
	}
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", time.Now())
	args = append(args, id)

	res, err := db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return notFound(res, "task", id)
}

// DeleteTask removes a task; descendants go with it through the foreign key
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return notFound(res, "task", id)
}
