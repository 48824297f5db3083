package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/models"
)

const taskColumns = `id, title, description, status, priority, due_date, project_id, tags, area, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var dueDate, projectID sql.NullString
	var tags string
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&dueDate, &projectID, &tags, &t.Area,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	t.DueDate = dueDate.String
	t.ProjectID = projectID.String
	t.Tags = decodeTags(tags)
	t.CreatedAt = fromMs(createdAt)
	t.UpdatedAt = fromMs(updatedAt)
	if completedAt.Valid {
		c := fromMs(completedAt.Int64)
		t.CompletedAt = &c
	}
	return t, nil
}

// CreateTask inserts a new task. Unset priority, status and tags get their defaults.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskPending
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.Tags = models.NormalizeTags(t.Tags)

	now := s.nowMs()
	var completedAt sql.NullInt64
	if t.Status == models.TaskCompleted {
		completedAt = sql.NullInt64{Int64: now, Valid: true}
	}

	query := `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Description, t.Status, t.Priority,
		nullString(t.DueDate), nullString(t.ProjectID), encodeTags(t.Tags), t.Area,
		now, now, completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.getTask(ctx, t.ID)
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTask(ctx, id)
}

func (s *Store) getTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// UpdateTask applies a partial update and bumps updated_at.
func (s *Store) UpdateTask(ctx context.Context, id string, u models.TaskUpdate) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.ProjectID != nil {
		t.ProjectID = *u.ProjectID
	}
	if u.Tags != nil {
		t.Tags = models.NormalizeTags(*u.Tags)
	}
	if u.Area != nil {
		t.Area = *u.Area
	}

	now := s.nowMs()
	completedAt := sql.NullInt64{}
	if t.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: t.CompletedAt.UnixMilli(), Valid: true}
	}
	if u.Status != nil && *u.Status != t.Status {
		t.Status = *u.Status
		if t.Status == models.TaskCompleted {
			completedAt = sql.NullInt64{Int64: now, Valid: true}
		} else {
			completedAt = sql.NullInt64{}
		}
	}

	query := `
	UPDATE tasks
	SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, project_id = ?,
	    tags = ?, area = ?, updated_at = ?, completed_at = ?
	WHERE id = ?
	`
	_, err = s.db.ExecContext(ctx, query,
		t.Title, t.Description, t.Status, t.Priority,
		nullString(t.DueDate), nullString(t.ProjectID), encodeTags(t.Tags), t.Area,
		now, completedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.getTask(ctx, id)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "tasks", "task", id)
}

// ListTasks retrieves tasks matching the filter, most recent first.
func (s *Store) ListTasks(ctx context.Context, f models.TaskFilter) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := sq.Select(taskColumns).From("tasks").OrderBy("created_at DESC", "rowid DESC")
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.ProjectID != "" {
		q = q.Where(sq.Eq{"project_id": f.ProjectID})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) query(ctx context.Context, q sq.SelectBuilder) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, perrors.ErrNotFound)
	}
	return nil
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	_ = json.Unmarshal([]byte(raw), &tags)
	return tags
}
