package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/models"
)

const projectColumns = `id, name, description, status, area, tags, created_at, updated_at`

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var tags string
	var createdAt, updatedAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Area, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Tags = decodeTags(tags)
	p.CreatedAt = fromMs(createdAt)
	p.UpdatedAt = fromMs(updatedAt)
	return p, nil
}

// CreateProject inserts a new project. Status defaults to active.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = models.ProjectActive
	}
	p.Tags = models.NormalizeTags(p.Tags)

	now := s.nowMs()
	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.Area, encodeTags(p.Tags), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return s.getProject(ctx, p.ID)
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProject(ctx, id)
}

func (s *Store) getProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// DeleteProject removes a project; its tasks are detached, not deleted.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "projects", "project", id)
}

// ListProjects lists projects, most recent first.
func (s *Store) ListProjects(ctx context.Context, f models.ProjectFilter) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := sq.Select(projectColumns).From("projects").OrderBy("created_at DESC", "rowid DESC")
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}
