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

const noteColumns = `id, title, content, date_assigned, tags, area, created_at, updated_at`

func scanNote(row rowScanner) (*models.Note, error) {
	n := &models.Note{}
	var dateAssigned sql.NullString
	var tags string
	var createdAt, updatedAt int64
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &dateAssigned, &tags, &n.Area, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	n.DateAssigned = dateAssigned.String
	n.Tags = decodeTags(tags)
	n.CreatedAt = fromMs(createdAt)
	n.UpdatedAt = fromMs(updatedAt)
	return n, nil
}

// CreateNote inserts a new note.
func (s *Store) CreateNote(ctx context.Context, n models.Note) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.Tags = models.NormalizeTags(n.Tags)

	now := s.nowMs()
	query := `INSERT INTO notes (` + noteColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.Title, n.Content, nullString(n.DateAssigned), encodeTags(n.Tags), n.Area, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return s.getNote(ctx, n.ID)
}

// GetNote retrieves a note by ID.
func (s *Store) GetNote(ctx context.Context, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getNote(ctx, id)
}

func (s *Store) getNote(ctx context.Context, id string) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "notes", "note", id)
}

// ListNotes lists notes, most recent first.
func (s *Store) ListNotes(ctx context.Context, f models.NoteFilter) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := sq.Select(noteColumns).From("notes").OrderBy("created_at DESC", "rowid DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []*models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}
