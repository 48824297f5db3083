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

const scrapColumns = `id, content, date_assigned, processed, converted_to_type, converted_to_id, created_at, updated_at`

func scanScrap(row rowScanner) (*models.Scrap, error) {
	sc := &models.Scrap{}
	var dateAssigned, convType, convID sql.NullString
	var createdAt, updatedAt int64
	if err := row.Scan(&sc.ID, &sc.Content, &dateAssigned, &sc.Processed, &convType, &convID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sc.DateAssigned = dateAssigned.String
	sc.ConvertedToType = models.EntityType(convType.String)
	sc.ConvertedToID = convID.String
	sc.CreatedAt = fromMs(createdAt)
	sc.UpdatedAt = fromMs(updatedAt)
	return sc, nil
}

// CreateScrap inserts a new, unprocessed scrap.
func (s *Store) CreateScrap(ctx context.Context, sc models.Scrap) (*models.Scrap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}

	now := s.nowMs()
	query := `
	INSERT INTO scraps (id, content, date_assigned, processed, created_at, updated_at)
	VALUES (?, ?, ?, 0, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, sc.ID, sc.Content, nullString(sc.DateAssigned), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create scrap: %w", err)
	}
	return s.getScrap(ctx, sc.ID)
}

// GetScrap retrieves a scrap by ID.
func (s *Store) GetScrap(ctx context.Context, id string) (*models.Scrap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getScrap(ctx, id)
}

func (s *Store) getScrap(ctx context.Context, id string) (*models.Scrap, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scrapColumns+` FROM scraps WHERE id = ?`, id)
	sc, err := scanScrap(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scrap %s: %w", id, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scrap: %w", err)
	}
	return sc, nil
}

// MarkScrapConverted flags a scrap as processed and records its conversion target.
// It only matches unprocessed scraps, so a scrap transitions to processed once.
func (s *Store) MarkScrapConverted(ctx context.Context, id string, toType models.EntityType, toID string) (*models.Scrap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	UPDATE scraps
	SET processed = 1, converted_to_type = ?, converted_to_id = ?, updated_at = ?
	WHERE id = ? AND processed = 0
	`
	res, err := s.db.ExecContext(ctx, query, string(toType), toID, s.nowMs(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark scrap converted: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		sc, err := s.getScrap(ctx, id)
		if err != nil {
			return nil, err
		}
		if sc.Processed {
			return nil, fmt.Errorf("scrap %s already processed: %w", id, perrors.ErrConflict)
		}
		return nil, fmt.Errorf("scrap %s not updated", id)
	}
	return s.getScrap(ctx, id)
}

// DeleteScrap removes a scrap.
func (s *Store) DeleteScrap(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByID(ctx, "scraps", "scrap", id)
}

// ListScraps lists scraps, most recent first.
func (s *Store) ListScraps(ctx context.Context, f models.ScrapFilter) ([]*models.Scrap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := sq.Select(scrapColumns).From("scraps").OrderBy("created_at DESC", "rowid DESC")
	if f.Processed != nil {
		q = q.Where(sq.Eq{"processed": *f.Processed})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list scraps: %w", err)
	}
	defer rows.Close()

	scraps := []*models.Scrap{}
	for rows.Next() {
		sc, err := scanScrap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrap: %w", err)
		}
		scraps = append(scraps, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scraps: %w", err)
	}
	return scraps, nil
}
