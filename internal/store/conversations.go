package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/p-blackswan/lifeos/internal/models"
)

// AppendTurn adds a turn to the conversation log. Turns are never updated.
func (s *Store) AppendTurn(ctx context.Context, turn models.ConversationTurn) (*models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	snapshot := string(turn.ContextSnapshot)
	if snapshot == "" {
		snapshot = "{}"
	}

	query := `
	INSERT INTO conversations (id, message, raw_response, context_snapshot, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		turn.ID, turn.Message, turn.RawResponse, snapshot, turn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append conversation turn: %w", err)
	}
	turn.CreatedAt = fromMs(turn.CreatedAt.UnixMilli())
	turn.ContextSnapshot = []byte(snapshot)
	return &turn, nil
}

// ListTurns returns logged turns, most recent first.
func (s *Store) ListTurns(ctx context.Context, limit int) ([]*models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := sq.Select("id, message, raw_response, context_snapshot, created_at").
		From("conversations").
		OrderBy("created_at DESC", "rowid DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	turns := []*models.ConversationTurn{}
	for rows.Next() {
		t := &models.ConversationTurn{}
		var snapshot string
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.Message, &t.RawResponse, &snapshot, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.ContextSnapshot = []byte(snapshot)
		t.CreatedAt = fromMs(createdAt)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// PruneTurns deletes turns older than maxAge and returns how many were removed.
func (s *Store) PruneTurns(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune turns: %w", err)
	}
	return res.RowsAffected()
}

// DBSizeBytes returns the database size in bytes.
func (s *Store) DBSizeBytes(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to get page size: %w", err)
	}
	return pageCount * pageSize, nil
}
