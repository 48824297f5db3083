package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/models"
)

// tickClock returns a clock that advances one second per call.
func tickClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(context.Background(), dbPath, zerolog.Nop(), WithClock(tickClock()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesSchema(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"projects", "tasks", "notes", "scraps", "conversations"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := New(ctx, dbPath, zerolog.Nop())
	require.NoError(t, err)
	_, err = s1.CreateTask(ctx, models.Task{Title: "persisted"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := New(ctx, dbPath, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Close()

	tasks, err := s2.ListTasks(ctx, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "persisted", tasks[0].Title)
}

func TestTask_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTask(ctx, models.Task{
		Title:   "Buy milk",
		DueDate: "2025-01-02",
		Tags:    []string{"errand", " errand", ""},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.TaskPending, created.Status)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, []string{"errand"}, created.Tags)
	assert.Equal(t, "2025-01-02", created.DueDate)
	assert.Nil(t, created.CompletedAt)

	got, err := s.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	status := models.TaskCompleted
	title := "Buy oat milk"
	updated, err := s.UpdateTask(ctx, created.ID, models.TaskUpdate{Status: &status, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, updated.Status)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	reopen := models.TaskPending
	updated, err = s.UpdateTask(ctx, created.ID, models.TaskUpdate{Status: &reopen})
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	require.NoError(t, s.DeleteTask(ctx, created.ID))
	_, err = s.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestTask_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	title := "x"
	_, err = s.UpdateTask(ctx, "missing", models.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, "missing"), perrors.ErrNotFound)
}

func TestListTasks_RecentFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three", "four"} {
		_, err := s.CreateTask(ctx, models.Task{Title: title})
		require.NoError(t, err)
	}

	tasks, err := s.ListTasks(ctx, models.TaskFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "four", tasks[0].Title)
	assert.Equal(t, "three", tasks[1].Title)
	assert.Equal(t, "two", tasks[2].Title)
}

func TestListTasks_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, models.Project{Name: "Home"})
	require.NoError(t, err)

	_, err = s.CreateTask(ctx, models.Task{Title: "linked", ProjectID: p.ID})
	require.NoError(t, err)
	_, err = s.CreateTask(ctx, models.Task{Title: "done", Status: models.TaskCompleted})
	require.NoError(t, err)

	byProject, err := s.ListTasks(ctx, models.TaskFilter{ProjectID: p.ID})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.Equal(t, "linked", byProject[0].Title)

	byStatus, err := s.ListTasks(ctx, models.TaskFilter{Status: models.TaskCompleted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "done", byStatus[0].Title)
	assert.NotNil(t, byStatus[0].CompletedAt)
}

func TestTask_UnknownProjectRejected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTask(context.Background(), models.Task{Title: "orphan", ProjectID: "nope"})
	assert.Error(t, err)
}

func TestProject_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, models.Project{Name: "Garden", Area: "home", Tags: []string{"outdoor"}})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, p.Status)

	_, err = s.CreateProject(ctx, models.Project{Name: "Old", Status: models.ProjectArchived})
	require.NoError(t, err)

	active, err := s.ListProjects(ctx, models.ProjectFilter{Status: models.ProjectActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Garden", active[0].Name)

	all, err := s.ListProjects(ctx, models.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	task, err := s.CreateTask(ctx, models.Task{Title: "weed", ProjectID: p.ID})
	require.NoError(t, err)
	require.NoError(t, s.DeleteProject(ctx, p.ID))

	detached, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, detached.ProjectID)
}

func TestNote_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.CreateNote(ctx, models.Note{Title: "Ideas", Content: "grow tomatoes", DateAssigned: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, n.Tags)

	got, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "grow tomatoes", got.Content)
	assert.Equal(t, "2025-03-01", got.DateAssigned)

	notes, err := s.ListNotes(ctx, models.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	require.NoError(t, s.DeleteNote(ctx, n.ID))
	_, err = s.GetNote(ctx, n.ID)
	assert.ErrorIs(t, err, perrors.ErrNotFound)
}

func TestScrap_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sc, err := s.CreateScrap(ctx, models.Scrap{Content: "call the plumber"})
	require.NoError(t, err)
	assert.False(t, sc.Processed)

	other, err := s.CreateScrap(ctx, models.Scrap{Content: "book idea"})
	require.NoError(t, err)

	unprocessed := false
	pending, err := s.ListScraps(ctx, models.ScrapFilter{Processed: &unprocessed})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	converted, err := s.MarkScrapConverted(ctx, sc.ID, models.EntityTask, "task-123")
	require.NoError(t, err)
	assert.True(t, converted.Processed)
	assert.Equal(t, models.EntityTask, converted.ConvertedToType)
	assert.Equal(t, "task-123", converted.ConvertedToID)

	_, err = s.MarkScrapConverted(ctx, sc.ID, models.EntityNote, "note-1")
	assert.ErrorIs(t, err, perrors.ErrConflict)

	_, err = s.MarkScrapConverted(ctx, "missing", models.EntityNote, "note-1")
	assert.ErrorIs(t, err, perrors.ErrNotFound)

	pending, err = s.ListScraps(ctx, models.ScrapFilter{Processed: &unprocessed})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, other.ID, pending[0].ID)

	all, err := s.ListScraps(ctx, models.ScrapFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestConversation_AppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	snapshot := json.RawMessage(`{"recent_tasks":[]}`)
	first, err := s.AppendTurn(ctx, models.ConversationTurn{
		Message:         "hello",
		RawResponse:     "Hi! [ACTION:CREATE_SCRAP] {\"content\":\"x\"}",
		ContextSnapshot: snapshot,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.AppendTurn(ctx, models.ConversationTurn{Message: "second", RawResponse: "ok"})
	require.NoError(t, err)

	turns, err := s.ListTurns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].Message)
	assert.Equal(t, "{}", string(turns[0].ContextSnapshot))
	assert.Equal(t, first.RawResponse, turns[1].RawResponse)
	assert.JSONEq(t, string(snapshot), string(turns[1].ContextSnapshot))
}

func TestPruneTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AppendTurn(ctx, models.ConversationTurn{
		Message:   "ancient",
		CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = s.AppendTurn(ctx, models.ConversationTurn{Message: "fresh"})
	require.NoError(t, err)

	n, err := s.PruneTurns(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	turns, err := s.ListTurns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "fresh", turns[0].Message)
}

func TestDBSizeBytes(t *testing.T) {
	s := newTestStore(t)
	size, err := s.DBSizeBytes(context.Background())
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}
