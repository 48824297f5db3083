package assistant

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/lifeos/internal/models"
)

func TestContextBuilder_CapsTasksAndFiltersProjects(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		_, err := st.CreateTask(ctx, models.Task{Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
	}
	statuses := []models.ProjectStatus{models.ProjectActive, models.ProjectOnHold, models.ProjectActive, models.ProjectArchived, models.ProjectCompleted}
	for i, s := range statuses {
		_, err := st.CreateProject(ctx, models.Project{Name: fmt.Sprintf("project %d", i), Status: s})
		require.NoError(t, err)
	}
	open, err := st.CreateScrap(ctx, models.Scrap{Content: "open"})
	require.NoError(t, err)
	done, err := st.CreateScrap(ctx, models.Scrap{Content: "done"})
	require.NoError(t, err)
	_, err = st.MarkScrapConverted(ctx, done.ID, models.EntityNote, "n1")
	require.NoError(t, err)

	snap, err := NewContextBuilder(st, 5).Build(ctx)
	require.NoError(t, err)

	require.Len(t, snap.RecentTasks, 5)
	for i, task := range snap.RecentTasks {
		assert.Equal(t, fmt.Sprintf("task %d", 7-i), task.Title)
	}
	require.Len(t, snap.ActiveProjects, 2)
	for _, p := range snap.ActiveProjects {
		assert.Equal(t, models.ProjectActive, p.Status)
	}
	assert.Equal(t, "project 2", snap.ActiveProjects[0].Name)
	require.Len(t, snap.UnprocessedScraps, 1)
	assert.Equal(t, open.ID, snap.UnprocessedScraps[0].ID)
}

func TestContextBuilder_EmptyStoreHasEmptyLists(t *testing.T) {
	snap, err := NewContextBuilder(newTestStore(t), 0).Build(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, snap.RecentTasks)
	assert.NotNil(t, snap.ActiveProjects)
	assert.NotNil(t, snap.UnprocessedScraps)
}

func TestContextBuilder_Deterministic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := st.CreateTask(ctx, models.Task{Title: fmt.Sprintf("t%d", i)})
		require.NoError(t, err)
	}
	b := NewContextBuilder(st, 2)
	b.now = fixedClock

	first, err := b.Build(ctx)
	require.NoError(t, err)
	second, err := b.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestContextBuilder_DefaultCap(t *testing.T) {
	b := NewContextBuilder(nil, -3)
	assert.Equal(t, DefaultRecentTasks, b.recent)
}
