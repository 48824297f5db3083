package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/p-blackswan/lifeos/internal/models"
)

// DefaultRecentTasks is the snapshot task cap when none is configured.
const DefaultRecentTasks = 5

// SnapshotSource is the read side of the store used to build context.
type SnapshotSource interface {
	ListTasks(ctx context.Context, f models.TaskFilter) ([]*models.Task, error)
	ListProjects(ctx context.Context, f models.ProjectFilter) ([]*models.Project, error)
	ListScraps(ctx context.Context, f models.ScrapFilter) ([]*models.Scrap, error)
}

// Snapshot is the bounded view of store state given to the model each turn.
type Snapshot struct {
	RecentTasks       []*models.Task    `json:"recent_tasks"`
	ActiveProjects    []*models.Project `json:"active_projects"`
	UnprocessedScraps []*models.Scrap   `json:"unprocessed_scraps"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// ContextBuilder reads a Snapshot from the store. It has no side effects.
type ContextBuilder struct {
	src    SnapshotSource
	recent int
	now    func() time.Time
}

// NewContextBuilder creates a builder capped at recent tasks. A non-positive
// cap falls back to DefaultRecentTasks.
func NewContextBuilder(src SnapshotSource, recent int) *ContextBuilder {
	if recent <= 0 {
		recent = DefaultRecentTasks
	}
	return &ContextBuilder{src: src, recent: recent, now: time.Now}
}

// Build returns the current snapshot. Every list is newest first and never nil.
func (b *ContextBuilder) Build(ctx context.Context) (*Snapshot, error) {
	tasks, err := b.src.ListTasks(ctx, models.TaskFilter{Limit: b.recent})
	if err != nil {
		return nil, fmt.Errorf("listing recent tasks: %w", err)
	}
	projects, err := b.src.ListProjects(ctx, models.ProjectFilter{Status: models.ProjectActive})
	if err != nil {
		return nil, fmt.Errorf("listing active projects: %w", err)
	}
	unprocessed := false
	scraps, err := b.src.ListScraps(ctx, models.ScrapFilter{Processed: &unprocessed})
	if err != nil {
		return nil, fmt.Errorf("listing unprocessed scraps: %w", err)
	}

	if len(tasks) > b.recent {
		tasks = tasks[:b.recent]
	}
	return &Snapshot{
		RecentTasks:       nonNil(tasks),
		ActiveProjects:    nonNil(projects),
		UnprocessedScraps: nonNil(scraps),
		GeneratedAt:       b.now().UTC(),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
