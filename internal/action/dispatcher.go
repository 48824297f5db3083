package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/models"
)

// maxDerivedTitle bounds titles derived from scrap content.
const maxDerivedTitle = 80

// EntityStore is the subset of the store the dispatcher mutates.
type EntityStore interface {
	CreateTask(ctx context.Context, t models.Task) (*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, u models.TaskUpdate) (*models.Task, error)
	CreateProject(ctx context.Context, p models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	CreateNote(ctx context.Context, n models.Note) (*models.Note, error)
	CreateScrap(ctx context.Context, sc models.Scrap) (*models.Scrap, error)
	GetScrap(ctx context.Context, id string) (*models.Scrap, error)
	MarkScrapConverted(ctx context.Context, id string, toType models.EntityType, toID string) (*models.Scrap, error)
}

// Dispatcher executes directives against an EntityStore.
type Dispatcher struct {
	store  EntityStore
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher bound to store.
func NewDispatcher(store EntityStore, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch executes directives sequentially in the given order and returns
// exactly one result per directive. A failing directive never stops the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, directives []Directive) []Result {
	results := make([]Result, 0, len(directives))
	for i, dir := range directives {
		data, err := d.execute(ctx, dir)
		if err != nil {
			d.logger.Warn().
				Int("index", i).
				Str("type", string(dir.Type)).
				Str("kind", perrors.Kind(err)).
				Err(err).
				Msg("directive failed")
			results = append(results, Result{Type: dir.Type, Success: false, Error: err.Error(), Err: err})
			continue
		}
		d.logger.Debug().Int("index", i).Str("type", string(dir.Type)).Msg("directive applied")
		results = append(results, Result{Type: dir.Type, Success: true, Data: data})
	}
	return results
}

func (d *Dispatcher) execute(ctx context.Context, dir Directive) (any, error) {
	if !dir.Type.Known() {
		return nil, fail(perrors.ErrUnknownAction, fmt.Sprintf("Unknown action type: %s", dir.Type))
	}

	payload, err := Decode(dir)
	if err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case CreateTask:
		return d.createTask(ctx, p)
	case CreateProject:
		return d.store.CreateProject(ctx, p.Project())
	case CreateNote:
		return d.store.CreateNote(ctx, p.Note())
	case CreateScrap:
		return d.store.CreateScrap(ctx, models.Scrap{Content: p.Content, DateAssigned: p.DateAssigned})
	case UpdateTask:
		return d.updateTask(ctx, p)
	case ConvertScrap:
		return d.convertScrap(ctx, p)
	default:
		return nil, fail(perrors.ErrUnknownAction, fmt.Sprintf("Unknown action type: %s", dir.Type))
	}
}

func (d *Dispatcher) createTask(ctx context.Context, p CreateTask) (*models.Task, error) {
	if err := d.requireProject(ctx, string(p.ProjectID)); err != nil {
		return nil, err
	}
	return d.store.CreateTask(ctx, p.Task())
}

func (d *Dispatcher) updateTask(ctx context.Context, p UpdateTask) (*models.Task, error) {
	id := string(p.ID)
	if _, err := d.store.GetTask(ctx, id); err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			return nil, fail(perrors.ErrNotFound, fmt.Sprintf("Task not found: %s", id))
		}
		return nil, err
	}
	if p.Updates.ProjectID != nil {
		if err := d.requireProject(ctx, *p.Updates.ProjectID); err != nil {
			return nil, err
		}
	}
	t, err := d.store.UpdateTask(ctx, id, p.Updates)
	if errors.Is(err, perrors.ErrNotFound) {
		return nil, fail(perrors.ErrNotFound, fmt.Sprintf("Task not found: %s", id))
	}
	return t, err
}

func (d *Dispatcher) convertScrap(ctx context.Context, p ConvertScrap) (any, error) {
	id := string(p.ScrapID)
	scrap, err := d.store.GetScrap(ctx, id)
	if err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			return nil, fail(perrors.ErrNotFound, fmt.Sprintf("Scrap not found: %s", id))
		}
		return nil, err
	}
	if scrap.Processed {
		return nil, fail(perrors.ErrConflict, fmt.Sprintf("Scrap already processed: %s", id))
	}

	var (
		created  any
		targetID string
	)
	switch p.To {
	case models.EntityTask:
		tp, err := decodeConversion[CreateTask](p.Data)
		if err != nil {
			return nil, err
		}
		if tp.Description == "" {
			tp.Description = scrap.Content
		}
		if strings.TrimSpace(tp.Title) == "" {
			tp.Title = deriveTitle(scrap.Content)
		}
		if err := tp.validate(); err != nil {
			return nil, err
		}
		t, err := d.createTask(ctx, tp)
		if err != nil {
			return nil, err
		}
		created, targetID = t, t.ID
	case models.EntityNote:
		np, err := decodeConversion[CreateNote](p.Data)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(np.Content) == "" {
			np.Content = scrap.Content
		}
		if strings.TrimSpace(np.Title) == "" {
			np.Title = deriveTitle(scrap.Content)
		}
		if np.DateAssigned == "" {
			np.DateAssigned = scrap.DateAssigned
		}
		if err := np.validate(); err != nil {
			return nil, err
		}
		n, err := d.store.CreateNote(ctx, np.Note())
		if err != nil {
			return nil, err
		}
		created, targetID = n, n.ID
	default:
		return nil, fail(perrors.ErrInvalidInput, fmt.Sprintf("Unsupported conversion target: %s", p.To))
	}

	if _, err := d.store.MarkScrapConverted(ctx, id, p.To, targetID); err != nil {
		switch {
		case errors.Is(err, perrors.ErrConflict):
			return nil, fail(perrors.ErrConflict, fmt.Sprintf("Scrap already processed: %s", id))
		case errors.Is(err, perrors.ErrNotFound):
			return nil, fail(perrors.ErrNotFound, fmt.Sprintf("Scrap not found: %s", id))
		}
		return nil, err
	}
	return created, nil
}

func (d *Dispatcher) requireProject(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := d.store.GetProject(ctx, id); err != nil {
		if errors.Is(err, perrors.ErrNotFound) {
			return fail(perrors.ErrNotFound, fmt.Sprintf("Project not found: %s", id))
		}
		return err
	}
	return nil
}

func decodeConversion[T Payload](data json.RawMessage) (T, error) {
	var v T
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, invalid(fmt.Sprintf("invalid conversion data: %v", err))
	}
	return v, nil
}

// deriveTitle takes the first non-blank line of content, capped at
// maxDerivedTitle runes.
func deriveTitle(content string) string {
	line := ""
	for _, l := range strings.Split(content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if utf8.RuneCountInString(line) <= maxDerivedTitle {
		return line
	}
	r := []rune(line)
	return strings.TrimSpace(string(r[:maxDerivedTitle]))
}
