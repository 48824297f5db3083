package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/models"
)

// Payload is the typed, validated body of a directive. Exactly one concrete
// variant exists per known Type.
type Payload interface {
	Type() Type
	validate() error
}

// ID accepts a JSON string or number; models sometimes emit numeric ids.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*id = ID(n.String())
	return nil
}

// CreateTask is the CREATE_TASK payload.
type CreateTask struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date"`
	Priority    models.Priority `json:"priority"`
	ProjectID   ID              `json:"project_id"`
	Tags        []string        `json:"tags"`
	Area        string          `json:"area"`
}

func (CreateTask) Type() Type { return TypeCreateTask }

func (p CreateTask) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return invalid("title is required")
	}
	if p.Priority != "" && !p.Priority.Valid() {
		return invalid(fmt.Sprintf("invalid priority: %s", p.Priority))
	}
	if !models.ValidDate(p.DueDate) {
		return invalid(fmt.Sprintf("invalid due_date: %s (expected YYYY-MM-DD)", p.DueDate))
	}
	return nil
}

// Task converts the payload into a task record for the store.
func (p CreateTask) Task() models.Task {
	return models.Task{
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		DueDate:     p.DueDate,
		Priority:    p.Priority,
		ProjectID:   string(p.ProjectID),
		Tags:        p.Tags,
		Area:        p.Area,
	}
}

// CreateProject is the CREATE_PROJECT payload.
type CreateProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Area        string   `json:"area"`
	Tags        []string `json:"tags"`
}

func (CreateProject) Type() Type { return TypeCreateProject }

func (p CreateProject) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name is required")
	}
	return nil
}

// Project converts the payload into a project record for the store.
func (p CreateProject) Project() models.Project {
	return models.Project{
		Name:        strings.TrimSpace(p.Name),
		Description: p.Description,
		Area:        p.Area,
		Tags:        p.Tags,
	}
}

// CreateNote is the CREATE_NOTE payload.
type CreateNote struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	DateAssigned string   `json:"date_assigned"`
	Tags         []string `json:"tags"`
	Area         string   `json:"area"`
}

func (CreateNote) Type() Type { return TypeCreateNote }

func (p CreateNote) validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return invalid("title is required")
	}
	if strings.TrimSpace(p.Content) == "" {
		return invalid("content is required")
	}
	if !models.ValidDate(p.DateAssigned) {
		return invalid(fmt.Sprintf("invalid date_assigned: %s (expected YYYY-MM-DD)", p.DateAssigned))
	}
	return nil
}

// Note converts the payload into a note record for the store.
func (p CreateNote) Note() models.Note {
	return models.Note{
		Title:        strings.TrimSpace(p.Title),
		Content:      p.Content,
		DateAssigned: p.DateAssigned,
		Tags:         p.Tags,
		Area:         p.Area,
	}
}

// CreateScrap is the CREATE_SCRAP payload.
type CreateScrap struct {
	Content      string `json:"content"`
	DateAssigned string `json:"date_assigned"`
}

func (CreateScrap) Type() Type { return TypeCreateScrap }

func (p CreateScrap) validate() error {
	if strings.TrimSpace(p.Content) == "" {
		return invalid("content is required")
	}
	if !models.ValidDate(p.DateAssigned) {
		return invalid(fmt.Sprintf("invalid date_assigned: %s (expected YYYY-MM-DD)", p.DateAssigned))
	}
	return nil
}

// UpdateTask is the UPDATE_TASK payload. Only the fields of models.TaskUpdate
// are mutable; any other key in updates is ignored.
type UpdateTask struct {
	ID      ID                `json:"id"`
	Updates models.TaskUpdate `json:"updates"`
}

func (UpdateTask) Type() Type { return TypeUpdateTask }

func (p UpdateTask) validate() error {
	if p.ID == "" {
		return invalid("id is required")
	}
	u := p.Updates
	if u.Empty() {
		return invalid("updates must contain at least one of: title, description, status, priority, due_date, project_id, tags, area")
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return invalid("title cannot be empty")
	}
	if u.Status != nil && !u.Status.Valid() {
		return invalid(fmt.Sprintf("invalid status: %s", *u.Status))
	}
	if u.Priority != nil && !u.Priority.Valid() {
		return invalid(fmt.Sprintf("invalid priority: %s", *u.Priority))
	}
	if u.DueDate != nil && !models.ValidDate(*u.DueDate) {
		return invalid(fmt.Sprintf("invalid due_date: %s (expected YYYY-MM-DD)", *u.DueDate))
	}
	return nil
}

// ConvertScrap is the CONVERT_SCRAP payload. Data is a partial payload of the
// target type and is decoded once the scrap is known.
type ConvertScrap struct {
	ScrapID ID                `json:"scrap_id"`
	To      models.EntityType `json:"to"`
	Data    json.RawMessage   `json:"data"`
}

func (ConvertScrap) Type() Type { return TypeConvertScrap }

func (p ConvertScrap) validate() error {
	if p.ScrapID == "" {
		return invalid("scrap_id is required")
	}
	if p.To == "" {
		return invalid("to is required")
	}
	return nil
}

// Decode turns a directive into its typed payload and validates it.
// Unknown types fail with errors.ErrUnknownAction.
func Decode(d Directive) (Payload, error) {
	var p Payload
	var err error
	switch d.Type {
	case TypeCreateTask:
		p, err = decodeInto[CreateTask](d.Data)
	case TypeCreateProject:
		p, err = decodeInto[CreateProject](d.Data)
	case TypeCreateNote:
		p, err = decodeInto[CreateNote](d.Data)
	case TypeCreateScrap:
		p, err = decodeInto[CreateScrap](d.Data)
	case TypeUpdateTask:
		p, err = decodeInto[UpdateTask](d.Data)
	case TypeConvertScrap:
		p, err = decodeInto[ConvertScrap](d.Data)
	default:
		return nil, fail(perrors.ErrUnknownAction, fmt.Sprintf("Unknown action type: %s", d.Type))
	}
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeInto[T Payload](data json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, invalid(fmt.Sprintf("invalid payload: %v", err))
	}
	return v, nil
}

func invalid(msg string) error {
	return fail(perrors.ErrInvalidInput, msg)
}
