package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/lifeos/internal/assistant"
	perrors "github.com/p-blackswan/lifeos/internal/errors"
	"github.com/p-blackswan/lifeos/internal/health"
	"github.com/p-blackswan/lifeos/internal/models"
	"github.com/p-blackswan/lifeos/internal/requestid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Chatter runs chat turns and exposes the current context snapshot.
type Chatter interface {
	Handle(ctx context.Context, message string) (*assistant.Reply, error)
	Snapshot(ctx context.Context) (*assistant.Snapshot, error)
}

// Store is the read/delete surface of the entity store served over HTTP.
type Store interface {
	ListTasks(ctx context.Context, f models.TaskFilter) ([]*models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ListProjects(ctx context.Context, f models.ProjectFilter) ([]*models.Project, error)
	ListNotes(ctx context.Context, f models.NoteFilter) ([]*models.Note, error)
	ListScraps(ctx context.Context, f models.ScrapFilter) ([]*models.Scrap, error)
	ListTurns(ctx context.Context, limit int) ([]*models.ConversationTurn, error)
	SchemaVersion(ctx context.Context) (int64, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	chat      Chatter
	store     Store
	checker   *health.Checker
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(chat Chatter, store Store, checker *health.Checker, logger zerolog.Logger) *Handlers {
	return &Handlers{
		chat:      chat,
		store:     store,
		checker:   checker,
		logger:    logger.With().Str("component", "handlers").Logger(),
		startTime: time.Now(),
	}
}

// Chat handles POST /api/v1/chat.
func (h *Handlers) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if strings.TrimSpace(req.Message) == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_message", "Bad Request",
			"Message is required")
	}

	ctx := requestid.WithRequestID(c.UserContext(), requestID(c))
	reply, err := h.chat.Handle(ctx, req.Message)
	if err != nil {
		return c.Status(chatStatus(err)).JSON(reply)
	}
	return c.JSON(reply)
}

// chatStatus maps a failed turn to its HTTP status; the body is always the
// turn reply.
func chatStatus(err error) int {
	switch {
	case errors.Is(err, perrors.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, perrors.ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	case perrors.IsTurnFatal(err):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Context handles GET /api/v1/context.
func (h *Handlers) Context(c *fiber.Ctx) error {
	snap, err := h.chat.Snapshot(c.UserContext())
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(snap)
}

// ListTasks handles GET /api/v1/tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	f := models.TaskFilter{
		Status:    models.TaskStatus(c.Query("status")),
		ProjectID: c.Query("project_id"),
		Limit:     listLimit(c),
	}
	if f.Status != "" && !f.Status.Valid() {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_status", "Bad Request",
			"Unknown task status: "+string(f.Status))
	}

	tasks, err := h.store.ListTasks(c.UserContext(), f)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(TaskListResponse{Tasks: tasks, Count: len(tasks)})
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := h.store.GetTask(c.UserContext(), id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.store.DeleteTask(c.UserContext(), id); err != nil {
		return h.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	f := models.ProjectFilter{Status: models.ProjectStatus(c.Query("status"))}
	if f.Status != "" && !f.Status.Valid() {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_status", "Bad Request",
			"Unknown project status: "+string(f.Status))
	}

	projects, err := h.store.ListProjects(c.UserContext(), f)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(ProjectListResponse{Projects: projects, Count: len(projects)})
}

// ListNotes handles GET /api/v1/notes.
func (h *Handlers) ListNotes(c *fiber.Ctx) error {
	notes, err := h.store.ListNotes(c.UserContext(), models.NoteFilter{Limit: listLimit(c)})
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(NoteListResponse{Notes: notes, Count: len(notes)})
}

// ListScraps handles GET /api/v1/scraps.
func (h *Handlers) ListScraps(c *fiber.Ctx) error {
	f := models.ScrapFilter{Limit: listLimit(c)}
	if raw := c.Query("processed"); raw != "" {
		processed, err := strconv.ParseBool(raw)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_query", "Bad Request",
				"processed must be true or false")
		}
		f.Processed = &processed
	}

	scraps, err := h.store.ListScraps(c.UserContext(), f)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(ScrapListResponse{Scraps: scraps, Count: len(scraps)})
}

// ListConversations handles GET /api/v1/conversations.
func (h *Handlers) ListConversations(c *fiber.Ctx) error {
	turns, err := h.store.ListTurns(c.UserContext(), listLimit(c))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(ConversationListResponse{Turns: turns, Count: len(turns)})
}

// HealthDetail handles GET /api/v1/health.
func (h *Handlers) HealthDetail(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.UserContext())

	checks := make(map[string]string, len(results))
	overall := "ok"
	for name, status := range results {
		checks[name] = string(status)
		if status != health.StatusOK {
			overall = "degraded"
		}
	}

	resp := HealthDetailResponse{
		Status: overall,
		Checks: checks,
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if v, err := h.store.SchemaVersion(c.UserContext()); err == nil {
		resp.SchemaVersion = v
	}
	return c.JSON(resp)
}

func (h *Handlers) storeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, perrors.ErrNotFound) {
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found",
			err.Error())
	}
	h.logger.Error().Err(err).Str("path", c.Path()).Str("request_id", requestID(c)).Msg("store error")
	return problemResponse(c, fiber.StatusInternalServerError,
		"store_error", "Internal Server Error",
		"An internal error occurred")
}

func listLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localRequestID).(string); ok {
		return id
	}
	return ""
}
