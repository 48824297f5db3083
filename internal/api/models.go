package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/lifeos/internal/models"
)

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// TaskListResponse is returned by GET /api/v1/tasks.
type TaskListResponse struct {
	Tasks []*models.Task `json:"tasks"`
	Count int            `json:"count"`
}

// ProjectListResponse is returned by GET /api/v1/projects.
type ProjectListResponse struct {
	Projects []*models.Project `json:"projects"`
	Count    int               `json:"count"`
}

// NoteListResponse is returned by GET /api/v1/notes.
type NoteListResponse struct {
	Notes []*models.Note `json:"notes"`
	Count int            `json:"count"`
}

// ScrapListResponse is returned by GET /api/v1/scraps.
type ScrapListResponse struct {
	Scraps []*models.Scrap `json:"scraps"`
	Count  int             `json:"count"`
}

// ConversationListResponse is returned by GET /api/v1/conversations.
type ConversationListResponse struct {
	Turns []*models.ConversationTurn `json:"turns"`
	Count int                        `json:"count"`
}

// HealthDetailResponse is returned by GET /api/v1/health.
type HealthDetailResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	Uptime        string            `json:"uptime"`
	SchemaVersion int64             `json:"schema_version,omitempty"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
