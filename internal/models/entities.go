// Package models defines the productivity entities managed through the assistant.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates (due dates, assigned dates).
const DateLayout = "2006-01-02"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectOnHold, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// EntityType names a convertible target for a scrap.
type EntityType string

const (
	EntityTask EntityType = "task"
	EntityNote EntityType = "note"
)

// Task is a unit of work, optionally owned by a project.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     string     `json:"due_date,omitempty"`
	ProjectID   string     `json:"project_id,omitempty"`
	Tags        []string   `json:"tags"`
	Area        string     `json:"area,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TaskUpdate is a partial mutation of a task. Nil fields are left untouched;
// an empty ProjectID detaches the task from its project.
type TaskUpdate struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	DueDate     *string     `json:"due_date,omitempty"`
	ProjectID   *string     `json:"project_id,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Area        *string     `json:"area,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.Priority == nil &&
		u.DueDate == nil && u.ProjectID == nil && u.Tags == nil && u.Area == nil
}

// Project groups related tasks.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Area        string        `json:"area,omitempty"`
	Tags        []string      `json:"tags"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Note is free-form written content.
type Note struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	DateAssigned string    `json:"date_assigned,omitempty"`
	Tags         []string  `json:"tags"`
	Area         string    `json:"area,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Scrap is a raw capture waiting to be converted into a task or a note.
// Once Processed is set it only carries conversion metadata changes.
type Scrap struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	DateAssigned    string     `json:"date_assigned,omitempty"`
	Processed       bool       `json:"processed"`
	ConvertedToType EntityType `json:"converted_to_type,omitempty"`
	ConvertedToID   string     `json:"converted_to_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ConversationTurn is one persisted exchange with the model.
type ConversationTurn struct {
	ID              string          `json:"id"`
	Message         string          `json:"message"`
	RawResponse     string          `json:"raw_response"`
	ContextSnapshot json.RawMessage `json:"context_snapshot"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TaskFilter narrows task listings. Zero values mean "any".
type TaskFilter struct {
	Status    TaskStatus
	ProjectID string
	Limit     int
}

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	Status ProjectStatus
}

// NoteFilter narrows note listings.
type NoteFilter struct {
	Limit int
}

// ScrapFilter narrows scrap listings. A nil Processed matches both states.
type ScrapFilter struct {
	Processed *bool
	Limit     int
}

// NormalizeTags trims tags, drops empties and duplicates, and keeps first-seen order.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ValidDate reports whether s is empty or a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
