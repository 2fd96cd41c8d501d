// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusArchived  TaskStatus = "ARCHIVED"
)

// ParseStatus normalizes a status name. "ALL" and "" both mean no status.
func ParseStatus(s string) (TaskStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return "", nil
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	case string(StatusArchived):
		return StatusArchived, nil
	}
	return "", fmt.Errorf("invalid status: %s", s)
}

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Task represents a single task item as owned by the server.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     *string    `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Owner       string     `json:"owner"`
}

// TaskInput is the payload for creating a task.
// DueDate is sent as null when empty.
type TaskInput struct {
	Title       string
	Description string
	Status      TaskStatus
	DueDate     string
}

// MarshalJSON implements json.Marshaler.
func (in TaskInput) MarshalJSON() ([]byte, error) {
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	var due *string
	if in.DueDate != "" {
		due = &in.DueDate
	}
	return json.Marshal(struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Status      TaskStatus `json:"status"`
		DueDate     *string    `json:"due_date"`
	}{in.Title, in.Description, status, due})
}

// TaskPatch is a partial update. Nil fields are left untouched.
// ClearDueDate sends an explicit null for due_date.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	DueDate      *string
	ClearDueDate bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.DueDate == nil && !p.ClearDueDate
}

// MarshalJSON implements json.Marshaler.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.ClearDueDate {
		m["due_date"] = nil
	} else if p.DueDate != nil {
		m["due_date"] = *p.DueDate
	}
	return json.Marshal(m)
}

// Filter narrows a task listing. Empty fields are not sent.
type Filter struct {
	Search string
	Status TaskStatus
}

// DashboardStats holds the aggregate task counters.
type DashboardStats struct {
	Total     int `json:"total_tasks"`
	Completed int `json:"completed_tasks"`
	Pending   int `json:"pending_tasks"`
	Archived  int `json:"archived_tasks"`
}

// Quote is the quote of the day.
type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

// User is the read-only projection of the current account.
type User struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Registration holds the fields sent when creating an account.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// Session is the client-side authentication state.
type Session struct {
	IsAuthenticated bool
	User            *User
	IsLoading       bool

	// ExpiresAt is the access token expiry, zero if unknown.
	ExpiresAt time.Time
}

// Route is a navigation signal emitted by session transitions.
type Route string

const (
	RouteDashboard       Route = "/dashboard"
	RouteLogin           Route = "/login"
	RouteLoginRegistered Route = "/login?registered=true"
)
