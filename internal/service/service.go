// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service is everything commands need from a backend.
// Commands never import the HTTP client directly.
type Service interface {
	Auth
	Tasks
}

// Auth covers the session lifecycle.
type Auth interface {
	// Bootstrap restores the session from stored credentials.
	// Only the first call does any work; later calls return Session().
	Bootstrap(ctx context.Context) Session

	// Session returns a snapshot of the current session.
	Session() Session

	// HasCredentials reports whether an access token is stored.
	HasCredentials(ctx context.Context) (bool, error)

	// Login exchanges credentials for tokens and loads the user.
	Login(ctx context.Context, identifier, secret string) error

	// Logout clears credentials and session. Safe to call repeatedly.
	Logout(ctx context.Context) error

	// Register creates an account.
	Register(ctx context.Context, r Registration) error
}

// Tasks covers the task endpoints.
type Tasks interface {
	// ListTasks returns tasks matching the filter, in server order.
	ListTasks(ctx context.Context, f Filter) ([]Task, error)

	// CreateTask creates a task and returns the stored copy.
	CreateTask(ctx context.Context, in TaskInput) (Task, error)

	// UpdateTask applies a partial update.
	UpdateTask(ctx context.Context, id int64, p TaskPatch) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id int64) error

	// Dashboard returns the aggregate counters.
	Dashboard(ctx context.Context) (DashboardStats, error)

	// Quote returns the quote of the day.
	Quote(ctx context.Context) (Quote, error)
}
