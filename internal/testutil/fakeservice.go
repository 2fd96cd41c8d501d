// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"tasker/internal/service"
)

// FakeTime is the creation time stamped on every fake task.
var FakeTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeAccount struct {
	password string
	user     service.User
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	accounts map[string]fakeAccount
	stored   string // username whose credentials are "stored"; "" when none
	booted   bool
	sess     service.Session
	tasks    []service.Task
	nextID   int64
	quote    service.Quote
	filters  []service.Filter
	routes   []service.Route

	// Error injection for testing
	LoginErr      error
	LogoutErr     error
	RegisterErr   error
	ListTasksErr  error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error
	DashboardErr  error
	QuoteErr      error
}

var _ service.Service = (*FakeService)(nil)

// NewFakeService creates a FakeService with no accounts and no tasks.
func NewFakeService() *FakeService {
	return &FakeService{
		accounts: make(map[string]fakeAccount),
		sess:     service.Session{IsLoading: true},
		nextID:   1,
		quote:    service.Quote{Quote: "Well begun is half done.", Author: "Aristotle"},
	}
}

// AddUser registers an account.
func (f *FakeService) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[username] = fakeAccount{
		password: password,
		user:     service.User{Username: username, Email: username + "@test.com"},
	}
}

// SignIn stores credentials for username as a previous login would have.
// The session itself is only restored by Bootstrap.
func (f *FakeService) SignIn(username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[username]; !ok {
		f.accounts[username] = fakeAccount{user: service.User{Username: username}}
	}
	f.stored = username
}

// ExpireSession drops stored credentials and the session, as the refresh
// interceptor does when a refresh fails.
func (f *FakeService) ExpireSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = ""
	f.sess = service.Session{}
}

// AddTask adds a task and returns it.
func (f *FakeService) AddTask(title string, status service.TaskStatus) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(service.TaskInput{Title: title, Status: status})
}

func (f *FakeService) addLocked(in service.TaskInput) service.Task {
	status := in.Status
	if status == "" {
		status = service.StatusPending
	}
	t := service.Task{
		ID:        f.nextID,
		Title:     in.Title,
		Status:    status,
		CreatedAt: FakeTime,
		UpdatedAt: FakeTime,
		Owner:     f.stored,
	}
	desc := in.Description
	t.Description = &desc
	if in.DueDate != "" {
		due := in.DueDate
		t.DueDate = &due
	}
	f.nextID++
	f.tasks = append(f.tasks, t)
	return t
}

// Task returns a stored task by ID.
func (f *FakeService) Task(id int64) (service.Task, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Filters returns the filters ListTasks was called with, in order.
func (f *FakeService) Filters() []service.Filter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Filter(nil), f.filters...)
}

// Routes returns the navigation signals emitted so far.
func (f *FakeService) Routes() []service.Route {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Route(nil), f.routes...)
}

// Bootstrap implements service.Auth.
func (f *FakeService) Bootstrap(ctx context.Context) service.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.booted {
		f.booted = true
		f.sess = service.Session{}
		if acct, ok := f.accounts[f.stored]; ok && f.stored != "" {
			u := acct.user
			f.sess = service.Session{IsAuthenticated: true, User: &u}
		}
	}
	return f.sess
}

// Session implements service.Auth.
func (f *FakeService) Session() service.Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sess
}

// HasCredentials implements service.Auth.
func (f *FakeService) HasCredentials(ctx context.Context) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stored != "", nil
}

// Login implements service.Auth.
func (f *FakeService) Login(ctx context.Context, identifier, secret string) error {
	if f.LoginErr != nil {
		return f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[identifier]
	if !ok || acct.password != secret {
		return service.ErrInvalidCredentials
	}
	f.stored = identifier
	u := acct.user
	f.sess = service.Session{IsAuthenticated: true, User: &u}
	f.routes = append(f.routes, service.RouteDashboard)
	return nil
}

// Logout implements service.Auth.
func (f *FakeService) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = ""
	f.sess = service.Session{}
	f.routes = append(f.routes, service.RouteLogin)
	return f.LogoutErr
}

// Register implements service.Auth.
func (f *FakeService) Register(ctx context.Context, r service.Registration) error {
	if f.RegisterErr != nil {
		return f.RegisterErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[r.Username] = fakeAccount{
		password: r.Password,
		user: service.User{
			Username:  r.Username,
			Email:     r.Email,
			FirstName: r.FirstName,
			LastName:  r.LastName,
		},
	}
	f.routes = append(f.routes, service.RouteLoginRegistered)
	return nil
}

// authorized reports whether a protected call may proceed. Caller holds mu.
func (f *FakeService) authorized() bool {
	return f.stored != ""
}

// ListTasks implements service.Tasks.
func (f *FakeService) ListTasks(ctx context.Context, filter service.Filter) ([]service.Task, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()

	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.authorized() {
		return nil, service.ErrSessionExpired
	}

	search := strings.ToLower(filter.Search)
	var result []service.Task
	for _, t := range f.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// CreateTask implements service.Tasks.
func (f *FakeService) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized() {
		return service.Task{}, service.ErrSessionExpired
	}
	return f.addLocked(in), nil
}

// UpdateTask implements service.Tasks.
func (f *FakeService) UpdateTask(ctx context.Context, id int64, p service.TaskPatch) (service.Task, error) {
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized() {
		return service.Task{}, service.ErrSessionExpired
	}

	for i := range f.tasks {
		t := &f.tasks[i]
		if t.ID != id {
			continue
		}
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			desc := *p.Description
			t.Description = &desc
		}
		if p.Status != nil {
			t.Status = *p.Status
		}
		if p.ClearDueDate {
			t.DueDate = nil
		} else if p.DueDate != nil {
			due := *p.DueDate
			t.DueDate = &due
		}
		return *t, nil
	}
	return service.Task{}, service.ErrNotFound
}

// DeleteTask implements service.Tasks.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized() {
		return service.ErrSessionExpired
	}

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return service.ErrNotFound
}

// Dashboard implements service.Tasks.
func (f *FakeService) Dashboard(ctx context.Context) (service.DashboardStats, error) {
	if f.DashboardErr != nil {
		return service.DashboardStats{}, f.DashboardErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.authorized() {
		return service.DashboardStats{}, service.ErrSessionExpired
	}

	var s service.DashboardStats
	for _, t := range f.tasks {
		s.Total++
		switch t.Status {
		case service.StatusCompleted:
			s.Completed++
		case service.StatusPending:
			s.Pending++
		case service.StatusArchived:
			s.Archived++
		}
	}
	return s, nil
}

// Quote implements service.Tasks.
func (f *FakeService) Quote(ctx context.Context) (service.Quote, error) {
	if f.QuoteErr != nil {
		return service.Quote{}, f.QuoteErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.authorized() {
		return service.Quote{}, service.ErrSessionExpired
	}
	return f.quote, nil
}
