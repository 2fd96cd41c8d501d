package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"tasker/internal/service"
)

// TokenPair is the token endpoint response. Refresh is empty when the
// server does not rotate refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ObtainToken exchanges a username and password for a token pair.
// Not intercepted: a 401 here means bad credentials.
func (c *Client) ObtainToken(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	in := map[string]string{"username": username, "password": password}
	if err := c.raw(ctx, http.MethodPost, "/token/", in, &pair); err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("token response without access token")
	}
	return pair, nil
}

// RefreshToken mints a new access token. Not intercepted.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (TokenPair, error) {
	var pair TokenPair
	in := map[string]string{"refresh": refresh}
	if err := c.raw(ctx, http.MethodPost, "/token/refresh/", in, &pair); err != nil {
		return TokenPair{}, err
	}
	if pair.Access == "" {
		return TokenPair{}, fmt.Errorf("refresh response without access token")
	}
	return pair, nil
}

// Me fetches the current user.
func (c *Client) Me(ctx context.Context) (service.User, error) {
	var u service.User
	if err := c.do(ctx, http.MethodGet, "/users/me/", nil, nil, &u); err != nil {
		return service.User{}, err
	}
	return u, nil
}

// CreateAccount registers a new user.
func (c *Client) CreateAccount(ctx context.Context, r service.Registration) error {
	return c.raw(ctx, http.MethodPost, "/users/register/", r, nil)
}

// TaskQuery builds the list query. Empty filters are omitted.
func TaskQuery(f service.Filter) url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

type taskPage struct {
	Results []service.Task `json:"results"`
}

// ListTasks returns the tasks matching f.
func (c *Client) ListTasks(ctx context.Context, f service.Filter) ([]service.Task, error) {
	var page taskPage
	if err := c.do(ctx, http.MethodGet, "/tasks/", TaskQuery(f), nil, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	var t service.Task
	if err := c.do(ctx, http.MethodPost, "/tasks/", nil, in, &t); err != nil {
		return service.Task{}, err
	}
	return t, nil
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, id int64, p service.TaskPatch) (service.Task, error) {
	var t service.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id), nil, p, &t); err != nil {
		return service.Task{}, err
	}
	return t, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// Dashboard fetches the aggregate counters.
func (c *Client) Dashboard(ctx context.Context) (service.DashboardStats, error) {
	var s service.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/tasks/dashboard/", nil, nil, &s); err != nil {
		return service.DashboardStats{}, err
	}
	return s, nil
}

// Quote fetches the quote of the day.
func (c *Client) Quote(ctx context.Context) (service.Quote, error) {
	var q service.Quote
	if err := c.do(ctx, http.MethodGet, "/quotes/", nil, nil, &q); err != nil {
		return service.Quote{}, err
	}
	return q, nil
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d/", id)
}
