// Package tasklist keeps a cached, filtered view of the user's tasks.
//
// Every successful mutation bumps an update counter; the next read after a
// bump refetches. A failed mutation or fetch leaves the cached list as it
// was. Search input is debounced; status changes refetch immediately.
package tasklist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"tasker/internal/debounce"
	"tasker/internal/service"
)

// DefaultSearchDelay is the quiet period before a search fetch.
const DefaultSearchDelay = 300 * time.Millisecond

// Board is a cached task list bound to a filter.
type Board struct {
	svc      service.Tasks
	log      *slog.Logger
	search   *debounce.Debouncer
	onChange func([]service.Task, error)

	mu       sync.Mutex
	filter   service.Filter
	tasks    []service.Task
	updates  int
	loaded   bool
	loadedAt int
	loadedF  service.Filter
}

// Option configures a Board.
type Option func(*Board)

// WithSearchDelay sets the debounce delay for SetSearch.
func WithSearchDelay(d time.Duration) Option {
	return func(b *Board) { b.search = debounce.New(d) }
}

// WithFilter sets the initial filter without fetching.
func WithFilter(f service.Filter) Option {
	return func(b *Board) { b.filter = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.log = l }
}

// WithOnChange registers a callback run after every fetch with its
// outcome. Fetches superseded by newer input do not report.
func WithOnChange(fn func([]service.Task, error)) Option {
	return func(b *Board) { b.onChange = fn }
}

// New creates a Board over svc with an empty filter.
func New(svc service.Tasks, opts ...Option) *Board {
	b := &Board{
		svc:      svc,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		search:   debounce.New(DefaultSearchDelay),
		onChange: func([]service.Task, error) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Filter returns the current filter.
func (b *Board) Filter() service.Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter
}

// Updates returns the number of successful mutations so far.
func (b *Board) Updates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updates
}

// Cached returns the last successfully fetched list without any network
// call.
func (b *Board) Cached() []service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]service.Task(nil), b.tasks...)
}

// Tasks returns the list for the current filter, refetching when a
// mutation happened or the filter changed since the last fetch.
func (b *Board) Tasks(ctx context.Context) ([]service.Task, error) {
	b.mu.Lock()
	fresh := b.loaded && b.loadedAt == b.updates && b.loadedF == b.filter
	tasks := append([]service.Task(nil), b.tasks...)
	b.mu.Unlock()

	if fresh {
		return tasks, nil
	}
	if err := b.Refresh(ctx); err != nil {
		return nil, err
	}
	return b.Cached(), nil
}

// Refresh fetches the list for the current filter.
func (b *Board) Refresh(ctx context.Context) error {
	_, err := b.fetch(ctx)
	return err
}

func (b *Board) fetch(ctx context.Context) ([]service.Task, error) {
	b.mu.Lock()
	f := b.filter
	updates := b.updates
	b.mu.Unlock()

	tasks, err := b.svc.ListTasks(ctx, f)
	if err != nil {
		b.log.Debug("task fetch failed", slog.String("search", f.Search),
			slog.String("status", string(f.Status)), slog.String("error", err.Error()))
		return nil, err
	}

	b.mu.Lock()
	if b.filter == f {
		b.tasks = tasks
		b.loaded = true
		b.loadedAt = updates
		b.loadedF = f
	}
	b.mu.Unlock()

	b.log.Debug("tasks fetched", slog.Int("count", len(tasks)), slog.String("search", f.Search))
	return tasks, nil
}

// SetSearch changes the search term and schedules a fetch after the
// debounce delay. Earlier pending searches are dropped and in-flight ones
// cancelled.
func (b *Board) SetSearch(ctx context.Context, term string) {
	b.mu.Lock()
	b.filter.Search = term
	b.mu.Unlock()

	b.search.Trigger(ctx, func(ctx context.Context) {
		tasks, err := b.fetch(ctx)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		b.onChange(tasks, err)
	})
}

// SetStatus changes the status filter and refetches immediately.
func (b *Board) SetStatus(ctx context.Context, status service.TaskStatus) error {
	b.mu.Lock()
	b.filter.Status = status
	b.mu.Unlock()

	tasks, err := b.fetch(ctx)
	b.onChange(tasks, err)
	return err
}

// Flush runs a pending search now and waits for it.
func (b *Board) Flush() {
	b.search.Flush()
}

// Close drops any pending search.
func (b *Board) Close() {
	b.search.Stop()
}

func (b *Board) bump() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates++
}

// Create adds a task.
func (b *Board) Create(ctx context.Context, in service.TaskInput) (service.Task, error) {
	t, err := b.svc.CreateTask(ctx, in)
	if err != nil {
		return service.Task{}, err
	}
	b.bump()
	return t, nil
}

// Update patches a task.
func (b *Board) Update(ctx context.Context, id int64, p service.TaskPatch) (service.Task, error) {
	t, err := b.svc.UpdateTask(ctx, id, p)
	if err != nil {
		return service.Task{}, err
	}
	b.bump()
	return t, nil
}

// SetTaskStatus moves a task to status.
func (b *Board) SetTaskStatus(ctx context.Context, id int64, status service.TaskStatus) (service.Task, error) {
	return b.Update(ctx, id, service.TaskPatch{Status: &status})
}

// Delete removes a task.
func (b *Board) Delete(ctx context.Context, id int64) error {
	if err := b.svc.DeleteTask(ctx, id); err != nil {
		return err
	}
	b.bump()
	return nil
}
