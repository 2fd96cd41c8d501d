// Package rest implements the service.Service interface on top of the task
// REST API.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"tasker/internal/api"
	"tasker/internal/auth"
	"tasker/internal/config"
	"tasker/internal/service"
	"tasker/internal/session"
)

// errRegistration is reported when the server rejects a registration
// without saying which field was wrong.
var errRegistration = errors.New("An error occurred, please try again.")

// Backend implements service.Service using the REST API.
type Backend struct {
	client *api.Client
	auth   *auth.Manager
	store  session.Store
	rdb    *redis.Client
	log    *slog.Logger
}

var _ service.Service = (*Backend)(nil)

type options struct {
	store      session.Store
	httpClient *http.Client
	logger     *slog.Logger
	navigate   func(service.Route)
}

// Option configures a Backend.
type Option func(*options)

// WithStore overrides the credential store selected by config.
func WithStore(s session.Store) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger overrides the logger derived from config.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNavigator receives navigation signals from the session manager.
// Without it the signals are logged at debug level.
func WithNavigator(fn func(service.Route)) Option {
	return func(o *options) { o.navigate = fn }
}

// New builds the credential store, API client and session manager from
// cfg. Nothing is sent to the API; call Bootstrap to restore the session.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Backend, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = cfg.Logger(os.Stderr)
	}

	b := &Backend{log: o.logger, store: o.store}
	if b.store == nil {
		if err := b.openStore(ctx, cfg); err != nil {
			return nil, err
		}
	}

	clientOpts := []api.Option{api.WithLogger(o.logger), api.WithTimeout(cfg.Timeout)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	client, err := api.New(cfg.APIBaseURL, b.store, clientOpts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.client = client

	if o.navigate == nil {
		o.navigate = LogRoutes(o.logger)
	}
	authOpts := []auth.Option{auth.WithLogger(o.logger), auth.WithNavigator(o.navigate)}
	b.auth = auth.NewManager(client, b.store, authOpts...)

	o.logger.Debug("backend ready", slog.String("api", cfg.APIBaseURL), slog.String("store", cfg.Store))
	return b, nil
}

// LogRoutes returns a navigator that records each route on l.
func LogRoutes(l *slog.Logger) func(service.Route) {
	return func(r service.Route) {
		l.Debug("navigate", slog.String("route", string(r)))
	}
}

func (b *Backend) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store {
	case config.StoreRedis:
		rdb, err := session.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		b.rdb = rdb
		b.store = session.NewRedisStore(rdb, cfg.RedisPrefix)
	case config.StoreMemory:
		b.store = session.NewMemoryStore()
	case config.StoreFile, "":
		b.store = session.NewFileStore(cfg.CredentialsPath())
	default:
		return config.ValidateStore(cfg.Store)
	}
	return nil
}

// Close releases the Redis connection, if any.
func (b *Backend) Close() error {
	if b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// Bootstrap implements service.Auth.
func (b *Backend) Bootstrap(ctx context.Context) service.Session {
	return b.auth.Bootstrap(ctx)
}

// Session implements service.Auth.
func (b *Backend) Session() service.Session {
	return b.auth.Session()
}

// HasCredentials implements service.Auth.
func (b *Backend) HasCredentials(ctx context.Context) (bool, error) {
	return b.auth.HasCredentials(ctx)
}

// Login implements service.Auth. Any rejection by the token endpoint is
// reported as service.ErrInvalidCredentials without server detail.
func (b *Backend) Login(ctx context.Context, identifier, secret string) error {
	err := b.auth.Login(ctx, identifier, secret)
	if err == nil {
		return nil
	}
	switch api.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized:
		b.log.Debug("login rejected", slog.String("error", err.Error()))
		return service.ErrInvalidCredentials
	}
	return wrapError(err)
}

// Logout implements service.Auth.
func (b *Backend) Logout(ctx context.Context) error {
	return b.auth.Logout(ctx)
}

// Register implements service.Auth.
func (b *Backend) Register(ctx context.Context, r service.Registration) error {
	err := b.auth.Register(ctx, r)
	if err == nil {
		return nil
	}
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		return service.InvalidInput(verr)
	}
	if api.StatusCode(err) != 0 {
		b.log.Debug("registration rejected", slog.String("error", err.Error()))
		return service.InvalidInput(errRegistration)
	}
	return wrapError(err)
}

// ListTasks implements service.Tasks.
func (b *Backend) ListTasks(ctx context.Context, f service.Filter) ([]service.Task, error) {
	tasks, err := b.client.ListTasks(ctx, f)
	return tasks, wrapError(err)
}

// CreateTask implements service.Tasks.
func (b *Backend) CreateTask(ctx context.Context, in service.TaskInput) (service.Task, error) {
	t, err := b.client.CreateTask(ctx, in)
	return t, wrapError(err)
}

// UpdateTask implements service.Tasks.
func (b *Backend) UpdateTask(ctx context.Context, id int64, p service.TaskPatch) (service.Task, error) {
	t, err := b.client.UpdateTask(ctx, id, p)
	return t, wrapError(err)
}

// DeleteTask implements service.Tasks.
func (b *Backend) DeleteTask(ctx context.Context, id int64) error {
	return wrapError(b.client.DeleteTask(ctx, id))
}

// Dashboard implements service.Tasks.
func (b *Backend) Dashboard(ctx context.Context) (service.DashboardStats, error) {
	s, err := b.client.Dashboard(ctx)
	return s, wrapError(err)
}

// Quote implements service.Tasks.
func (b *Backend) Quote(ctx context.Context) (service.Quote, error) {
	q, err := b.client.Quote(ctx)
	return q, wrapError(err)
}

// wrapError maps API errors onto the service error set.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return service.ErrTimeout
	}

	switch api.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return service.ErrSessionExpired
	case http.StatusNotFound:
		return service.ErrNotFound
	case http.StatusBadRequest:
		if verr := api.ParseValidationError(err); verr != nil {
			return service.InvalidInput(verr)
		}
		return service.InvalidInput(err)
	}
	return err
}
