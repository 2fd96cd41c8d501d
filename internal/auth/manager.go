// Package auth owns the client-side session: it restores it from stored
// credentials, logs in and out, and registers new accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"tasker/internal/api"
	"tasker/internal/service"
	"tasker/internal/session"
)

// Manager is the single owner of session state. Create one per process and
// pass it to whatever needs it.
type Manager struct {
	client   *api.Client
	store    session.Store
	navigate func(service.Route)
	log      *slog.Logger

	bootOnce sync.Once

	mu   sync.RWMutex
	sess service.Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithNavigator sets the function receiving navigation signals.
func WithNavigator(fn func(service.Route)) Option {
	return func(m *Manager) { m.navigate = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a Manager and registers its logout as the client's
// session-expired hook. The session reports loading until it is first
// resolved by Bootstrap, Login or Logout.
func NewManager(client *api.Client, store session.Store, opts ...Option) *Manager {
	m := &Manager{
		client:   client,
		store:    store,
		navigate: func(service.Route) {},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		sess:     service.Session{IsLoading: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	client.OnSessionExpired(m.Logout)
	return m
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sess
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (m *Manager) setSession(s service.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s
}

// Bootstrap restores the session from stored credentials. Only the first
// call does any work.
func (m *Manager) Bootstrap(ctx context.Context) service.Session {
	m.bootOnce.Do(func() {
		creds, err := m.store.Load(ctx)
		if err != nil {
			if !errors.Is(err, session.ErrNoCredentials) {
				m.log.Warn("unreadable credentials", slog.String("error", err.Error()))
			}
			m.setSession(service.Session{})
			return
		}

		if err := m.fetchUser(ctx, creds); err != nil {
			m.log.Debug("session restore failed", slog.String("error", err.Error()))
			if lerr := m.Logout(ctx); lerr != nil {
				m.log.Warn("logout failed", slog.String("error", lerr.Error()))
			}
		}
	})
	return m.Session()
}

// fetchUser installs creds as the bearer and loads the user. On success
// the session becomes authenticated.
func (m *Manager) fetchUser(ctx context.Context, creds session.Credentials) error {
	m.client.SetBearer(creds)

	user, err := m.client.Me(ctx)
	if err != nil {
		return err
	}

	// The interceptor may have refreshed; report the expiry of what is stored now.
	var exp session.Credentials
	if cur, err := m.store.Load(ctx); err == nil {
		exp = cur
	} else {
		exp = creds
	}
	expiresAt, _ := exp.Expiry()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = service.Session{
		IsAuthenticated: true,
		User:            &user,
		ExpiresAt:       expiresAt,
	}
	return nil
}

// HasCredentials reports whether an access token is stored.
func (m *Manager) HasCredentials(ctx context.Context) (bool, error) {
	_, err := m.store.Load(ctx)
	if errors.Is(err, session.ErrNoCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Login obtains tokens for identifier/secret, stores them and loads the
// user. Token endpoint errors are returned untouched.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	pair, err := m.client.ObtainToken(ctx, identifier, secret)
	if err != nil {
		return err
	}

	creds := session.Credentials{AccessToken: pair.Access, RefreshToken: pair.Refresh}
	if err := m.store.Set(ctx, creds); err != nil {
		return err
	}

	if err := m.fetchUser(ctx, creds); err != nil {
		if lerr := m.Logout(ctx); lerr != nil {
			m.log.Warn("logout failed", slog.String("error", lerr.Error()))
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	m.log.Debug("logged in", slog.String("user", identifier))
	m.navigate(service.RouteDashboard)
	return nil
}

// Logout clears credentials, the default Authorization header and the
// session. Calling it when already logged out is harmless.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.client.ClearBearer()

	m.setSession(service.Session{})

	m.navigate(service.RouteLogin)
	return err
}

// Register creates an account. Field-level rejections come back as
// *api.ValidationError.
func (m *Manager) Register(ctx context.Context, r service.Registration) error {
	if err := m.client.CreateAccount(ctx, r); err != nil {
		if verr := api.ParseValidationError(err); verr != nil {
			return verr
		}
		return err
	}
	m.navigate(service.RouteLoginRegistered)
	return nil
}
