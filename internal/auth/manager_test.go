package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/api"
	"tasker/internal/auth"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/testutil"
)

type routes struct {
	mu  sync.Mutex
	got []service.Route
}

func (r *routes) push(rt service.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, rt)
}

func (r *routes) all() []service.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.Route(nil), r.got...)
}

type fixture struct {
	fake   *testutil.FakeAPI
	store  *session.MemoryStore
	client *api.Client
	mgr    *auth.Manager
	routes *routes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeAPI()
	t.Cleanup(fake.Close)
	fake.AddUser("user@test.com", "secret", service.User{Email: "user@test.com", FirstName: "Test"})

	store := session.NewMemoryStore()
	client, err := api.New(fake.BaseURL(), store)
	require.NoError(t, err)

	rt := &routes{}
	mgr := auth.NewManager(client, store, auth.WithNavigator(rt.push))
	return &fixture{fake: fake, store: store, client: client, mgr: mgr, routes: rt}
}

func TestNewManager_StartsLoading(t *testing.T) {
	f := newFixture(t)
	s := f.mgr.Session()
	assert.True(t, s.IsLoading)
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
}

func TestBootstrap_NoCredentials(t *testing.T) {
	f := newFixture(t)

	s := f.mgr.Bootstrap(context.Background())
	assert.Equal(t, service.Session{}, s)
	assert.Empty(t, f.fake.Requests(), "no network call without stored tokens")
	assert.Empty(t, f.routes.all())
}

func TestBootstrap_ValidCredentials(t *testing.T) {
	f := newFixture(t)
	access, refresh := f.fake.IssueTokens("user@test.com")
	require.NoError(t, f.store.Set(context.Background(), session.Credentials{AccessToken: access, RefreshToken: refresh}))

	s := f.mgr.Bootstrap(context.Background())
	assert.True(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	require.NotNil(t, s.User)
	assert.Equal(t, "user@test.com", s.User.Username)
	assert.False(t, s.ExpiresAt.IsZero())

	reqs := f.fake.RequestsTo("/api/users/me/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+access, reqs[0].Authorization)
}

func TestBootstrap_RejectedTokenLogsOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(context.Background(), session.Credentials{AccessToken: "garbage", RefreshToken: "garbage"}))

	s := f.mgr.Bootstrap(context.Background())
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	assert.Nil(t, s.User)

	_, err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoCredentials)
	assert.Contains(t, f.routes.all(), service.RouteLogin)
}

func TestBootstrap_RefreshesExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	access, refresh := f.fake.IssueTokens("user@test.com")
	require.NoError(t, f.store.Set(context.Background(), session.Credentials{AccessToken: access, RefreshToken: refresh}))
	f.fake.ExpireAccessTokens()

	s := f.mgr.Bootstrap(context.Background())
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, 1, f.fake.Hits("/api/token/refresh/"))

	stored, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, access, stored.AccessToken)
}

func TestBootstrap_RunsOnce(t *testing.T) {
	f := newFixture(t)
	access, refresh := f.fake.IssueTokens("user@test.com")
	require.NoError(t, f.store.Set(context.Background(), session.Credentials{AccessToken: access, RefreshToken: refresh}))

	f.mgr.Bootstrap(context.Background())
	f.mgr.Bootstrap(context.Background())
	assert.Equal(t, 1, f.fake.Hits("/api/users/me/"))
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.mgr.Bootstrap(context.Background())

	require.NoError(t, f.mgr.Login(context.Background(), "user@test.com", "secret"))

	s := f.mgr.Session()
	assert.True(t, s.IsAuthenticated)
	require.NotNil(t, s.User)
	assert.Equal(t, "Test", s.User.FirstName)
	assert.Equal(t, []service.Route{service.RouteDashboard}, f.routes.all())

	creds, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, creds.AccessToken)
	assert.NotEmpty(t, creds.RefreshToken)

	reqs := f.fake.RequestsTo("/api/users/me/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+creds.AccessToken, reqs[0].Authorization)
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	f.mgr.Bootstrap(context.Background())

	err := f.mgr.Login(context.Background(), "user@test.com", "nope")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.False(t, f.mgr.Session().IsAuthenticated)
	assert.Empty(t, f.routes.all())
	assert.Equal(t, 0, f.fake.Hits("/api/token/refresh/"))
	_, err = f.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoCredentials)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.mgr.Bootstrap(context.Background())
	require.NoError(t, f.mgr.Login(context.Background(), "user@test.com", "secret"))

	require.NoError(t, f.mgr.Logout(context.Background()))
	require.NoError(t, f.mgr.Logout(context.Background()))

	s := f.mgr.Session()
	assert.False(t, s.IsAuthenticated)
	assert.Nil(t, s.User)
	_, err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoCredentials)

	// Bearer is gone: the next protected call goes out without Authorization.
	_, err = f.client.Dashboard(context.Background())
	require.Error(t, err)
	reqs := f.fake.RequestsTo("/api/tasks/dashboard/")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Authorization)

	assert.Equal(t, []service.Route{service.RouteDashboard, service.RouteLogin, service.RouteLogin, service.RouteLogin},
		f.routes.all())
}

func TestSessionExpiry_LogsOutThroughManager(t *testing.T) {
	f := newFixture(t)
	f.mgr.Bootstrap(context.Background())
	require.NoError(t, f.mgr.Login(context.Background(), "user@test.com", "secret"))
	f.fake.ExpireAccessTokens()
	f.fake.RevokeRefreshTokens()

	_, err := f.client.ListTasks(context.Background(), service.Filter{})
	require.Error(t, err)

	assert.False(t, f.mgr.Session().IsAuthenticated)
	ok, err := f.mgr.HasCredentials(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)

	err := f.mgr.Register(context.Background(), service.Registration{
		Username: "bob",
		Email:    "bob@test.com",
		Password: "long-enough-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, []service.Route{service.RouteLoginRegistered}, f.routes.all())

	require.NoError(t, f.mgr.Login(context.Background(), "bob", "long-enough-pass"))
}

func TestRegister_ValidationError(t *testing.T) {
	f := newFixture(t)

	err := f.mgr.Register(context.Background(), service.Registration{
		Username: "user@test.com",
		Password: "short",
	})
	require.Error(t, err)

	var verr *api.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t,
		"A user with that username already exists. / This password is too short. It must contain at least 8 characters. / This password is too common.",
		err.Error())
	assert.Empty(t, f.routes.all())
}

func TestHasCredentials(t *testing.T) {
	f := newFixture(t)
	ok, err := f.mgr.HasCredentials(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.store.Set(context.Background(), session.Credentials{AccessToken: "x"}))
	ok, err = f.mgr.HasCredentials(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
