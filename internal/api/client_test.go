package api_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasker/internal/api"
	"tasker/internal/service"
	"tasker/internal/session"
	"tasker/internal/testutil"
)

type harness struct {
	fake    *testutil.FakeAPI
	store   *session.MemoryStore
	client  *api.Client
	expired atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI()
	t.Cleanup(fake.Close)
	fake.AddUser("alice", "correct-horse", service.User{Email: "alice@test.com", FirstName: "Alice", LastName: "Liddell"})

	h := &harness{fake: fake, store: session.NewMemoryStore()}
	client, err := api.New(fake.BaseURL(), h.store)
	require.NoError(t, err)
	client.OnSessionExpired(func(ctx context.Context) error {
		h.expired.Add(1)
		client.ClearBearer()
		return h.store.Clear(ctx)
	})
	h.client = client
	return h
}

// login seeds the store and bearer with a fresh token pair.
func (h *harness) login(t *testing.T) session.Credentials {
	t.Helper()
	access, refresh := h.fake.IssueTokens("alice")
	creds := session.Credentials{AccessToken: access, RefreshToken: refresh}
	require.NoError(t, h.store.Set(context.Background(), creds))
	h.client.SetBearer(creds)
	return creds
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := api.New("localhost:8000", session.NewMemoryStore())
	require.Error(t, err)
}

func TestClient_AttachesBearer(t *testing.T) {
	h := newHarness(t)
	creds := h.login(t)

	_, err := h.client.Me(context.Background())
	require.NoError(t, err)

	reqs := h.fake.RequestsTo("/api/users/me/")
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+creds.AccessToken, reqs[0].Authorization)
	assert.NotEmpty(t, reqs[0].RequestID)
}

func TestClient_NoBearerBeforeLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.Dashboard(context.Background())
	require.True(t, api.IsUnauthorized(err))

	reqs := h.fake.RequestsTo("/api/tasks/dashboard/")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, int32(1), h.expired.Load(), "401 with no refresh token logs out")
}

func TestInterceptor_RefreshesOnceAndReplays(t *testing.T) {
	h := newHarness(t)
	old := h.login(t)
	h.fake.AddTask("alice", "Write report", service.StatusPending)
	h.fake.ExpireAccessTokens()

	stats, err := h.client.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	assert.Equal(t, 1, h.fake.Hits("/api/token/refresh/"))
	reqs := h.fake.RequestsTo("/api/tasks/dashboard/")
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer "+old.AccessToken, reqs[0].Authorization)
	assert.NotEqual(t, reqs[0].Authorization, reqs[1].Authorization)
	assert.Equal(t, reqs[0].RequestID, reqs[1].RequestID, "replay keeps the request id")

	stored, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, old.AccessToken, stored.AccessToken)
	assert.Equal(t, "Bearer "+stored.AccessToken, reqs[1].Authorization)
	assert.Equal(t, old.RefreshToken, stored.RefreshToken, "refresh token kept when not rotated")
	assert.Equal(t, int32(0), h.expired.Load())

	// Later requests use the new token directly.
	_, err = h.client.Quote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, 1, h.fake.Hits("/api/quotes/"))
}

func TestInterceptor_StoresRotatedRefreshToken(t *testing.T) {
	h := newHarness(t)
	h.fake.SetRotateRefresh(true)
	old := h.login(t)
	h.fake.ExpireAccessTokens()

	_, err := h.client.ListTasks(context.Background(), service.Filter{})
	require.NoError(t, err)

	stored, err := h.store.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, old.RefreshToken, stored.RefreshToken)
	assert.NotEmpty(t, stored.RefreshToken)
}

func TestInterceptor_NoSecondRefreshForReplay(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.DenyAlways("/api/tasks/dashboard/")

	_, err := h.client.Dashboard(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.Equal(t, 1, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, 2, h.fake.Hits("/api/tasks/dashboard/"))
	assert.Equal(t, int32(0), h.expired.Load(), "a rejected replay does not log out")
}

func TestInterceptor_MissingRefreshTokenLogsOut(t *testing.T) {
	h := newHarness(t)
	access, _ := h.fake.IssueTokens("alice")
	creds := session.Credentials{AccessToken: access}
	require.NoError(t, h.store.Set(context.Background(), creds))
	h.client.SetBearer(creds)
	h.fake.ExpireAccessTokens()

	_, err := h.client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.Equal(t, 0, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, int32(1), h.expired.Load())
	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoCredentials)
}

func TestInterceptor_RefreshFailureLogsOut(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.ExpireAccessTokens()
	h.fake.RevokeRefreshTokens()

	_, err := h.client.ListTasks(context.Background(), service.Filter{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.Equal(t, 1, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, 1, h.fake.Hits("/api/tasks/"), "no replay after failed refresh")
	assert.Equal(t, int32(1), h.expired.Load())
	_, err = h.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNoCredentials)
}

func TestInterceptor_NonUnauthorizedPropagates(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	err := h.client.DeleteTask(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, 0, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, int32(0), h.expired.Load())
}

func TestInterceptor_NetworkErrorPropagates(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.fake.Close()

	_, err := h.client.Dashboard(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, api.StatusCode(err))
	assert.Equal(t, int32(0), h.expired.Load())

	_, err = h.store.Load(context.Background())
	assert.NoError(t, err, "credentials survive a network failure")
}

func TestInterceptor_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	h := newHarness(t)
	h.fake.SetRefreshDelay(100 * time.Millisecond)
	h.login(t)
	h.fake.ExpireAccessTokens()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.client.ListTasks(context.Background(), service.Filter{})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.fake.Hits("/api/token/refresh/"))
	assert.LessOrEqual(t, h.fake.Hits("/api/tasks/"), 2*n)
}

func TestInterceptor_CancelledCallerDoesNotBreakSharedRefresh(t *testing.T) {
	h := newHarness(t)
	h.fake.SetRefreshDelay(200 * time.Millisecond)
	h.login(t)
	h.fake.ExpireAccessTokens()

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := h.client.ListTasks(ctxA, service.Filter{})
		errA <- err
	}()
	require.Eventually(t, func() bool {
		return h.fake.Hits("/api/token/refresh/") == 1
	}, time.Second, 5*time.Millisecond, "refresh never started")

	errB := make(chan error, 1)
	go func() {
		_, err := h.client.ListTasks(context.Background(), service.Filter{})
		errB <- err
	}()
	cancelA()

	assert.ErrorIs(t, <-errA, context.Canceled)
	assert.NoError(t, <-errB)
	assert.Equal(t, 1, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, int32(0), h.expired.Load())

	creds, err := h.store.Load(context.Background())
	require.NoError(t, err, "credentials survive a cancelled caller")
	assert.NotEmpty(t, creds.RefreshToken)
}

func TestInterceptor_CancelDuringRefreshKeepsCredentials(t *testing.T) {
	h := newHarness(t)
	h.fake.SetRefreshDelay(200 * time.Millisecond)
	h.login(t)
	h.fake.ExpireAccessTokens()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for h.fake.Hits("/api/token/refresh/") == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	_, err := h.client.Dashboard(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), h.expired.Load())

	_, err = h.store.Load(context.Background())
	assert.NoError(t, err)
}

func TestObtainToken_BadCredentialsNotIntercepted(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.ObtainToken(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, 0, h.fake.Hits("/api/token/refresh/"))
	assert.Equal(t, int32(0), h.expired.Load())

	pair, err := h.client.ObtainToken(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
}

func TestCreateAccount_ValidationError(t *testing.T) {
	h := newHarness(t)

	err := h.client.CreateAccount(context.Background(), service.Registration{
		Username: "alice",
		Email:    "alice@test.com",
		Password: "short",
	})
	require.Error(t, err)

	verr := api.ParseValidationError(err)
	require.NotNil(t, verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "username", verr.Fields[0].Field)
	assert.Equal(t, "password", verr.Fields[1].Field)
	assert.Equal(t,
		"A user with that username already exists. / This password is too short. It must contain at least 8 characters. / This password is too common.",
		verr.Error())

	var target *api.ValidationError
	assert.True(t, errors.As(error(verr), &target))
}

func TestParseValidationError_NotAValidationError(t *testing.T) {
	assert.Nil(t, api.ParseValidationError(errors.New("boom")))

	h := newHarness(t)
	h.login(t)
	err := h.client.DeleteTask(context.Background(), 42)
	assert.Nil(t, api.ParseValidationError(err))
}
