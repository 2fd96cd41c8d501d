// Package api is the HTTP client for the task REST API.
//
// Every call carries the process-wide bearer token. A 401 triggers exactly
// one token refresh followed by one replay of the original request;
// concurrent refreshes for the same refresh token share a single call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/googleapi"

	"tasker/internal/session"
)

// DefaultTimeout bounds each HTTP exchange.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-call id; a replay reuses the id of the
// request it replays.
const RequestIDHeader = "X-Request-ID"

// Client talks to the REST API.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	bearer *oauth2.Token
	onExp  func(ctx context.Context) error

	refreshes singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimeout sets the HTTP timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a Client for baseURL, e.g. "http://localhost:8000/api".
func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url: %s", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// OnSessionExpired registers the function run when a 401 cannot be
// recovered by refreshing.
func (c *Client) OnSessionExpired(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExp = fn
}

// SetBearer installs the token attached to all subsequent requests.
func (c *Client) SetBearer(creds session.Credentials) {
	tok := creds.Token()
	c.mu.Lock()
	c.bearer = tok
	c.mu.Unlock()

	if !tok.Expiry.IsZero() {
		c.log.Debug("bearer installed", slog.Time("expires", tok.Expiry))
	}
}

// ClearBearer removes the default Authorization header.
func (c *Client) ClearBearer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = nil
}

func (c *Client) currentBearer() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

func (c *Client) expire(ctx context.Context) {
	c.mu.RLock()
	fn := c.onExp
	c.mu.RUnlock()

	if fn == nil {
		c.ClearBearer()
		return
	}
	if err := fn(ctx); err != nil {
		c.log.Warn("logout after failed refresh", slog.String("error", err.Error()))
	}
}

// call describes one logical request.
type call struct {
	method string
	path   string
	query  url.Values
	body   []byte
	id     string
}

// do runs a request through the refresh interceptor and decodes the
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	cl := call{method: method, path: path, query: query, id: uuid.NewString()}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return err
		}
		cl.body = body
	}

	sent := c.currentBearer()
	err := c.send(ctx, cl, sent, out)
	if !IsUnauthorized(err) {
		return err
	}

	// The request is now marked; whatever happens next it is not retried again.
	tok, rerr := c.renew(ctx, sent, err)
	if rerr != nil {
		return rerr
	}
	c.log.Debug("replaying request", slog.String("id", cl.id), slog.String("path", path))
	return c.send(ctx, cl, tok, out)
}

// renew produces a bearer for the replay of a request that failed with
// sent. origErr is returned when there is nothing to refresh with.
func (c *Client) renew(ctx context.Context, sent *oauth2.Token, origErr error) (*oauth2.Token, error) {
	if cur := c.currentBearer(); cur != nil && (sent == nil || cur.AccessToken != sent.AccessToken) {
		// Someone else refreshed while this request was in flight.
		return cur, nil
	}

	creds, err := c.store.Load(ctx)
	if err != nil && !errors.Is(err, session.ErrNoCredentials) {
		c.log.Warn("failed to load credentials", slog.String("error", err.Error()))
	}
	if creds.RefreshToken == "" {
		c.log.Debug("401 without refresh token, logging out")
		c.expire(ctx)
		return nil, origErr
	}

	// The refresh is shared, so it must not die with whichever caller
	// started it; the HTTP client timeout still bounds it.
	ch := c.refreshes.DoChan(creds.RefreshToken, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), creds)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		c.log.Debug("token refresh failed", slog.String("error", res.Err.Error()))
		if ctx.Err() != nil || errors.Is(res.Err, context.Canceled) {
			// Cancelled, not rejected: the stored tokens stay.
			return nil, res.Err
		}
		c.expire(ctx)
		return nil, res.Err
	}
	if res.Shared {
		c.log.Debug("joined in-flight token refresh")
	}
	return res.Val.(*oauth2.Token), nil
}

// refresh exchanges the refresh token, persists the result and installs
// the new bearer.
func (c *Client) refresh(ctx context.Context, old session.Credentials) (*oauth2.Token, error) {
	pair, err := c.RefreshToken(ctx, old.RefreshToken)
	if err != nil {
		return nil, err
	}

	next := session.Credentials{AccessToken: pair.Access, RefreshToken: pair.Refresh}
	if next.RefreshToken == "" {
		next.RefreshToken = old.RefreshToken
	}
	if err := c.store.Set(ctx, next); err != nil {
		return nil, err
	}
	c.SetBearer(next)
	return c.currentBearer(), nil
}

// send performs a single HTTP exchange. Non-2xx statuses become
// *googleapi.Error.
func (c *Client) send(ctx context.Context, cl call, tok *oauth2.Token, out any) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", slog.String("id", cl.id), slog.String("method", cl.method),
			slog.String("path", cl.path), slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("request", slog.String("id", cl.id), slog.String("method", cl.method),
		slog.String("path", cl.path), slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)))

	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", cl.path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + cl.path)
	if err != nil {
		return nil, err
	}
	if cl.query != nil {
		u.RawQuery = cl.query.Encode()
		u.ForceQuery = true
	}

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, cl.id)
	return req, nil
}

// raw runs a request without the interceptor and without the bearer.
// Used for endpoints where a 401 means bad input, not an expired session.
func (c *Client) raw(ctx context.Context, method, path string, in, out any) error {
	cl := call{method: method, path: path, id: uuid.NewString()}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return err
		}
		cl.body = body
	}
	return c.send(ctx, cl, nil, out)
}
