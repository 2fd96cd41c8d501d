package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tasker/internal/service"
)

// Request is a request observed by FakeAPI.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	URI           string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	password string
	user     service.User
}

// FakeAPI is an in-memory REST backend served over httptest.
// Access and refresh tokens are HS256 JWTs.
type FakeAPI struct {
	Server *httptest.Server

	mu            sync.Mutex
	accessTTL     time.Duration
	rotateRefresh bool
	refreshDelay  time.Duration

	secret       []byte
	users        map[string]*fakeUser
	access       map[string]string // token -> username
	refresh      map[string]string // token -> username
	tasks        map[int64]service.Task
	nextID       int64
	requests     []Request
	hits         map[string]int
	alwaysDenied map[string]bool
	quote        service.Quote
}

// NewFakeAPI starts a FakeAPI. The server is closed via t.Cleanup by callers
// or by calling Close.
func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{
		accessTTL:    5 * time.Minute,
		secret:       []byte("fake-api-secret"),
		users:        make(map[string]*fakeUser),
		access:       make(map[string]string),
		refresh:      make(map[string]string),
		tasks:        make(map[int64]service.Task),
		nextID:       1,
		hits:         make(map[string]int),
		alwaysDenied: make(map[string]bool),
		quote:        service.Quote{Quote: "Well begun is half done.", Author: "Aristotle"},
	}

	r := mux.NewRouter()
	r.Use(f.record)
	r.HandleFunc("/api/token/", f.handleToken).Methods(http.MethodPost)
	r.HandleFunc("/api/token/refresh/", f.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/users/register/", f.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/users/me/", f.authed(f.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/", f.authed(f.handleListTasks)).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/", f.authed(f.handleCreateTask)).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks/dashboard/", f.authed(f.handleDashboard)).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{id:[0-9]+}/", f.authed(f.handleUpdateTask)).Methods(http.MethodPatch)
	r.HandleFunc("/api/tasks/{id:[0-9]+}/", f.authed(f.handleDeleteTask)).Methods(http.MethodDelete)
	r.HandleFunc("/api/quotes/", f.authed(f.handleQuote)).Methods(http.MethodGet)

	f.Server = httptest.NewServer(r)
	return f
}

// BaseURL is the API root to hand to the client.
func (f *FakeAPI) BaseURL() string {
	return f.Server.URL + "/api"
}

// Close stops the server.
func (f *FakeAPI) Close() {
	f.Server.Close()
}

// SetAccessTTL sets the lifetime of access tokens minted from now on.
func (f *FakeAPI) SetAccessTTL(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessTTL = d
}

// SetRotateRefresh makes the refresh endpoint return a new refresh token
// and invalidate the old one.
func (f *FakeAPI) SetRotateRefresh(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotateRefresh = on
}

// SetRefreshDelay stalls the refresh endpoint, for overlap tests.
func (f *FakeAPI) SetRefreshDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshDelay = d
}

// AddUser registers an account directly.
func (f *FakeAPI) AddUser(username, password string, u service.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Username = username
	f.users[username] = &fakeUser{password: password, user: u}
}

// IssueTokens mints a token pair for username, as a successful login would.
func (f *FakeAPI) IssueTokens(username string) (access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mintAccess(username), f.mintRefresh(username)
}

// ExpireAccessTokens invalidates every access token minted so far.
func (f *FakeAPI) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every refresh token minted so far.
func (f *FakeAPI) RevokeRefreshTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = make(map[string]string)
}

// DenyAlways makes path answer 401 regardless of the token.
func (f *FakeAPI) DenyAlways(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alwaysDenied[path] = true
}

// AddTask stores a task owned by owner and returns it.
func (f *FakeAPI) AddTask(owner, title string, status service.TaskStatus) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	t := service.Task{
		ID:        f.nextID,
		Title:     title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
		Owner:     owner,
	}
	f.tasks[t.ID] = t
	f.nextID++
	return t
}

// Task returns a stored task.
func (f *FakeAPI) Task(id int64) (service.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	return t, ok
}

// Hits returns how many requests reached path (e.g. "/api/token/refresh/").
func (f *FakeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

// Requests returns every request observed, in arrival order.
func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsTo returns the requests observed for path.
func (f *FakeAPI) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range f.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			URI:           r.RequestURI,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// mintAccess and mintRefresh must be called with f.mu held.
func (f *FakeAPI) mintAccess(username string) string {
	tok := f.sign(username, "access", f.accessTTL)
	f.access[tok] = username
	return tok
}

func (f *FakeAPI) mintRefresh(username string) string {
	tok := f.sign(username, "refresh", 24*time.Hour)
	f.refresh[tok] = username
	return tok
}

type fakeClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (f *FakeAPI) sign(username, kind string, ttl time.Duration) string {
	now := time.Now()
	claims := fakeClaims{
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		panic(err)
	}
	return s
}

func (f *FakeAPI) authed(h func(w http.ResponseWriter, r *http.Request, username string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		denied := f.alwaysDenied[r.URL.Path]
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		username, ok := f.access[tok]
		f.mu.Unlock()

		if denied || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
				"code":   "token_not_valid",
			})
			return
		}
		h(w, r, username)
	}
}

func (f *FakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[in.Username]
	if !ok || u.password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "No active account found with the given credentials",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  f.mintAccess(in.Username),
		"refresh": f.mintRefresh(in.Username),
	})
}

func (f *FakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.refreshDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	var in struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	username, ok := f.refresh[in.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	out := map[string]string{"access": f.mintAccess(username)}
	if f.rotateRefresh {
		delete(f.refresh, in.Refresh)
		out["refresh"] = f.mintRefresh(username)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.Registration
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Field order matters to clients joining the messages.
	var problems []string
	if _, exists := f.users[in.Username]; exists {
		problems = append(problems, `"username":["A user with that username already exists."]`)
	}
	if len(in.Password) < 8 {
		problems = append(problems, `"password":["This password is too short. It must contain at least 8 characters.","This password is too common."]`)
	}
	if len(problems) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "{%s}", strings.Join(problems, ","))
		return
	}

	f.users[in.Username] = &fakeUser{
		password: in.Password,
		user: service.User{
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
		},
	}
	w.WriteHeader(http.StatusCreated)
}

func (f *FakeAPI) handleMe(w http.ResponseWriter, r *http.Request, username string) {
	f.mu.Lock()
	u := f.users[username]
	f.mu.Unlock()
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, u.user)
}

func (f *FakeAPI) ownedTasks(username string) []service.Task {
	var out []service.Task
	for _, t := range f.tasks {
		if t.Owner == username {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeAPI) handleListTasks(w http.ResponseWriter, r *http.Request, username string) {
	search := strings.ToLower(r.URL.Query().Get("search"))
	status := r.URL.Query().Get("status")

	f.mu.Lock()
	defer f.mu.Unlock()

	results := []service.Task{}
	for _, t := range f.ownedTasks(username) {
		if status != "" && string(t.Status) != status {
			continue
		}
		if search != "" {
			desc := ""
			if t.Description != nil {
				desc = *t.Description
			}
			if !strings.Contains(strings.ToLower(t.Title), search) && !strings.Contains(strings.ToLower(desc), search) {
				continue
			}
		}
		results = append(results, t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "results": results})
}

func (f *FakeAPI) handleCreateTask(w http.ResponseWriter, r *http.Request, username string) {
	var in struct {
		Title       string             `json:"title"`
		Description *string            `json:"description"`
		Status      service.TaskStatus `json:"status"`
		DueDate     *string            `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"title": {"This field may not be blank."}})
		return
	}
	if in.Status == "" {
		in.Status = service.StatusPending
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	t := service.Task{
		ID:          f.nextID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
		Owner:       username,
	}
	f.tasks[t.ID] = t
	f.nextID++
	writeJSON(w, http.StatusCreated, t)
}

func (f *FakeAPI) lookup(w http.ResponseWriter, r *http.Request, username string) (service.Task, bool) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	t, ok := f.tasks[id]
	if !ok || t.Owner != username {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Task matches the given query."})
		return service.Task{}, false
	}
	return t, true
}

func (f *FakeAPI) handleUpdateTask(w http.ResponseWriter, r *http.Request, username string) {
	var patch map[string]*string
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.lookup(w, r, username)
	if !ok {
		return
	}
	for k, v := range patch {
		switch k {
		case "title":
			if v != nil {
				t.Title = *v
			}
		case "description":
			t.Description = v
		case "status":
			if v != nil {
				t.Status = service.TaskStatus(*v)
			}
		case "due_date":
			t.DueDate = v
		}
	}
	t.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	f.tasks[t.ID] = t
	writeJSON(w, http.StatusOK, t)
}

func (f *FakeAPI) handleDeleteTask(w http.ResponseWriter, r *http.Request, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.lookup(w, r, username)
	if !ok {
		return
	}
	delete(f.tasks, t.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleDashboard(w http.ResponseWriter, r *http.Request, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s service.DashboardStats
	for _, t := range f.ownedTasks(username) {
		s.Total++
		switch t.Status {
		case service.StatusPending:
			s.Pending++
		case service.StatusCompleted:
			s.Completed++
		case service.StatusArchived:
			s.Archived++
		}
	}
	writeJSON(w, http.StatusOK, s)
}

func (f *FakeAPI) handleQuote(w http.ResponseWriter, r *http.Request, username string) {
	f.mu.Lock()
	q := f.quote
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, q)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
