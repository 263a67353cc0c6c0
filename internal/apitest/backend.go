// Package apitest runs an in-memory chat backend for tests.
//
// Backend speaks the same JSON dialect as the real service under /api, keeps
// sessions in memory and answers every message with an echo. Tests can queue
// one-shot overrides for a route to simulate failures.
package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"LaurelinChat/internal/backend"
	"LaurelinChat/internal/session"
)

// ReplyModel is reported as model_used for every echoed reply
const ReplyModel = "fake-model"

// wireTime is the zone-less layout the backend uses for timestamps
const wireTime = "2006-01-02T15:04:05.000000"

// Recorded is one request seen by the backend
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	Body          []byte
}

// Override replaces the next response of a route
type Override struct {
	Status int
	Body   any // encoded as JSON, except string and []byte which are written as-is
}

type rejection struct {
	code    string
	message string
}

type ctxKey struct{}

// Backend is a fake chat backend served over httptest
type Backend struct {
	server *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*session.User // provider token -> user
	rejected  map[string]rejection     // provider token -> 403 body
	tokens    map[string]*session.User // bearer token -> user
	sessions  map[string]*session.Session
	order     []string
	overrides map[string][]Override
	requests  []Recorded
	events    []backend.TrackEventRequest
	nextID    int

	// Variant is returned by every experiment assignment
	Variant string
}

// New starts a backend that is shut down when the test ends
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		accounts:  make(map[string]*session.User),
		rejected:  make(map[string]rejection),
		tokens:    make(map[string]*session.User),
		sessions:  make(map[string]*session.Session),
		overrides: make(map[string][]Override),
		Variant:   "control",
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API base URL to hand to api.New
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

// Close stops the server early, e.g. to simulate an unreachable backend
func (b *Backend) Close() {
	b.server.Close()
}

// AddAccount lets providerToken log in as user and returns the bearer token
// the backend will issue for it
func (b *Backend) AddAccount(providerToken string, user session.User) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	u := user
	b.accounts[providerToken] = &u
	bearer := "token-" + u.UserID
	b.tokens[bearer] = &u
	return bearer
}

// Reject makes logins with providerToken fail with HTTP 403. Empty code or
// message are left out of the body.
func (b *Backend) Reject(providerToken, code, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejected[providerToken] = rejection{code: code, message: message}
}

// RevokeToken makes the bearer token invalid
func (b *Backend) RevokeToken(bearer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, bearer)
}

// AddSession stores a session for userID and returns a copy of it
func (b *Backend) AddSession(userID, title string, messages ...session.Message) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.newSessionLocked(userID, title)
	s.Messages = append(s.Messages, messages...)
	return cloneSession(s)
}

// Session returns a copy of a stored session
func (b *Backend) Session(id string) (*session.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[id]
	if !ok {
		return nil, false
	}
	return cloneSession(s), true
}

// Fail queues a one-shot override for the route, e.g.
// Fail("POST /chat/sessions/{id}/messages", Override{Status: 500})
func (b *Backend) Fail(route string, o Override) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[route] = append(b.overrides[route], o)
}

// Requests returns every request received so far
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.requests...)
}

// RequestCount counts received requests whose "METHOD path" starts with prefix
func (b *Backend) RequestCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, r := range b.requests {
		if strings.HasPrefix(r.Method+" "+r.Path, prefix) {
			n++
		}
	}
	return n
}

// Events returns the tracked experiment events
func (b *Backend) Events() []backend.TrackEventRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.TrackEventRequest(nil), b.events...)
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Route("/api", func(r chi.Router) {
		b.handle(r, http.MethodPost, "/auth/login", b.login)

		r.Group(func(r chi.Router) {
			r.Use(b.bearer)

			b.handle(r, http.MethodGet, "/auth/verify", b.verify)

			b.handle(r, http.MethodGet, "/chat/sessions", b.listSessions)
			b.handle(r, http.MethodPost, "/chat/sessions", b.createSession)
			b.handle(r, http.MethodGet, "/chat/sessions/{id}", b.getSession)
			b.handle(r, http.MethodDelete, "/chat/sessions/{id}", b.deleteSession)
			b.handle(r, http.MethodPost, "/chat/sessions/{id}/messages", b.sendMessage)

			b.handle(r, http.MethodGet, "/ab-testing/experiments", b.listExperiments)
			b.handle(r, http.MethodPost, "/ab-testing/experiments/{name}/assign", b.assign)
			b.handle(r, http.MethodPost, "/ab-testing/experiments/{name}/track", b.track)
			b.handle(r, http.MethodGet, "/ab-testing/experiments/{name}/results", b.results)

			b.handle(r, http.MethodGet, "/models/available", b.availableModels)
			b.handle(r, http.MethodGet, "/models/health", b.modelHealth)
			b.handle(r, http.MethodPost, "/models/test", b.testModel)
		})
	})
	return r
}

// handle registers h behind the override check for "METHOD pattern"
func (b *Backend) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	route := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if o, ok := b.takeOverride(route); ok {
			writeOverride(w, o)
			return
		}
		h(w, req)
	}))
}

func (b *Backend) takeOverride(route string) (Override, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue := b.overrides[route]
	if len(queue) == 0 {
		return Override{}, false
	}
	b.overrides[route] = queue[1:]
	return queue[0], true
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.requests = append(b.requests, Recorded{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, "/api"),
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		user, ok := b.tokens[token]
		b.mu.Unlock()

		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "detail": "Invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func currentUser(r *http.Request) *session.User {
	u, _ := r.Context().Value(ctxKey{}).(*session.User)
	return u
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "token is required"})
		return
	}

	b.mu.Lock()
	rej, isRejected := b.rejected[req.Token]
	user, known := b.accounts[req.Token]
	b.mu.Unlock()

	switch {
	case isRejected:
		body := map[string]any{"success": false}
		if rej.code != "" {
			body["error"] = rej.code
		}
		if rej.message != "" {
			body["message"] = rej.message
		}
		writeJSON(w, http.StatusForbidden, body)
	case !known:
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid Google token"})
	default:
		writeJSON(w, http.StatusOK, backend.AuthResponse{Success: true, User: user, Token: "token-" + user.UserID})
	}
}

func (b *Backend) verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.Envelope[*session.User]{Success: true, Data: currentUser(r)})
}

func (b *Backend) listSessions(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	b.mu.Lock()
	out := make([]*session.Session, 0, len(b.order))
	for _, id := range b.order {
		if s := b.sessions[id]; s.UserID == user.UserID {
			out = append(out, cloneSession(s))
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.Envelope[[]*session.Session]{Success: true, Data: out})
}

func (b *Backend) createSession(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid body"})
		return
	}

	b.mu.Lock()
	s := cloneSession(b.newSessionLocked(currentUser(r).UserID, req.Title))
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.Envelope[*session.Session]{Success: true, Data: s})
}

func (b *Backend) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := b.ownedSession(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, backend.Envelope[*session.Session]{Success: true, Data: s})
}

func (b *Backend) deleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := b.ownedSession(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Session not found"})
		return
	}

	b.mu.Lock()
	delete(b.sessions, s.ID)
	for i, id := range b.order {
		if id == s.ID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.StatusResponse{Success: true, Message: "Session deleted"})
}

func (b *Backend) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req backend.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid body"})
		return
	}
	if _, ok := b.ownedSession(r); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Session not found"})
		return
	}

	reply := "echo: " + req.Message
	now := wireNow()

	b.mu.Lock()
	s, ok := b.sessions[chi.URLParam(r, "id")]
	if !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Session not found"})
		return
	}
	s.Messages = append(s.Messages,
		session.Message{Role: session.RoleUser, Content: req.Message, Timestamp: now},
		session.Message{Role: session.RoleAssistant, Content: reply, Timestamp: now, ModelUsed: ReplyModel},
	)
	s.UpdatedAt = now
	out := cloneSession(s)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.ChatResponse{Success: true, Response: reply, ModelUsed: ReplyModel, Session: out})
}

func (b *Backend) listExperiments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": []map[string]any{
			{"name": "model_comparison", "description": "Compare reply quality across models", "variants": []string{"control", "treatment"}},
		},
	})
}

func (b *Backend) assign(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	variant := b.Variant
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, backend.AssignResponse{Success: true, Variant: variant})
}

func (b *Backend) track(w http.ResponseWriter, r *http.Request) {
	var req backend.TrackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid body"})
		return
	}

	b.mu.Lock()
	b.events = append(b.events, req)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.StatusResponse{Success: true})
}

func (b *Backend) results(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	b.mu.Lock()
	n := len(b.events)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.ResultsResponse{Success: true, Results: map[string]any{
		"experiment":   name,
		"total_events": n,
	}})
}

func (b *Backend) availableModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.Envelope[map[string]any]{Success: true, Data: map[string]any{
		"openai": []string{"gpt-4o-mini"},
		"ollama": []string{"llama3"},
	}})
}

func (b *Backend) modelHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.Envelope[map[string]any]{Success: true, Data: map[string]any{
		"openai": "healthy",
		"ollama": "unavailable",
	}})
}

func (b *Backend) testModel(w http.ResponseWriter, r *http.Request) {
	var req backend.TestModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid body"})
		return
	}
	writeJSON(w, http.StatusOK, backend.Envelope[map[string]any]{Success: true, Data: map[string]any{
		"provider": req.ModelProvider,
		"response": "echo: " + req.Message,
	}})
}

// ownedSession returns a copy of the {id} session when it belongs to the caller
func (b *Backend) ownedSession(r *http.Request) (*session.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[chi.URLParam(r, "id")]
	if !ok || s.UserID != currentUser(r).UserID {
		return nil, false
	}
	return cloneSession(s), true
}

func (b *Backend) newSessionLocked(userID, title string) *session.Session {
	b.nextID++
	now := wireNow()
	s := &session.Session{
		ID:        fmt.Sprintf("session-%d", b.nextID),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []session.Message{},
		Metadata:  map[string]any{},
	}
	b.sessions[s.ID] = s
	b.order = append(b.order, s.ID)
	return s
}

func cloneSession(s *session.Session) *session.Session {
	c := *s
	c.Messages = append([]session.Message(nil), s.Messages...)
	return &c
}

func wireNow() session.Timestamp {
	now := time.Now().UTC()
	return session.Timestamp{Time: now, Raw: now.Format(wireTime)}
}

func writeOverride(w http.ResponseWriter, o Override) {
	status := o.Status
	if status == 0 {
		status = http.StatusOK
	}
	switch body := o.Body.(type) {
	case nil:
		w.WriteHeader(status)
	case string:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	case []byte:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
	default:
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
