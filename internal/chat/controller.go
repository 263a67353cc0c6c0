// Package chat keeps the displayed transcript in step with the backend's
// session snapshots and the user's optimistic sends.
//
// Controller is not safe for concurrent use. Every method is meant to be
// called from the UI event loop; network work is returned as tea.Cmd
// continuations whose results come back as messages.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"LaurelinChat/internal/api"
	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/backend"
	"LaurelinChat/internal/session"
)

// DefaultTimeout bounds a single backend call started by the controller
const DefaultTimeout = 2 * time.Minute

var (
	// ErrEmptyMessage is returned for blank submissions
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoSession is returned when there is no session to send to
	ErrNoSession = errors.New("no active chat session")
)

// Display text for validation failures
const (
	emptyMessageText = "Please enter a message."
	noSessionText    = "No active chat session. Use /new to start one."
)

// Backend is the part of the API client the controller drives
type Backend interface {
	ListSessions(ctx context.Context) ([]*session.Session, error)
	CreateSession(ctx context.Context, title string) (*session.Session, error)
	LoadSession(ctx context.Context, sessionID string) (*session.Session, error)
	SendMessage(ctx context.Context, sessionID, message string) (*backend.ChatResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SendResultMsg is the outcome of a send started by Submit
type SendResultMsg struct {
	ID        string // correlation id of the optimistic entry
	SessionID string
	Response  *backend.ChatResponse
	Err       error
}

// CreateResultMsg is the outcome of a session creation
type CreateResultMsg struct {
	Session *session.Session
	Err     error
}

// SwitchResultMsg is the outcome of SwitchSession
type SwitchResultMsg struct {
	Session *session.Session
	Err     error
}

// DeleteResultMsg is the outcome of DeleteSession
type DeleteResultMsg struct {
	SessionID string
	Err       error
}

// SessionsMsg carries the result of ListSessions
type SessionsMsg struct {
	Sessions []*session.Session
	Err      error
}

// Controller owns the transcript and the current session
type Controller struct {
	backend Backend
	logger  *slog.Logger
	timeout time.Duration
	newID   func() string

	transcript Transcript
	current    *session.Session
	sessions   []*session.Session
	pending    map[string]struct{}
	creating   bool
	err        string
}

// NewController creates a controller with an empty transcript
func NewController(b Backend, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		backend: b,
		logger:  logger,
		timeout: DefaultTimeout,
		newID:   uuid.NewString,
		pending: make(map[string]struct{}),
	}
}

// SetTimeout changes the per-call timeout
func (c *Controller) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Entries returns the transcript entries
func (c *Controller) Entries() []Entry {
	return c.transcript.Entries()
}

// Session returns the current session, or nil
func (c *Controller) Session() *session.Session {
	return c.current
}

// Sessions returns the last listed sessions
func (c *Controller) Sessions() []*session.Session {
	return c.sessions
}

// Err returns the error text to display, or ""
func (c *Controller) Err() string {
	return c.err
}

// SetErr replaces the error text
func (c *Controller) SetErr(text string) {
	c.err = text
}

// Pending returns how many sends are in flight
func (c *Controller) Pending() int {
	return len(c.pending)
}

// Creating reports whether a session creation is in flight
func (c *Controller) Creating() bool {
	return c.creating
}

// OnAuthState reacts to the gateway's state. Becoming authenticated without a
// session starts one; signing out forgets everything.
func (c *Controller) OnAuthState(state auth.State) tea.Cmd {
	switch state {
	case auth.Authenticated:
		if c.current == nil && !c.creating {
			return c.NewSession("")
		}
	case auth.Unauthenticated:
		c.reset()
	}
	return nil
}

// OnSnapshot rebuilds the transcript from a published session. A nil
// snapshot forgets the current session.
func (c *Controller) OnSnapshot(s *session.Session) {
	if s == nil {
		c.current = nil
		c.transcript.Clear()
		return
	}
	c.current = s
	c.transcript.Replace(FromMessages(s.Messages))
}

// Submit appends text as an optimistic entry and returns the command that
// sends it
func (c *Controller) Submit(text string) (tea.Cmd, error) {
	if strings.TrimSpace(text) == "" {
		c.err = emptyMessageText
		return nil, ErrEmptyMessage
	}
	if c.current == nil {
		c.err = noSessionText
		return nil, ErrNoSession
	}

	c.err = ""
	id := c.newID()
	sessionID := c.current.ID
	c.transcript.Append(Entry{ID: id, TS: Unsent, Sent: true, Msg: text})
	c.pending[id] = struct{}{}

	b, timeout := c.backend, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := b.SendMessage(ctx, sessionID, text)
		return SendResultMsg{ID: id, SessionID: sessionID, Response: resp, Err: err}
	}, nil
}

// OnSendResult settles a send. Success needs nothing more since the
// published snapshot replaces the transcript; failure removes exactly the
// entry that send added.
func (c *Controller) OnSendResult(msg SendResultMsg) {
	delete(c.pending, msg.ID)
	if msg.Err == nil {
		return
	}
	c.transcript.RemoveByID(msg.ID)
	c.err = ErrorText(msg.Err)
	c.logger.Warn("send failed", "session_id", msg.SessionID, "correlation_id", msg.ID, "error", msg.Err)
}

// NewSession returns the command that creates a session
func (c *Controller) NewSession(title string) tea.Cmd {
	c.creating = true
	c.err = ""

	b, timeout := c.backend, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s, err := b.CreateSession(ctx, title)
		return CreateResultMsg{Session: s, Err: err}
	}
}

// OnCreateResult settles a creation. A failure can be retried with NewSession.
func (c *Controller) OnCreateResult(msg CreateResultMsg) {
	c.creating = false
	if msg.Err != nil {
		c.err = ErrorText(msg.Err)
		c.logger.Warn("failed to create session", "error", msg.Err)
		return
	}
	if c.current == nil || c.current.ID != msg.Session.ID {
		c.OnSnapshot(msg.Session)
	}
}

// ListSessions returns the command that lists the user's sessions
func (c *Controller) ListSessions() tea.Cmd {
	c.err = ""

	b, timeout := c.backend, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		list, err := b.ListSessions(ctx)
		return SessionsMsg{Sessions: list, Err: err}
	}
}

// OnSessions stores a session listing
func (c *Controller) OnSessions(msg SessionsMsg) {
	if msg.Err != nil {
		c.err = ErrorText(msg.Err)
		return
	}
	c.sessions = msg.Sessions
}

// ResolveSession turns a 1-based index into the last listing, or a session
// id, into a session id
func (c *Controller) ResolveSession(ref string) string {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(c.sessions) {
		return c.sessions[n-1].ID
	}
	return ref
}

// SwitchSession returns the command that loads another session. The
// transcript follows once the session is published.
func (c *Controller) SwitchSession(sessionID string) tea.Cmd {
	c.err = ""

	b, timeout := c.backend, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s, err := b.LoadSession(ctx, sessionID)
		return SwitchResultMsg{Session: s, Err: err}
	}
}

// OnSwitchResult settles a switch
func (c *Controller) OnSwitchResult(msg SwitchResultMsg) {
	if msg.Err != nil {
		c.err = ErrorText(msg.Err)
		return
	}
	if c.current == nil || c.current.ID != msg.Session.ID {
		c.OnSnapshot(msg.Session)
	}
}

// DeleteSession returns the command that deletes a session
func (c *Controller) DeleteSession(sessionID string) tea.Cmd {
	c.err = ""

	b, timeout := c.backend, c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return DeleteResultMsg{SessionID: sessionID, Err: b.DeleteSession(ctx, sessionID)}
	}
}

// OnDeleteResult settles a deletion, forgetting the current session when it
// was the one deleted
func (c *Controller) OnDeleteResult(msg DeleteResultMsg) {
	if msg.Err != nil {
		c.err = ErrorText(msg.Err)
		return
	}
	for i, s := range c.sessions {
		if s.ID == msg.SessionID {
			c.sessions = append(c.sessions[:i:i], c.sessions[i+1:]...)
			break
		}
	}
	if c.current != nil && c.current.ID == msg.SessionID {
		c.current = nil
		c.transcript.Clear()
	}
}

func (c *Controller) reset() {
	c.current = nil
	c.sessions = nil
	c.transcript.Clear()
	c.pending = make(map[string]struct{})
	c.creating = false
	c.err = ""
}

// ErrorText is the user-facing text for err
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := api.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
