package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"LaurelinChat/internal/backend"
	"LaurelinChat/internal/session"
)

// ListSessions returns the signed-in user's chat sessions
func (c *Client) ListSessions(ctx context.Context) ([]*session.Session, error) {
	const op = "list_sessions"

	var resp backend.Envelope[[]*session.Session]
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/chat/sessions"}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, resp.Message)
	}
	return resp.Data, nil
}

// CreateSession starts a new session and publishes it as the current one.
// An empty title is replaced with "Chat <local time>".
func (c *Client) CreateSession(ctx context.Context, title string) (*session.Session, error) {
	const op = "create_session"

	if strings.TrimSpace(title) == "" {
		title = "Chat " + c.now().Format("1/2/2006, 3:04:05 PM")
	}

	var resp backend.Envelope[*session.Session]
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/chat/sessions",
		body:   backend.CreateSessionRequest{Title: title},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, resp.Message)
	}
	if resp.Data == nil {
		return nil, &Error{Op: op, Kind: KindDecode, Status: http.StatusOK, Err: errors.New("response has no session")}
	}

	c.sessions.Publish(resp.Data)
	c.logger.Info("created session", "session_id", resp.Data.ID, "title", resp.Data.Title)
	return resp.Data, nil
}

// GetSession fetches a session without changing the current one
func (c *Client) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	const op = "get_session"

	var resp backend.Envelope[*session.Session]
	if err := c.do(ctx, request{op: op, method: http.MethodGet, path: sessionPath(sessionID)}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, unsuccessful(op, resp.Error, resp.Message)
	}
	if resp.Data == nil {
		return nil, &Error{Op: op, Kind: KindDecode, Status: http.StatusOK, Err: errors.New("response has no session")}
	}
	return resp.Data, nil
}

// LoadSession fetches a session and publishes it as the current one
func (c *Client) LoadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.sessions.Publish(s)
	c.logger.Info("loaded session", "session_id", s.ID, "message_count", len(s.Messages))
	return s, nil
}

// SendMessage appends a user message to the session and waits for the reply.
// On success the session returned by the backend (which ends with the user
// message and the reply) is published. On failure the session channel is left
// alone; undoing any optimistic UI state is the caller's job.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (*backend.ChatResponse, error) {
	const op = "send_message"

	var resp backend.ChatResponse
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   sessionPath(sessionID) + "/messages",
		body:   backend.SendMessageRequest{Message: message},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		message := resp.Error
		if message == "" {
			message = "Error sending message"
		}
		return nil, unsuccessful(op, resp.Error, message)
	}
	if resp.Session == nil {
		return nil, &Error{Op: op, Kind: KindDecode, Status: http.StatusOK, Err: errors.New("response has no session")}
	}

	c.sessions.Publish(resp.Session)
	c.logger.Info("message sent", "session_id", sessionID, "model_used", resp.ModelUsed, "message_count", len(resp.Session.Messages))
	return &resp, nil
}

// DeleteSession removes a session on the backend. The session channel is
// not touched.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	const op = "delete_session"

	var resp backend.StatusResponse
	if err := c.do(ctx, request{op: op, method: http.MethodDelete, path: sessionPath(sessionID)}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return unsuccessful(op, resp.Error, resp.Message)
	}
	c.logger.Info("deleted session", "session_id", sessionID)
	return nil
}

func sessionPath(sessionID string) string {
	return fmt.Sprintf("/chat/sessions/%s", url.PathEscape(sessionID))
}
