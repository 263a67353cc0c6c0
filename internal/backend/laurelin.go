package backend

import (
	"encoding/json"

	"LaurelinChat/internal/session"
)

// LoginRequest represents the request body for POST /auth/login
type LoginRequest struct {
	Token string `json:"token"`
}

// AuthResponse represents the response from POST /auth/login
type AuthResponse struct {
	Success bool          `json:"success"`
	User    *session.User `json:"user,omitempty"`
	Token   string        `json:"token,omitempty"`
	Error   string        `json:"error,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Envelope is the generic {success, data, error} wrapper most endpoints use
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// CreateSessionRequest represents the request body for POST /chat/sessions
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// SendMessageRequest represents the request body for POST /chat/sessions/{id}/messages
type SendMessageRequest struct {
	Message string `json:"message"`
}

// ChatResponse represents the response from the send-message endpoint
type ChatResponse struct {
	Success   bool             `json:"success"`
	Response  string           `json:"response"`
	ModelUsed string           `json:"model_used"`
	Session   *session.Session `json:"session"`
	Error     string           `json:"error,omitempty"`
}

// StatusResponse is returned by endpoints that only report success
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Experiment describes an A/B experiment. Only the name is interpreted;
// everything else is kept in Extra.
type Experiment struct {
	Name  string         `json:"name"`
	Extra map[string]any `json:"-"`
}

// UnmarshalJSON keeps every field of the experiment record
func (e *Experiment) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	e.Extra = fields
	e.Name, _ = fields["name"].(string)
	return nil
}

// MarshalJSON writes the record back with its original fields
func (e Experiment) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		fields[k] = v
	}
	fields["name"] = e.Name
	return json.Marshal(fields)
}

// AssignResponse represents the response from the experiment assign endpoint
type AssignResponse struct {
	Success bool   `json:"success"`
	Variant string `json:"variant"`
	Error   string `json:"error,omitempty"`
}

// TrackEventRequest represents the request body for the experiment track endpoint
type TrackEventRequest struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
}

// ResultsResponse represents the response from the experiment results endpoint
type ResultsResponse struct {
	Success bool           `json:"success"`
	Results map[string]any `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// TestModelRequest represents the request body for POST /models/test
type TestModelRequest struct {
	Message       string `json:"message"`
	ModelProvider string `json:"model_provider"`
}
