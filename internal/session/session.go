package session

import (
	"encoding/json"
	"strings"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// User represents an account on the chat backend
type User struct {
	UserID      string         `json:"user_id"`
	Email       string         `json:"email"`
	Name        string         `json:"name,omitempty"`
	CreatedAt   Timestamp      `json:"created_at"`
	LastLogin   *Timestamp     `json:"last_login,omitempty"`
	Preferences map[string]any `json:"preferences"`
}

// DisplayName returns the user's name, falling back to the email address
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Email
}

// Message represents a single chat message
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp Timestamp      `json:"timestamp"`
	ModelUsed string         `json:"model_used,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Session represents a chat session owned by the backend
type Session struct {
	ID        string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title,omitempty"`
	CreatedAt Timestamp      `json:"created_at"`
	UpdatedAt Timestamp      `json:"updated_at"`
	Messages  []Message      `json:"messages"`
	Metadata  map[string]any `json:"metadata"`
}

// Credential is a bearer token together with the user it was issued to
type Credential struct {
	Token string
	User  *User
}

// Valid reports whether the credential carries both a token and a user
func (c Credential) Valid() bool {
	return c.Token != "" && c.User != nil
}

// timestampLayouts are tried in order when decoding wire timestamps.
// The backend emits zone-less ISO strings for some records.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a wire timestamp. Values that do not parse keep their raw text
// and a zero Time.
type Timestamp struct {
	time.Time
	Raw string
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Raw: t.Format(time.RFC3339Nano)}
}

// UnmarshalJSON accepts strings in any of the known layouts; anything else
// decodes to the zero timestamp instead of failing the whole payload.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*ts = Timestamp{}
		return nil
	}
	*ts = Timestamp{Raw: raw}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			ts.Time = t
			break
		}
	}
	return nil
}

// MarshalJSON writes the raw text when present so values round-trip unchanged
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Raw != "" {
		return json.Marshal(ts.Raw)
	}
	if ts.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(ts.Format(time.RFC3339Nano))
}

// UnixMilli returns the timestamp in milliseconds, or -1 when unset
func (ts Timestamp) UnixMilli() int64 {
	if ts.IsZero() {
		return -1
	}
	return ts.Time.UnixMilli()
}
