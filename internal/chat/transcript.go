package chat

import (
	"LaurelinChat/internal/session"
)

// Unsent is the timestamp of an entry the backend has not acknowledged yet
const Unsent int64 = -1

// Entry is one line of the displayed transcript
type Entry struct {
	ID   string // correlation id of an optimistic entry, empty otherwise
	TS   int64  // unix milliseconds, or Unsent
	Sent bool   // written by the user
	Msg  string
}

// Pending reports whether the entry is an optimistic one still waiting for
// the backend
func (e Entry) Pending() bool {
	return e.ID != "" && e.TS == Unsent
}

// FromMessages maps a session's messages to entries. User messages are sent,
// everything else is received.
func FromMessages(messages []session.Message) []Entry {
	entries := make([]Entry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, Entry{
			TS:   m.Timestamp.UnixMilli(),
			Sent: m.Role == session.RoleUser,
			Msg:  m.Content,
		})
	}
	return entries
}

// Transcript is the ordered list of displayed entries
type Transcript struct {
	entries []Entry
}

// Replace discards every entry and installs entries
func (t *Transcript) Replace(entries []Entry) {
	t.entries = append([]Entry(nil), entries...)
}

// Append adds an entry at the end
func (t *Transcript) Append(e Entry) {
	t.entries = append(t.entries, e)
}

// RemoveByID removes the entry tagged with id and reports whether it was there
func (t *Transcript) RemoveByID(id string) bool {
	if id == "" {
		return false
	}
	for i, e := range t.entries {
		if e.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Clear removes every entry
func (t *Transcript) Clear() {
	t.entries = nil
}
