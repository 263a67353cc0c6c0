package chat

import (
	"context"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LaurelinChat/internal/api"
	"LaurelinChat/internal/apitest"
	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/session"
)

func newController(t *testing.T) (*Controller, *api.Client, *apitest.Backend) {
	t.Helper()

	b := apitest.New(t)
	b.AddAccount("google-alice", session.User{UserID: "u1", Email: "alice@example.com"})

	client := api.New(b.URL())
	t.Cleanup(client.Close)
	_, err := client.Login(context.Background(), "google-alice")
	require.NoError(t, err)

	return NewController(client, nil), client, b
}

// run executes a command synchronously and returns its message
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	return cmd()
}

func TestOnSnapshot_RebuildsTranscript(t *testing.T) {
	c := NewController(nil, nil)
	c.transcript.Append(Entry{Sent: true, Msg: "stale"})

	c.OnSnapshot(&session.Session{
		ID: "s1",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "hi"},
			{Role: session.RoleAssistant, Content: "yo"},
		},
	})

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Sent)
	assert.Equal(t, "hi", entries[0].Msg)
	assert.False(t, entries[1].Sent)
	assert.Equal(t, "yo", entries[1].Msg)
	assert.Equal(t, "s1", c.Session().ID)

	c.OnSnapshot(nil)
	assert.Empty(t, c.Entries())
	assert.Nil(t, c.Session())
}

func TestSubmit_RejectsBlankInput(t *testing.T) {
	c, _, b := newController(t)
	c.OnSnapshot(b.AddSession("u1", "s"))

	for _, text := range []string{"", "   ", "\n\t "} {
		cmd, err := c.Submit(text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.Nil(t, cmd)
		assert.NotEmpty(t, c.Err())
	}
	assert.Empty(t, c.Entries())
	assert.Zero(t, b.RequestCount("POST /chat/sessions/"))
}

func TestSubmit_RequiresSession(t *testing.T) {
	c, _, _ := newController(t)

	cmd, err := c.Submit("hello")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, cmd)
	assert.Empty(t, c.Entries())
}

func TestSubmit_SuccessReconcilesWithSnapshot(t *testing.T) {
	c, client, b := newController(t)
	c.OnSnapshot(b.AddSession("u1", "s"))
	c.SetErr("old error")

	cmd, err := c.Submit("hello")
	require.NoError(t, err)
	assert.Empty(t, c.Err(), "a new attempt clears the previous error")

	entries := c.Entries()
	require.Len(t, entries, 1)
	last := entries[0]
	assert.True(t, last.Sent)
	assert.Equal(t, "hello", last.Msg)
	assert.True(t, last.Pending())
	assert.Equal(t, 1, c.Pending())

	msg := run(t, cmd).(SendResultMsg)
	require.NoError(t, msg.Err)
	c.OnSendResult(msg)
	c.OnSnapshot(client.Sessions().Get())

	server, ok := b.Session(c.Session().ID)
	require.True(t, ok)
	assert.Equal(t, FromMessages(server.Messages), c.Entries())
	assert.Len(t, c.Entries(), 2)
	assert.Zero(t, c.Pending())
	assert.Empty(t, c.Err())
}

func TestSubmit_FailureRollsBackEntry(t *testing.T) {
	c, client, b := newController(t)
	c.OnSnapshot(b.AddSession("u1", "s", session.Message{Role: session.RoleUser, Content: "earlier"}))
	b.Fail("POST /chat/sessions/{id}/messages", apitest.Override{Status: http.StatusInternalServerError})

	cmd, err := c.Submit("hello")
	require.NoError(t, err)
	require.Len(t, c.Entries(), 2)

	c.OnSendResult(run(t, cmd).(SendResultMsg))

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "earlier", entries[0].Msg)
	assert.NotEmpty(t, c.Err())
	assert.Nil(t, client.Sessions().Get(), "a failed send publishes nothing")
}

func TestSubmit_OverlappingSendsRollBackByID(t *testing.T) {
	c, _, b := newController(t)
	c.OnSnapshot(b.AddSession("u1", "s"))

	first, err := c.Submit("first")
	require.NoError(t, err)
	second, err := c.Submit("second")
	require.NoError(t, err)
	require.Equal(t, 2, c.Pending())

	// The second send reaches the backend first and fails.
	b.Fail("POST /chat/sessions/{id}/messages", apitest.Override{Status: http.StatusBadGateway, Body: map[string]any{"detail": "model offline"}})
	c.OnSendResult(run(t, second).(SendResultMsg))

	entries := c.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Msg, "only the failed send's entry is removed")
	assert.Equal(t, "model offline", c.Err())

	firstResult := run(t, first).(SendResultMsg)
	require.NoError(t, firstResult.Err)
	c.OnSendResult(firstResult)
	assert.Zero(t, c.Pending())
}

func TestSubmit_LateFailureAfterSnapshot(t *testing.T) {
	c, client, b := newController(t)
	c.OnSnapshot(b.AddSession("u1", "s"))

	first, err := c.Submit("first")
	require.NoError(t, err)
	second, err := c.Submit("second")
	require.NoError(t, err)

	c.OnSendResult(run(t, first).(SendResultMsg))
	c.OnSnapshot(client.Sessions().Get())
	require.Len(t, c.Entries(), 2)

	b.Fail("POST /chat/sessions/{id}/messages", apitest.Override{Status: http.StatusInternalServerError})
	c.OnSendResult(run(t, second).(SendResultMsg))

	entries := c.Entries()
	require.Len(t, entries, 2, "rollback never touches confirmed entries")
	assert.Equal(t, "first", entries[0].Msg)
	assert.Equal(t, "echo: first", entries[1].Msg)
}

func TestOnAuthState_CreatesSessionOnce(t *testing.T) {
	c, client, _ := newController(t)

	cmd := c.OnAuthState(auth.Authenticated)
	require.NotNil(t, cmd)
	assert.True(t, c.Creating())
	assert.Nil(t, c.OnAuthState(auth.Authenticated), "no second creation while one is in flight")

	msg := run(t, cmd).(CreateResultMsg)
	require.NoError(t, msg.Err)
	c.OnCreateResult(msg)

	assert.False(t, c.Creating())
	require.NotNil(t, c.Session())
	assert.Equal(t, client.Sessions().Get().ID, c.Session().ID)
	assert.Nil(t, c.OnAuthState(auth.Authenticated), "no creation when a session exists")
}

func TestOnCreateResult_FailureAllowsRetry(t *testing.T) {
	c, _, b := newController(t)
	b.Fail("POST /chat/sessions", apitest.Override{Status: http.StatusServiceUnavailable, Body: map[string]any{"detail": "try later"}})

	c.OnCreateResult(run(t, c.OnAuthState(auth.Authenticated)).(CreateResultMsg))
	assert.Equal(t, "try later", c.Err())
	assert.False(t, c.Creating())
	assert.Nil(t, c.Session())

	retry := c.OnAuthState(auth.Authenticated)
	require.NotNil(t, retry)
	c.OnCreateResult(run(t, retry).(CreateResultMsg))
	assert.NotNil(t, c.Session())
	assert.Empty(t, c.Err())
}

func TestOnAuthState_SignOutClearsEverything(t *testing.T) {
	c, _, b := newController(t)
	c.OnSnapshot(b.AddSession("u1", "s", session.Message{Role: session.RoleUser, Content: "hi"}))
	_, err := c.Submit("pending")
	require.NoError(t, err)
	c.SetErr("boom")

	assert.Nil(t, c.OnAuthState(auth.Unauthenticated))
	assert.Empty(t, c.Entries())
	assert.Nil(t, c.Session())
	assert.Zero(t, c.Pending())
	assert.Empty(t, c.Err())

	// Twice is the same as once.
	c.OnAuthState(auth.Unauthenticated)
	assert.Empty(t, c.Entries())
	assert.Nil(t, c.Session())
}

func TestSwitchListAndDelete(t *testing.T) {
	c, client, b := newController(t)
	one := b.AddSession("u1", "one", session.Message{Role: session.RoleUser, Content: "in one"})
	two := b.AddSession("u1", "two", session.Message{Role: session.RoleAssistant, Content: "in two"})
	c.OnSnapshot(one)

	c.OnSessions(run(t, c.ListSessions()).(SessionsMsg))
	require.Len(t, c.Sessions(), 2)
	assert.Equal(t, two.ID, c.ResolveSession("2"))
	assert.Equal(t, "custom-id", c.ResolveSession("custom-id"))
	assert.Equal(t, "9", c.ResolveSession("9"))

	c.OnSwitchResult(run(t, c.SwitchSession(two.ID)).(SwitchResultMsg))
	assert.Equal(t, two.ID, c.Session().ID)
	assert.Equal(t, two.ID, client.Sessions().Get().ID)
	require.Len(t, c.Entries(), 1)
	assert.False(t, c.Entries()[0].Sent)

	c.OnDeleteResult(run(t, c.DeleteSession(one.ID)).(DeleteResultMsg))
	assert.Equal(t, two.ID, c.Session().ID, "deleting another session keeps the current one")
	assert.Len(t, c.Sessions(), 1)

	c.OnDeleteResult(run(t, c.DeleteSession(two.ID)).(DeleteResultMsg))
	assert.Nil(t, c.Session())
	assert.Empty(t, c.Entries())

	c.OnSwitchResult(run(t, c.SwitchSession("missing")).(SwitchResultMsg))
	assert.Equal(t, "Session not found", c.Err())
}

func TestTranscript_RemoveByID(t *testing.T) {
	var tr Transcript
	tr.Append(Entry{ID: "a", TS: Unsent, Sent: true, Msg: "a"})
	tr.Append(Entry{TS: 10, Msg: "reply"})
	tr.Append(Entry{ID: "b", TS: Unsent, Sent: true, Msg: "b"})

	assert.False(t, tr.RemoveByID(""), "confirmed entries carry no id")
	assert.False(t, tr.RemoveByID("missing"))
	assert.True(t, tr.RemoveByID("a"))
	assert.False(t, tr.RemoveByID("a"))

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "reply", entries[0].Msg)
	assert.Equal(t, "b", entries[1].Msg)
}

func TestFromMessages_Timestamps(t *testing.T) {
	var withTime session.Timestamp
	require.NoError(t, withTime.UnmarshalJSON([]byte(`"2024-03-09T14:05:07.123456"`)))

	entries := FromMessages([]session.Message{
		{Role: session.RoleSystem, Content: "sys", Timestamp: withTime},
		{Role: session.RoleUser, Content: "no time"},
	})

	require.Len(t, entries, 2)
	assert.False(t, entries[0].Sent, "only user messages count as sent")
	assert.Equal(t, withTime.Time.UnixMilli(), entries[0].TS)
	assert.Equal(t, Unsent, entries[1].TS)
}
