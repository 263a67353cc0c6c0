package ui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/broadcast"
	"LaurelinChat/internal/chat"
	"LaurelinChat/internal/session"
)

type fakeAuth struct {
	states  *broadcast.Channel[auth.State]
	logouts int
}

func (f *fakeAuth) LoginWithGoogle(ctx context.Context) (*session.User, error) {
	return &session.User{Email: "alice@example.com"}, nil
}

func (f *fakeAuth) Logout() {
	f.logouts++
	f.states.Publish(auth.Unauthenticated)
}

func (f *fakeAuth) Restore(ctx context.Context) bool { return false }

func (f *fakeAuth) States() *broadcast.Channel[auth.State] { return f.states }

func newTestApp(t *testing.T) (App, *fakeAuth) {
	t.Helper()
	fa := &fakeAuth{states: broadcast.New(auth.Unauthenticated)}
	t.Cleanup(fa.states.Close)

	a := NewApp(Options{
		Controller:  chat.NewController(nil, nil),
		Auth:        fa,
		Environment: "development",
		SkipSplash:  true,
	})
	return a, fa
}

func update(t *testing.T, a App, msg any) App {
	t.Helper()
	m, _ := a.Update(msg)
	next, ok := m.(App)
	require.True(t, ok)
	return next
}

func TestApp_SignedOutRefusesMessages(t *testing.T) {
	a, _ := newTestApp(t)

	a = update(t, a, SubmitMsg{Text: "hello"})
	assert.Contains(t, a.controller.Err(), "/login")
	assert.Empty(t, a.controller.Entries())

	a = update(t, a, SubmitMsg{Text: "/sessions"})
	assert.Contains(t, a.controller.Err(), "Sign in first")
}

func TestApp_Commands(t *testing.T) {
	a, fa := newTestApp(t)

	a = update(t, a, SubmitMsg{Text: "/help"})
	assert.Contains(t, a.View(), "/switch <n|id>")

	a = update(t, a, SubmitMsg{Text: "/logout"})
	assert.Equal(t, 1, fa.logouts)
	assert.Contains(t, a.View(), "Signed out.")

	a = update(t, a, authStateMsg{state: auth.Authenticated})
	assert.True(t, a.controller.Creating(), "signing in starts a session")

	a = update(t, a, SubmitMsg{Text: "/bogus"})
	assert.Contains(t, a.controller.Err(), "Unknown command /bogus")

	a = update(t, a, SubmitMsg{Text: "/switch"})
	assert.Contains(t, a.controller.Err(), "Usage: /switch")
}

func TestApp_SnapshotAndStatus(t *testing.T) {
	a, _ := newTestApp(t)

	a = update(t, a, authStateMsg{state: auth.Authenticated})
	a = update(t, a, userMsg{user: &session.User{Email: "alice@example.com"}})
	a = update(t, a, snapshotMsg{session: &session.Session{
		ID:    "s1",
		Title: "Planning",
		Messages: []session.Message{
			{Role: session.RoleUser, Content: "hi"},
			{Role: session.RoleAssistant, Content: "yo"},
		},
	}})

	require.Len(t, a.transcript.Entries(), 2)
	view := a.View()
	assert.Contains(t, view, "Planning")
	assert.Contains(t, view, "alice@example.com")
	assert.Contains(t, view, "signed in")
	assert.Contains(t, view, "development")

	a = update(t, a, authStateMsg{state: auth.Unauthenticated})
	assert.Empty(t, a.transcript.Entries(), "signing out clears the transcript")
	assert.Nil(t, a.controller.Session())
}

func TestApp_DeviceCodePrompt(t *testing.T) {
	a, _ := newTestApp(t)

	a = update(t, a, authStateMsg{state: auth.Authenticating})
	assert.True(t, a.submit.Disabled())

	a = update(t, a, DeviceCodeMsg{VerificationURL: "https://www.google.com/device", UserCode: "ABCD-EFGH"})
	view := a.View()
	assert.Contains(t, view, "ABCD-EFGH")
	assert.Contains(t, view, "https://www.google.com/device")

	a = update(t, a, authStateMsg{state: auth.Unauthenticated})
	assert.NotContains(t, a.View(), "ABCD-EFGH")
	assert.False(t, a.submit.Disabled())
}
