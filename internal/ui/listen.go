package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/broadcast"
	"LaurelinChat/internal/session"
)

// Broadcast values delivered to the event loop
type (
	authStateMsg struct{ state auth.State }
	userMsg      struct{ user *session.User }
	snapshotMsg  struct{ session *session.Session }
)

// listen waits for the next value on sub. It yields nil once the
// subscription is closed, which ends the listen loop.
func listen[T any](sub *broadcast.Subscription[T], wrap func(T) tea.Msg) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-sub.C()
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

func listenAuth(sub *broadcast.Subscription[auth.State]) tea.Cmd {
	return listen(sub, func(s auth.State) tea.Msg { return authStateMsg{state: s} })
}

func listenUsers(sub *broadcast.Subscription[*session.User]) tea.Cmd {
	return listen(sub, func(u *session.User) tea.Msg { return userMsg{user: u} })
}

func listenSessions(sub *broadcast.Subscription[*session.Session]) tea.Cmd {
	return listen(sub, func(s *session.Session) tea.Msg { return snapshotMsg{session: s} })
}
