// Package ui is the terminal interface: startup splash, transcript, message
// editor and the root model that ties them to the session controller and the
// auth gateway.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"LaurelinChat/internal/auth"
	"LaurelinChat/internal/broadcast"
	"LaurelinChat/internal/chat"
	"LaurelinChat/internal/session"
)

// loginTimeout bounds the whole device sign-in, including the user's approval
const loginTimeout = 15 * time.Minute

// Authenticator is the part of the auth gateway the UI drives
type Authenticator interface {
	LoginWithGoogle(ctx context.Context) (*session.User, error)
	Logout()
	Restore(ctx context.Context) bool
	States() *broadcast.Channel[auth.State]
}

// DeviceCodeMsg asks the user to approve a device sign-in
type DeviceCodeMsg auth.DeviceCode

type loginResultMsg struct {
	user *session.User
	err  error
}

type restoredMsg struct {
	ok bool
}

// Options configures the root model
type Options struct {
	Controller  *chat.Controller
	Auth        Authenticator
	Users       *broadcast.Channel[*session.User]
	Sessions    *broadcast.Channel[*session.Session]
	Logger      *slog.Logger
	Version     string
	Environment string
	SkipSplash  bool
}

// App is the root bubbletea model
type App struct {
	controller  *chat.Controller
	auth        Authenticator
	logger      *slog.Logger
	environment string
	keys        KeyMap

	authSub    *broadcast.Subscription[auth.State]
	userSub    *broadcast.Subscription[*session.User]
	sessionSub *broadcast.Subscription[*session.Session]

	splash     Splash
	transcript TranscriptView
	submit     SubmitBox

	state       auth.State
	user        *session.User
	deviceCode  *auth.DeviceCode
	cancelLogin context.CancelFunc
	notice      string
	width       int
	height      int
}

// NewApp subscribes to the broadcast channels and builds the root model
func NewApp(opts Options) App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	keys := DefaultKeyMap()
	a := App{
		controller:  opts.Controller,
		auth:        opts.Auth,
		logger:      logger,
		environment: opts.Environment,
		keys:        keys,
		splash:      NewSplash(opts.Version),
		transcript:  NewTranscriptView(80, 18),
		submit:      NewSubmitBox(keys),
		width:       80,
		height:      24,
	}
	if opts.SkipSplash {
		a.splash.phase = splashDone
	}
	if opts.Auth != nil {
		a.authSub = opts.Auth.States().Subscribe()
	}
	if opts.Users != nil {
		a.userSub = opts.Users.Subscribe()
	}
	if opts.Sessions != nil {
		a.sessionSub = opts.Sessions.Subscribe()
	}
	a.submit.SetDisabled(true)
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.splash.Init(),
		listenAuth(a.authSub),
		listenUsers(a.userSub),
		listenSessions(a.sessionSub),
		a.restore(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.splash, _ = a.splash.Update(msg)
		a.layout()
		return a, nil

	case splashTickMsg:
		var cmd tea.Cmd
		a.splash, cmd = a.splash.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)

	case authStateMsg:
		return a.handleAuthState(msg.state)

	case userMsg:
		a.user = msg.user
		return a, listenUsers(a.userSub)

	case snapshotMsg:
		a.controller.OnSnapshot(msg.session)
		a.syncTranscript()
		return a, listenSessions(a.sessionSub)

	case restoredMsg:
		if !msg.ok {
			a.notice = "Type /login to sign in with Google."
		}
		return a, nil

	case DeviceCodeMsg:
		dc := auth.DeviceCode(msg)
		a.deviceCode = &dc
		return a, nil

	case loginResultMsg:
		a.deviceCode = nil
		a.cancelLogin = nil
		if msg.err != nil {
			a.controller.SetErr(chat.ErrorText(msg.err))
		} else {
			a.notice = "Signed in as " + msg.user.DisplayName() + "."
		}
		return a, nil

	case SubmitMsg:
		return a.handleSubmit(msg.Text)

	case chat.SendResultMsg:
		a.controller.OnSendResult(msg)
		a.syncTranscript()
		return a, nil

	case chat.CreateResultMsg:
		a.controller.OnCreateResult(msg)
		a.syncTranscript()
		return a, nil

	case chat.SwitchResultMsg:
		a.controller.OnSwitchResult(msg)
		a.syncTranscript()
		return a, nil

	case chat.DeleteResultMsg:
		a.controller.OnDeleteResult(msg)
		a.syncTranscript()
		if msg.Err == nil {
			a.notice = "Deleted session " + msg.SessionID + "."
		}
		return a, nil

	case chat.SessionsMsg:
		a.controller.OnSessions(msg)
		if msg.Err == nil {
			a.notice = a.sessionList()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.submit, cmd = a.submit.Update(msg)
	return a, cmd
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		return a.quit()
	}
	if !a.splash.Done() {
		a.splash, _ = a.splash.Update(msg)
		return a, nil
	}
	if msg.Type == tea.KeyEsc && a.cancelLogin != nil {
		a.cancelLogin()
		return a, nil
	}
	if key.Matches(msg, a.keys.ScrollUp, a.keys.ScrollDown) {
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.submit, cmd = a.submit.Update(msg)
	return a, cmd
}

func (a App) handleAuthState(state auth.State) (tea.Model, tea.Cmd) {
	a.state = state
	a.submit.SetDisabled(state == auth.Authenticating)
	if state != auth.Authenticating {
		a.deviceCode = nil
	}

	cmd := a.controller.OnAuthState(state)
	if state == auth.Unauthenticated {
		a.syncTranscript()
	}
	return a, tea.Batch(cmd, listenAuth(a.authSub))
}

func (a App) handleSubmit(text string) (tea.Model, tea.Cmd) {
	a.notice = ""
	if strings.HasPrefix(text, "/") {
		return a.runCommand(text)
	}
	if a.state != auth.Authenticated {
		a.controller.SetErr("You are signed out. Type /login to sign in.")
		return a, nil
	}

	cmd, err := a.controller.Submit(text)
	a.syncTranscript()
	if err != nil {
		return a, nil
	}
	return a, cmd
}

func (a App) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, args := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/quit", "/exit":
		return a.quit()
	case "/help":
		a.notice = helpText()
		return a, nil
	case "/login":
		if a.state != auth.Unauthenticated {
			a.notice = "Already " + a.state.String() + "."
			return a, nil
		}
		return a.login()
	case "/logout":
		if a.cancelLogin != nil {
			a.cancelLogin()
		}
		a.auth.Logout()
		a.notice = "Signed out."
		return a, nil
	}

	if a.state != auth.Authenticated {
		a.controller.SetErr("Sign in first with /login.")
		return a, nil
	}

	switch name {
	case "/new":
		return a, a.controller.NewSession(args)
	case "/sessions":
		return a, a.controller.ListSessions()
	case "/switch":
		if args == "" {
			a.controller.SetErr("Usage: /switch <number or id>")
			return a, nil
		}
		return a, a.controller.SwitchSession(a.controller.ResolveSession(args))
	case "/delete":
		if args == "" {
			a.controller.SetErr("Usage: /delete <number or id>")
			return a, nil
		}
		return a, a.controller.DeleteSession(a.controller.ResolveSession(args))
	}

	a.controller.SetErr("Unknown command " + name + ". Type /help for a list.")
	return a, nil
}

func (a App) login() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	a.cancelLogin = cancel
	a.controller.SetErr("")

	gw := a.auth
	return a, func() tea.Msg {
		defer cancel()
		user, err := gw.LoginWithGoogle(ctx)
		return loginResultMsg{user: user, err: err}
	}
}

func (a App) restore() tea.Cmd {
	if a.auth == nil {
		return nil
	}
	gw := a.auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return restoredMsg{ok: gw.Restore(ctx)}
	}
}

func (a App) quit() (tea.Model, tea.Cmd) {
	if a.cancelLogin != nil {
		a.cancelLogin()
	}
	a.authSub.Unsubscribe()
	a.userSub.Unsubscribe()
	a.sessionSub.Unsubscribe()
	return a, tea.Quit
}

func (a *App) syncTranscript() {
	a.transcript.SetEntries(a.controller.Entries())
}

func (a *App) layout() {
	a.submit.SetWidth(a.width)
	reserved := 1 + a.submit.Height() + 2 // header, editor, status and error lines
	a.transcript.SetSize(a.width, max(a.height-reserved, 3))
}

func (a App) View() string {
	if !a.splash.Done() {
		return a.splash.View()
	}

	header := titleStyle.Render("Laurelin Chat")
	if s := a.controller.Session(); s != nil && s.Title != "" {
		header += statusStyle.Render("  ·  " + s.Title)
	}

	body := a.transcript.View()
	if a.deviceCode != nil {
		body = lipgloss.Place(a.width, lipgloss.Height(body), lipgloss.Center, lipgloss.Center, a.devicePrompt())
	}

	parts := []string{header, body}
	if a.notice != "" {
		parts = append(parts, statusStyle.Render(a.notice))
	}
	parts = append(parts, a.submit.View(), a.statusLine(), errorStyle.Render(a.controller.Err()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a App) devicePrompt() string {
	dc := a.deviceCode
	lines := []string{
		titleStyle.Render("Sign in with Google"),
		"",
		"Open " + codeStyle.Render(dc.VerificationURL),
		"and enter the code " + codeStyle.Render(dc.UserCode),
		"",
		statusStyle.Render(fmt.Sprintf("Code expires at %s. Press esc to cancel.", dc.Expires.Format("15:04"))),
	}
	return promptBoxStyle.Render(strings.Join(lines, "\n"))
}

func (a App) statusLine() string {
	parts := []string{a.state.String()}
	if a.user != nil {
		parts = append(parts, a.user.Email)
	}
	if a.environment != "" {
		parts = append(parts, a.environment)
	}
	if n := a.controller.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d sending", n))
	}
	if a.controller.Creating() {
		parts = append(parts, "starting session")
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

func (a App) sessionList() string {
	list := a.controller.Sessions()
	if len(list) == 0 {
		return "No saved sessions."
	}

	var b strings.Builder
	current := a.controller.Session()
	for i, s := range list {
		marker := " "
		if current != nil && current.ID == s.ID {
			marker = "*"
		}
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%s %d. %s  %s  (%d messages)\n", marker, i+1, title, s.ID, len(s.Messages))
	}
	b.WriteString("Use /switch <number> to open one.")
	return b.String()
}

func helpText() string {
	return strings.Join([]string{
		"/login            sign in with Google",
		"/logout           sign out and forget the saved credential",
		"/new [title]      start a new session",
		"/sessions         list your sessions",
		"/switch <n|id>    open a session",
		"/delete <n|id>    delete a session",
		"/quit             exit",
		"ctrl+s or tab+enter sends, pgup/pgdn scrolls",
	}, "\n")
}
