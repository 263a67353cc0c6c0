package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Splash timings, measured from program start
const (
	splashFadeInAt  = 50 * time.Millisecond
	splashFadeOutAt = 4 * time.Second
	splashLinger    = time.Second
)

type splashPhase int

const (
	splashHidden splashPhase = iota
	splashShown
	splashFading
	splashDone
)

type splashTickMsg struct {
	phase splashPhase
}

// Splash is the startup banner. It fades in, holds, fades out and is then
// removed; any key skips it.
type Splash struct {
	phase   splashPhase
	version string
	width   int
	height  int
}

// NewSplash creates a splash that has not started yet
func NewSplash(version string) Splash {
	return Splash{version: version, width: 80, height: 24}
}

func (s Splash) Init() tea.Cmd {
	return splashTick(splashFadeInAt, splashShown)
}

// Update advances the phase
func (s Splash) Update(msg tea.Msg) (Splash, tea.Cmd) {
	switch msg := msg.(type) {
	case splashTickMsg:
		if s.phase == splashDone || msg.phase <= s.phase {
			return s, nil
		}
		s.phase = msg.phase
		switch s.phase {
		case splashShown:
			return s, splashTick(splashFadeOutAt-splashFadeInAt, splashFading)
		case splashFading:
			return s, splashTick(splashLinger, splashDone)
		}
	case tea.KeyMsg:
		s.phase = splashDone
	case tea.WindowSizeMsg:
		s.width, s.height = msg.Width, msg.Height
	}
	return s, nil
}

// Done reports whether the splash has been removed
func (s Splash) Done() bool {
	return s.phase == splashDone
}

func (s Splash) View() string {
	if s.phase == splashHidden || s.phase == splashDone {
		return ""
	}

	title := titleStyle.Render("L A U R E L I N")
	sub := statusStyle.Render("chat · v" + s.version)
	hint := statusStyle.Render("press any key")
	if s.phase == splashFading {
		title = titleStyle.Faint(true).Render("L A U R E L I N")
		sub = statusStyle.Faint(true).Render("chat · v" + s.version)
		hint = ""
	}

	block := lipgloss.JoinVertical(lipgloss.Center, title, "", sub, "", hint)
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, block)
}

func splashTick(d time.Duration, next splashPhase) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return splashTickMsg{phase: next} })
}
