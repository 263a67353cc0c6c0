package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SubmitMsg carries text the user chose to send, already trimmed
type SubmitMsg struct {
	Text string
}

// SubmitBox is the message editor with its send button
type SubmitBox struct {
	textarea      textarea.Model
	keys          KeyMap
	buttonFocused bool
	disabled      bool
	width         int
}

// NewSubmitBox creates a focused, enabled submission box
func NewSubmitBox(keys KeyMap) SubmitBox {
	ta := textarea.New()
	ta.Placeholder = "Type a message… (ctrl+s to send)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.Focus()

	return SubmitBox{textarea: ta, keys: keys, width: 80}
}

// Update handles key input. Submission yields a command producing SubmitMsg.
func (s SubmitBox) Update(msg tea.Msg) (SubmitBox, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		s.textarea, cmd = s.textarea.Update(msg)
		return s, cmd
	}

	switch {
	case key.Matches(keyMsg, s.keys.Submit):
		return s.submit()
	case key.Matches(keyMsg, s.keys.ToggleFocus):
		return s.toggleFocus()
	case s.buttonFocused && key.Matches(keyMsg, s.keys.Activate):
		return s.submit()
	case s.buttonFocused:
		// Typing while the button is focused goes back to the editor.
		s.buttonFocused = false
		focus := s.textarea.Focus()
		var cmd tea.Cmd
		s.textarea, cmd = s.textarea.Update(msg)
		return s, tea.Batch(focus, cmd)
	}

	var cmd tea.Cmd
	s.textarea, cmd = s.textarea.Update(msg)
	return s, cmd
}

func (s SubmitBox) toggleFocus() (SubmitBox, tea.Cmd) {
	s.buttonFocused = !s.buttonFocused
	if s.buttonFocused {
		s.textarea.Blur()
		return s, nil
	}
	return s, s.textarea.Focus()
}

func (s SubmitBox) submit() (SubmitBox, tea.Cmd) {
	if s.disabled {
		return s, nil
	}
	text := strings.TrimSpace(s.textarea.Value())
	if text == "" {
		return s, nil
	}
	s.textarea.Reset()
	return s, func() tea.Msg { return SubmitMsg{Text: text} }
}

// SetDisabled turns emission off or on. Input is still captured.
func (s *SubmitBox) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// Disabled reports whether emission is suppressed
func (s SubmitBox) Disabled() bool {
	return s.disabled
}

// ButtonFocused reports whether the send button has focus
func (s SubmitBox) ButtonFocused() bool {
	return s.buttonFocused
}

// Value returns the editor contents
func (s SubmitBox) Value() string {
	return s.textarea.Value()
}

// SetValue replaces the editor contents
func (s *SubmitBox) SetValue(v string) {
	s.textarea.SetValue(v)
}

// SetWidth resizes the box
func (s *SubmitBox) SetWidth(width int) {
	s.width = width
	s.textarea.SetWidth(max(width-lipgloss.Width(s.button())-2, 10))
}

// Height is the number of rows the box occupies
func (s SubmitBox) Height() int {
	return max(s.textarea.Height(), lipgloss.Height(s.button()))
}

func (s SubmitBox) button() string {
	switch {
	case s.disabled:
		return buttonDisabledStyle.Render("Send")
	case s.buttonFocused:
		return buttonFocusedStyle.Render("Send")
	default:
		return buttonStyle.Render("Send")
	}
}

func (s SubmitBox) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Bottom, s.textarea.View(), " ", s.button())
}
