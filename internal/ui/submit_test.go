package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(s SubmitBox, text string) SubmitBox {
	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return s
}

// emitted runs cmd and returns the submitted text, if any
func emitted(t *testing.T, cmd tea.Cmd) (string, bool) {
	t.Helper()
	if cmd == nil {
		return "", false
	}
	msg, ok := cmd().(SubmitMsg)
	if !ok {
		return "", false
	}
	return msg.Text, true
}

func TestSubmitBox_EmitsTrimmedTextOnce(t *testing.T) {
	chords := map[string]tea.KeyMsg{
		"ctrl+s":    {Type: tea.KeyCtrlS},
		"alt+enter": {Type: tea.KeyEnter, Alt: true},
	}

	for name, chord := range chords {
		t.Run(name, func(t *testing.T) {
			s := typeText(NewSubmitBox(DefaultKeyMap()), "  hello there  ")

			s, cmd := s.Update(chord)
			text, ok := emitted(t, cmd)
			require.True(t, ok)
			assert.Equal(t, "hello there", text)
			assert.Empty(t, s.Value(), "buffer is cleared after emission")

			_, cmd = s.Update(chord)
			_, ok = emitted(t, cmd)
			assert.False(t, ok, "nothing left to emit")
		})
	}
}

func TestSubmitBox_BlankInputNeverEmits(t *testing.T) {
	for _, input := range []string{"", " ", "   \t  "} {
		s := NewSubmitBox(DefaultKeyMap())
		s.SetValue(input)

		_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
		_, ok := emitted(t, cmd)
		assert.False(t, ok, "input %q", input)
	}
}

func TestSubmitBox_MultilineKeepsInnerNewlines(t *testing.T) {
	s := NewSubmitBox(DefaultKeyMap())
	s.SetValue("\nfirst line\nsecond line\n\n")

	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	text, ok := emitted(t, cmd)
	require.True(t, ok)
	assert.Equal(t, "first line\nsecond line", text)
}

func TestSubmitBox_ButtonActivation(t *testing.T) {
	s := typeText(NewSubmitBox(DefaultKeyMap()), "via button")

	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, s.ButtonFocused())

	s, cmd := s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	text, ok := emitted(t, cmd)
	require.True(t, ok)
	assert.Equal(t, "via button", text)
	assert.Empty(t, s.Value())

	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, s.ButtonFocused())
}

func TestSubmitBox_TypingLeavesButton(t *testing.T) {
	s := NewSubmitBox(DefaultKeyMap())
	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, s.ButtonFocused())

	s = typeText(s, "x")
	assert.False(t, s.ButtonFocused())
	assert.Equal(t, "x", s.Value())
}

func TestSubmitBox_DisabledCapturesButDoesNotEmit(t *testing.T) {
	s := NewSubmitBox(DefaultKeyMap())
	s.SetDisabled(true)
	s = typeText(s, "draft")
	assert.Equal(t, "draft", s.Value(), "input is still captured")

	s, cmd := s.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	_, ok := emitted(t, cmd)
	assert.False(t, ok)
	assert.Equal(t, "draft", s.Value(), "buffer kept while disabled")

	s.SetDisabled(false)
	_, cmd = s.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	text, ok := emitted(t, cmd)
	require.True(t, ok)
	assert.Equal(t, "draft", text)
}
