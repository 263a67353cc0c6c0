package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplash_Phases(t *testing.T) {
	s := NewSplash("1.0.0")
	require.NotNil(t, s.Init())
	assert.Empty(t, s.View(), "invisible until the fade-in tick")

	s, cmd := s.Update(splashTickMsg{phase: splashShown})
	require.NotNil(t, cmd, "fade-out is scheduled")
	assert.Contains(t, s.View(), "L A U R E L I N")
	assert.Contains(t, s.View(), "v1.0.0")

	s, cmd = s.Update(splashTickMsg{phase: splashFading})
	require.NotNil(t, cmd, "removal is scheduled")
	assert.False(t, s.Done())

	s, cmd = s.Update(splashTickMsg{phase: splashDone})
	assert.Nil(t, cmd)
	assert.True(t, s.Done())
	assert.Empty(t, s.View())
}

func TestSplash_AnyKeySkips(t *testing.T) {
	s := NewSplash("1.0.0")
	s, _ = s.Update(splashTickMsg{phase: splashShown})

	s, _ = s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, s.Done())

	// Ticks still in flight are ignored.
	s, cmd := s.Update(splashTickMsg{phase: splashFading})
	assert.Nil(t, cmd)
	assert.True(t, s.Done())
}
