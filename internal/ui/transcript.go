package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"LaurelinChat/internal/chat"
)

const emptyTranscript = "No messages yet. Say hello!"

// TranscriptView renders chat entries in a scrollable viewport. Replies are
// rendered as markdown.
type TranscriptView struct {
	viewport viewport.Model
	renderer *glamour.TermRenderer
	entries  []chat.Entry
	width    int
	height   int
}

// NewTranscriptView creates an empty view
func NewTranscriptView(width, height int) TranscriptView {
	t := TranscriptView{viewport: viewport.New(width, height)}
	t.SetSize(width, height)
	return t
}

// SetSize resizes the view and re-renders its entries
func (t *TranscriptView) SetSize(width, height int) {
	t.width, t.height = width, height
	t.viewport.Width = width
	t.viewport.Height = height

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(t.bubbleWidth(), 20)),
	)
	if err == nil {
		t.renderer = renderer
	}
	t.refresh()
}

// SetEntries replaces every entry and scrolls to the newest one
func (t *TranscriptView) SetEntries(entries []chat.Entry) {
	t.entries = entries
	t.refresh()
	t.viewport.GotoBottom()
}

// Entries returns the entries being shown
func (t TranscriptView) Entries() []chat.Entry {
	return t.entries
}

// Update handles scrolling
func (t TranscriptView) Update(msg tea.Msg) (TranscriptView, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

func (t TranscriptView) View() string {
	return t.viewport.View()
}

func (t *TranscriptView) refresh() {
	if len(t.entries) == 0 {
		t.viewport.SetContent(lipgloss.Place(t.width, t.height, lipgloss.Center, lipgloss.Center, statusStyle.Render(emptyTranscript)))
		return
	}

	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Sent {
			blocks = append(blocks, t.renderSent(e))
		} else {
			blocks = append(blocks, t.renderReceived(e))
		}
	}
	t.viewport.SetContent(strings.Join(blocks, "\n\n"))
}

func (t *TranscriptView) renderSent(e chat.Entry) string {
	inner := min(lipgloss.Width(e.Msg), t.bubbleWidth()-2)
	bubble := sentStyle.Width(max(inner, 1) + 2).Render(e.Msg)
	if e.Pending() {
		bubble = lipgloss.JoinVertical(lipgloss.Right, bubble, pendingStyle.Render("sending…"))
	}
	return lipgloss.PlaceHorizontal(t.width, lipgloss.Right, bubble)
}

func (t *TranscriptView) renderReceived(e chat.Entry) string {
	body := e.Msg
	if t.renderer != nil {
		if out, err := t.renderer.Render(e.Msg); err == nil {
			body = strings.Trim(out, "\n")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, receivedLabelStyle.Render("Laurelin"), body)
}

func (t *TranscriptView) bubbleWidth() int {
	return max(t.width*3/4, 10)
}
