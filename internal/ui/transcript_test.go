package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"LaurelinChat/internal/chat"
)

func TestTranscriptView_RendersEntries(t *testing.T) {
	v := NewTranscriptView(60, 20)
	assert.Contains(t, v.View(), emptyTranscript)

	v.SetEntries([]chat.Entry{
		{TS: 1, Sent: true, Msg: "hello"},
		{TS: 2, Msg: "world"},
		{ID: "c1", TS: chat.Unsent, Sent: true, Msg: "again"},
	})

	view := v.View()
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "world")
	assert.Contains(t, view, "again")
	assert.Contains(t, view, "sending…")
	assert.Len(t, v.Entries(), 3)
}

func TestTranscriptView_ReplaceDropsOldEntries(t *testing.T) {
	v := NewTranscriptView(60, 20)
	v.SetEntries([]chat.Entry{{Sent: true, Msg: "stale"}})
	v.SetEntries([]chat.Entry{{Msg: "fresh"}})

	assert.NotContains(t, v.View(), "stale")
	assert.Contains(t, v.View(), "fresh")
}
