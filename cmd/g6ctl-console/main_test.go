package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"g6ctl/internal/device"
)

// TestModelViewShowsDisconnectedStatus verifies the view renders the
// mirror's state without needing a live device.
func TestModelViewShowsDisconnectedStatus(t *testing.T) {
	m := newModel(device.New())

	body := m.renderBody()

	assert.Contains(t, body, "disconnected", "view should report the disconnected status")
	assert.Contains(t, body, "copy state", "view should list the copy-state keybinding")
}

// TestUpdateQuitKeyReturnsQuitCmd verifies the q keybinding terminates
// the program.
func TestUpdateQuitKeyReturnsQuitCmd(t *testing.T) {
	m := newModel(device.New())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	assert.NotNil(t, cmd, "q should produce a tea.Quit command")
}

// TestUpdateNoticeMsgSetsNotice verifies a noticeMsg is reflected into
// the model's transient status line.
func TestUpdateNoticeMsgSetsNotice(t *testing.T) {
	m := newModel(device.New())

	updated, cmd := m.Update(noticeMsg("state copied to clipboard"))
	mm := updated.(model)

	assert.Equal(t, "state copied to clipboard", mm.notice)
	assert.NotNil(t, cmd, "a notice should schedule its own expiry")
}

// TestUpdateNoticeExpiredClearsNotice verifies the expiry message
// clears a previously set notice.
func TestUpdateNoticeExpiredClearsNotice(t *testing.T) {
	m := newModel(device.New())
	m.notice = "stale"

	updated, _ := m.Update(noticeExpiredMsg{})
	mm := updated.(model)

	assert.Empty(t, mm.notice)
}
