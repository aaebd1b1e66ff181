// Command g6ctl-console is a live terminal dashboard for the Sound
// Blaster X G6: one settings view, refreshed whenever the listener
// observes a device event, with keybindings for the switches worth
// flipping without leaving the terminal.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"g6ctl/internal/device"
	"g6ctl/internal/state"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 2).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#34D399")).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
)

func main() {
	ctl := device.New()
	if err := ctl.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-console: connect: %v\n", err)
		os.Exit(1)
	}
	defer ctl.Disconnect()

	p := tea.NewProgram(newModel(ctl))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "g6ctl-console: %v\n", err)
		os.Exit(1)
	}
}

// deviceEventMsg is sent whenever the Listener notifies a subscriber.
type deviceEventMsg struct{}

// actionErrMsg carries the result of a keybinding-triggered command.
type actionErrMsg struct{ err error }

// noticeExpiredMsg clears a transient status line.
type noticeExpiredMsg struct{}

type model struct {
	ctl     *device.Controller
	sub     <-chan struct{}
	snap    state.SettingsSnapshot
	lastErr error
	notice  string
	vp      viewport.Model
	ready   bool
}

func newModel(ctl *device.Controller) model {
	return model{
		ctl:  ctl,
		sub:  ctl.Subscribe(),
		snap: ctl.State(),
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.sub)
}

func waitForEvent(sub <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-sub
		return deviceEventMsg{}
	}
}

func clearNoticeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return noticeExpiredMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "o":
			cmd = m.runAction(m.ctl.ToggleOutput)
		case "s":
			snap := m.ctl.State()
			cmd = m.runAction(func() error { return m.ctl.SetSbxMode(!snap.SbxEnabled) })
		case "g":
			snap := m.ctl.State()
			cmd = m.runAction(func() error { return m.ctl.SetScoutMode(!snap.ScoutMode) })
		case "c":
			cmd = m.copyState()
		default:
			m.vp, cmd = m.vp.Update(msg)
		}

	case deviceEventMsg:
		m.snap = m.ctl.State()
		cmd = waitForEvent(m.sub)

	case actionErrMsg:
		m.lastErr = msg.err
		m.snap = m.ctl.State()

	case noticeExpiredMsg:
		m.notice = ""

	case noticeMsg:
		m.notice = string(msg)
		cmd = clearNoticeAfter(2 * time.Second)
	}

	if m.ready {
		m.vp.SetContent(m.renderBody())
	}
	return m, cmd
}

type noticeMsg string

func (m model) runAction(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionErrMsg{err: fn()}
	}
}

func (m model) copyState() tea.Cmd {
	return func() tea.Msg {
		b, err := json.MarshalIndent(m.ctl.State(), "", "  ")
		if err != nil {
			return actionErrMsg{err: err}
		}
		if err := clipboard.WriteAll(string(b)); err != nil {
			return actionErrMsg{err: err}
		}
		return noticeMsg("state copied to clipboard")
	}
}

func boolLabel(on bool) string {
	if on {
		return onStyle.Render("on")
	}
	return offStyle.Render("off")
}

func effectLine(name string, e state.EffectSetting) string {
	return fmt.Sprintf("%s  %s  %s",
		labelStyle.Render(fmt.Sprintf("%-12s", name)),
		boolLabel(bool(e.State)),
		valueStyle.Render(fmt.Sprintf("%3d%%", int(e.Value))))
}

func (m model) View() string {
	if !m.ready {
		return "initializing…"
	}
	return m.vp.View()
}

func (m model) renderBody() string {
	s := m.snap

	conn := offStyle.Render("disconnected")
	if s.IsConnected {
		conn = onStyle.Render("connected")
	}

	out := "unknown"
	if s.Output.Known {
		out = s.Output.Device.String()
	}

	fw := "unknown"
	if s.HasFirmware {
		fw = fmt.Sprintf("%s (%s)", s.Firmware.Version, s.Firmware.Build)
	}

	filter := "unknown"
	if s.HasDigitalFilter {
		filter = s.DigitalFilter.String()
	}

	lines := []string{
		headerStyle.Render("g6ctl — Sound Blaster X G6 console"),
		"",
		fmt.Sprintf("%s  %s    %s  %s",
			labelStyle.Render("status"), conn,
			labelStyle.Render("output"), valueStyle.Render(out)),
		fmt.Sprintf("%s  %s    %s  %s",
			labelStyle.Render("firmware"), valueStyle.Render(fw),
			labelStyle.Render("filter"), valueStyle.Render(filter)),
		"",
		effectLine("surround", s.Surround),
		effectLine("dialogplus", s.DialogPlus),
		effectLine("smartvolume", s.SmartVolume),
		effectLine("crystalizer", s.Crystalizer),
		effectLine("bass", s.Bass),
		"",
		fmt.Sprintf("%s  %s    %s  %s",
			labelStyle.Render("sbx"), boolLabel(s.SbxEnabled),
			labelStyle.Render("scout"), boolLabel(s.ScoutMode)),
		"",
	}

	if m.lastErr != nil {
		lines = append(lines, errorStyle.Render("error: "+m.lastErr.Error()), "")
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice), "")
	}

	lines = append(lines,
		helpStyle.Render("o toggle output  ·  s toggle sbx  ·  g toggle scout  ·  c copy state  ·  q quit"),
		footerStyle.Render(time.Now().Format("15:04:05")))

	out2 := ""
	for i, l := range lines {
		if i > 0 {
			out2 += "\n"
		}
		out2 += l
	}
	return out2
}
