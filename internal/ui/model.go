// ABOUTME: Bubbletea model for the player status TUI
// ABOUTME: Shows source, format, pacing regime, and transfer counters
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Stream
	source     string
	sampleRate int
	channels   int
	bitDepth   int

	// Metadata
	title  string
	artist string
	album  string

	// Pacing
	mode      string
	busy      time.Duration
	idle      time.Duration
	periods   uint64
	frames    uint64
	underruns uint64

	// Playback
	paused bool
	volume int
	muted  bool

	// Uptime
	startTime time.Time
	uptime    time.Duration

	// Outgoing control events
	control *Control

	// Dimensions
	width  int
	height int
}

// tickMsg drives the uptime display
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the uptime ticker
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.uptime = time.Since(m.startTime)
		return m, tick()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderPacing()
	s += m.renderControls()
	s += m.renderHelp()

	return s
}

// renderHeader renders the title bar and uptime
func (m Model) renderHeader() string {
	state := "Playing"
	if m.paused {
		state = "Paused"
	}

	return fmt.Sprintf(`┌─ Tactus Player ──────────────────────────────────────┐
│ State:  %-45s│
│ Uptime: %-45s│
├──────────────────────────────────────────────────────┤
`, state, formatUptime(m.uptime))
}

// renderStreamInfo renders the source and its format
func (m Model) renderStreamInfo() string {
	if m.source == "" {
		return "│ No stream                                            │\n"
	}

	s := fmt.Sprintf("│ Source: %-45s│\n", truncate(m.source, 45))
	if m.title != "" {
		s += fmt.Sprintf("│   Track:  %-43s│\n", truncate(m.title, 43))
		if m.artist != "" {
			s += fmt.Sprintf("│   Artist: %-43s│\n", truncate(m.artist, 43))
		}
		if m.album != "" {
			s += fmt.Sprintf("│   Album:  %-43s│\n", truncate(m.album, 43))
		}
	}

	format := fmt.Sprintf("%dHz %s %d-bit", m.sampleRate, channelName(m.channels), m.bitDepth)
	s += fmt.Sprintf("│ Format: %-45s│\n", format)

	return s
}

// renderPacing renders the synchronizer regime and counters
func (m Model) renderPacing() string {
	mode := m.mode
	if mode == "" {
		mode = "starting"
	}

	timing := fmt.Sprintf("%s (busy %.1fms, idle %.1fms)",
		mode,
		float64(m.busy.Microseconds())/1000.0,
		float64(m.idle.Microseconds())/1000.0)

	counters := fmt.Sprintf("%d periods, %d frames, %d underruns",
		m.periods, m.frames, m.underruns)

	return fmt.Sprintf("│ Pacing: %-45s│\n│ Moved:  %-45s│\n", timing, counters)
}

// renderControls renders the volume bar
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│ Volume: [%s] %3d%%%-29s│\n", volumeBar, m.volume, muteIcon)
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ ↑/↓:Volume  m:Mute  space:Pause  q:Quit              │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.control.quit()
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.control.setVolume(m.volume)
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.control.setVolume(m.volume)
	case "m":
		m.muted = !m.muted
		m.control.setMuted(m.muted)
	case " ":
		m.paused = !m.paused
		m.control.setPaused(m.paused)
	}

	return m, nil
}

// applyStatus updates model state from a status message. Empty strings
// and zero volume leave the previous value; counters always apply.
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.Title != "" {
		m.title = msg.Title
		m.artist = msg.Artist
		m.album = msg.Album
	}
	if msg.Mode != "" {
		m.mode = msg.Mode
		m.busy = msg.Busy
		m.idle = msg.Idle
	}
	if msg.Periods != 0 || msg.Frames != 0 || msg.Underruns != 0 {
		m.periods = msg.Periods
		m.frames = msg.Frames
		m.underruns = msg.Underruns
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Paused != nil {
		m.paused = *msg.Paused
	}
}

// StatusMsg updates TUI state. Send via Program.Send from the player.
type StatusMsg struct {
	Source     string
	SampleRate int
	Channels   int
	BitDepth   int
	Title      string
	Artist     string
	Album      string
	Mode       string
	Busy       time.Duration
	Idle       time.Duration
	Periods    uint64
	Frames     uint64
	Underruns  uint64
	Volume     int
	Paused     *bool
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
