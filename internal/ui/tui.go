// ABOUTME: TUI entry point and control channel plumbing
// ABOUTME: Carries volume, mute, and pause events from keys to the player
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Control carries user input events out of the TUI. The player owns the
// receiving side; sends never block so a slow consumer cannot stall rendering.
type Control struct {
	Volume chan int
	Muted  chan bool
	Paused chan bool
	Quit   chan struct{}
}

// NewControl creates a control channel set
func NewControl() *Control {
	return &Control{
		Volume: make(chan int, 8),
		Muted:  make(chan bool, 8),
		Paused: make(chan bool, 8),
		Quit:   make(chan struct{}, 1),
	}
}

func (c *Control) setVolume(volume int) {
	if c == nil {
		return
	}
	select {
	case c.Volume <- volume:
	default:
	}
}

func (c *Control) setMuted(muted bool) {
	if c == nil {
		return
	}
	select {
	case c.Muted <- muted:
	default:
	}
}

func (c *Control) setPaused(paused bool) {
	if c == nil {
		return
	}
	select {
	case c.Paused <- paused:
	default:
	}
}

func (c *Control) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates the initial TUI model
func NewModel(control *Control) Model {
	return Model{
		mode:      "starting",
		volume:    100,
		startTime: time.Now(),
		control:   control,
	}
}

// NewProgram wraps the model in a bubbletea program. The caller keeps the
// handle to push StatusMsg updates via Send.
func NewProgram(model Model) *tea.Program {
	return tea.NewProgram(model, tea.WithAltScreen())
}

// Run starts the TUI and blocks until the user quits
func Run(model Model) error {
	_, err := NewProgram(model).Run()
	return err
}
