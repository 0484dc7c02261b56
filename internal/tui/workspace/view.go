package workspace

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View is the interface that all workspace views must implement.
type View interface {
	tea.Model

	// Title returns the header segment for this view.
	Title() string

	// ShortHelp returns key bindings shown in the status bar.
	ShortHelp() []key.Binding

	// FullHelp returns all key bindings for the help overlay.
	FullHelp() [][]key.Binding

	// SetSize updates the view's available dimensions.
	SetSize(width, height int)
}

// InputCapturer is an optional interface views can implement to signal
// they are in text input mode. When InputActive returns true, the
// workspace skips global single-key bindings (q, r, [, ], 1-9)
// and forwards all keys directly to the view.
type InputCapturer interface {
	InputActive() bool
}

// ModalActive is an optional interface views can implement to signal
// they have an active modal state. When IsModal returns true, Esc is
// forwarded to the view instead of triggering back navigation.
type ModalActive interface {
	IsModal() bool
}

// ViewFactory builds the view for a path: a feature view for registered
// paths and routed content for everything else. Set by the command that
// creates the workspace.
type ViewFactory func(path string, session *Session) View
