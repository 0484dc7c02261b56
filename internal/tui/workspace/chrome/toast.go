package chrome

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/tui"
)

// ToastDuration is how long a toast remains visible.
const ToastDuration = 3 * time.Second

// toastTickMsg dismisses the toast shown at generation.
type toastTickMsg struct {
	generation uint64
}

// Toast renders ephemeral confirmation and error messages.
type Toast struct {
	styles     *tui.Styles
	width      int
	message    string
	isError    bool
	visible    bool
	generation uint64
}

// NewToast creates a new toast component.
func NewToast(styles *tui.Styles) Toast {
	return Toast{styles: styles}
}

// Show displays a toast message. A newer toast outlives the tick scheduled
// for an older one.
func (t *Toast) Show(message string, isError bool) tea.Cmd {
	t.generation++
	t.message = message
	t.isError = isError
	t.visible = true
	gen := t.generation
	return tea.Tick(ToastDuration, func(time.Time) tea.Msg {
		return toastTickMsg{generation: gen}
	})
}

// SetWidth sets the available width.
func (t *Toast) SetWidth(w int) {
	t.width = w
}

// Visible returns whether the toast is currently displayed.
func (t *Toast) Visible() bool {
	return t.visible
}

// Update handles toast tick messages.
func (t *Toast) Update(msg tea.Msg) tea.Cmd {
	if tick, ok := msg.(toastTickMsg); ok && tick.generation == t.generation {
		t.visible = false
		t.message = ""
	}
	return nil
}

// View renders the toast.
func (t Toast) View() string {
	if !t.visible || t.message == "" {
		return ""
	}

	theme := t.styles.Theme()
	fg := theme.Success
	if t.isError {
		fg = theme.Error
	}

	return lipgloss.NewStyle().
		Foreground(fg).
		Align(lipgloss.Center).
		Width(t.width).
		MaxWidth(t.width).
		Render(t.message)
}
