package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/erpdesk/erpdesk/internal/tui/empty"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
)

// Placeholder is shown for menu destinations without a terminal view.
type Placeholder struct {
	session *workspace.Session
	path    string
	msg     empty.Message
	width   int
	height  int
}

// NewPlaceholder creates the placeholder for path.
func NewPlaceholder(session *workspace.Session, path string) *Placeholder {
	return &Placeholder{
		session: session,
		path:    path,
		msg:     empty.NotAvailable(session.Catalog().Title(path)),
	}
}

func (v *Placeholder) Title() string                       { return v.msg.Title }
func (v *Placeholder) ShortHelp() []key.Binding            { return nil }
func (v *Placeholder) FullHelp() [][]key.Binding           { return nil }
func (v *Placeholder) SetSize(w, h int)                    { v.width = w; v.height = h }
func (v *Placeholder) Init() tea.Cmd                       { return nil }
func (v *Placeholder) Update(tea.Msg) (tea.Model, tea.Cmd) { return v, nil }

func (v *Placeholder) View() string {
	styles := v.session.Styles()
	lines := []string{styles.Heading.Render(v.msg.Title), styles.Body.Render(v.msg.Body), ""}
	for _, h := range v.msg.Hints {
		lines = append(lines, styles.Muted.Render(h))
	}
	lines = append(lines, "", styles.Muted.Render(v.path))
	style := lipgloss.NewStyle().
		Width(v.width).
		Height(v.height).
		Align(lipgloss.Center, lipgloss.Center)
	return style.Render(strings.Join(lines, "\n"))
}
