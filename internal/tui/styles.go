package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the TUI.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
}

// DefaultTheme returns the default erpdesk palette.
func DefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.AdaptiveColor{Light: "#0f766e", Dark: "#5eead4"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#57534e", Dark: "#a8a29e"},
		Success:    lipgloss.AdaptiveColor{Light: "#15803d", Dark: "#86efac"},
		Warning:    lipgloss.AdaptiveColor{Light: "#b45309", Dark: "#fcd34d"},
		Error:      lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#fca5a5"},
		Muted:      lipgloss.AdaptiveColor{Light: "#78716c", Dark: "#78716c"},
		Background: lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1c1917"},
		Foreground: lipgloss.AdaptiveColor{Light: "#1c1917", Dark: "#e7e5e4"},
		Border:     lipgloss.AdaptiveColor{Light: "#d6d3d1", Dark: "#44403c"},
	}
}

// Styles holds the styled components for the TUI.
type Styles struct {
	theme Theme

	Title   lipgloss.Style
	Heading lipgloss.Style
	Body    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Tab bars
	FeatureTab       lipgloss.Style
	FeatureTabActive lipgloss.Style
	DataTab          lipgloss.Style
	DataTabActive    lipgloss.Style
	DirtyMark        lipgloss.Style

	// Tables
	TableHeader lipgloss.Style
	Selected    lipgloss.Style
	Cursor      lipgloss.Style

	// Sidebar
	SidebarSection lipgloss.Style
	SidebarItem    lipgloss.Style
	SidebarActive  lipgloss.Style

	Box   lipgloss.Style
	Field lipgloss.Style
	Label lipgloss.Style
}

// NewStyles creates Styles with the default theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(DefaultTheme())
}

// NewStylesWithTheme creates Styles with a custom theme.
func NewStylesWithTheme(theme Theme) *Styles {
	s := &Styles{}
	s.apply(theme)
	return s
}

// UpdateTheme restyles in place so holders of the pointer pick up the change.
func (s *Styles) UpdateTheme(theme Theme) {
	s.apply(theme)
}

func (s *Styles) apply(theme Theme) {
	s.theme = theme

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	s.Heading = lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground)
	s.Body = lipgloss.NewStyle().Foreground(theme.Foreground)
	s.Muted = lipgloss.NewStyle().Foreground(theme.Muted)
	s.Bold = lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground)
	s.Success = lipgloss.NewStyle().Foreground(theme.Success)
	s.Warning = lipgloss.NewStyle().Foreground(theme.Warning)
	s.Error = lipgloss.NewStyle().Foreground(theme.Error)

	s.FeatureTab = lipgloss.NewStyle().Foreground(theme.Secondary).Padding(0, 1)
	s.FeatureTabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Background).
		Background(theme.Primary).
		Padding(0, 1)
	s.DataTab = lipgloss.NewStyle().Foreground(theme.Muted).Padding(0, 1)
	s.DataTabActive = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Underline(true).
		Padding(0, 1)
	s.DirtyMark = lipgloss.NewStyle().Foreground(theme.Warning).Bold(true)

	s.TableHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Foreground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(theme.Border)
	s.Selected = lipgloss.NewStyle().Background(theme.Border).Foreground(theme.Foreground)
	s.Cursor = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)

	s.SidebarSection = lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary)
	s.SidebarItem = lipgloss.NewStyle().Foreground(theme.Foreground).PaddingLeft(2)
	s.SidebarActive = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).PaddingLeft(2)

	s.Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)
	s.Field = lipgloss.NewStyle().Foreground(theme.Foreground)
	s.Label = lipgloss.NewStyle().Foreground(theme.Muted).Width(18)
}

// Theme returns the current theme.
func (s *Styles) Theme() Theme {
	return s.theme
}

// RenderStatus renders a footer message marked as success or failure.
func (s *Styles) RenderStatus(ok bool, message string) string {
	if ok {
		return s.Success.Bold(true).Render("✓ " + message)
	}
	return s.Error.Bold(true).Render("✗ " + message)
}
