// Package workspace provides the persistent TUI application for erpdesk.
package workspace

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/live"
)

// Navigation messages

// NavigateMsg requests navigation to a menu path. A registered path opens
// or re-activates its feature tab.
type NavigateMsg struct {
	Path string
}

// NavigateBackMsg requests navigation to the previous path.
type NavigateBackMsg struct{}

// OpenRecordMsg asks for the edit tab of a record.
type OpenRecordMsg struct {
	FeatureID string
	RecordID  string
	Label     string
}

// NewRecordMsg asks for the new-document tab of a feature.
type NewRecordMsg struct {
	FeatureID string
}

// ActivateDataTabMsg switches the visible data tab of a feature.
type ActivateDataTabMsg struct {
	FeatureID string
	TabID     string
}

// CloseDataTabMsg asks to close a data tab, e.g. when a form is discarded.
type CloseDataTabMsg struct {
	FeatureID string
	TabID     string
}

// TabsChangedMsg is broadcast to every mounted view after the workspace
// changed the tab registry.
type TabsChangedMsg struct{}

// Data messages

// RecordSavedMsg reports the result of saving a form. On success the
// workspace closes the data tab, and lists of the feature start over.
type RecordSavedMsg struct {
	FeatureID string
	TabID     string
	Record    api.Record
	Message   string
	Err       error
}

// LiveEventMsg carries a record change pushed by the backend.
type LiveEventMsg struct {
	Event live.Event
}

// ThemeChangedMsg is sent after the theme file changed and styles were
// updated in place.
type ThemeChangedMsg struct{}

// StatusMsg sets the status bar text.
type StatusMsg struct {
	Text    string
	IsError bool
}

// ErrorMsg reports an error to show as a toast.
type ErrorMsg struct {
	Err     error
	Context string
}

// RefreshMsg asks the current view to reload its data.
type RefreshMsg struct{}

// FocusMsg is sent to a view when it becomes visible.
type FocusMsg struct{}

// BlurMsg is sent to a view when it is hidden.
type BlurMsg struct{}

// Navigate returns a command that navigates to path.
func Navigate(path string) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{Path: path} }
}

// SetStatus returns a command that sets the status bar text.
func SetStatus(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return StatusMsg{Text: text, IsError: isError} }
}

// ReportError returns a command that shows err as a toast.
func ReportError(err error, context string) tea.Cmd {
	return func() tea.Msg { return ErrorMsg{Err: err, Context: context} }
}
