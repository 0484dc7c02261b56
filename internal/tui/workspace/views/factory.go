// Package views holds the concrete screens of the workspace.
package views

import "github.com/erpdesk/erpdesk/internal/tui/workspace"

// NewFactory returns the factory the workspace builds its views with:
// feature views for registered paths, the dashboard for the home path and
// a placeholder for everything else.
func NewFactory() workspace.ViewFactory {
	return func(path string, session *workspace.Session) workspace.View {
		if f, ok := session.Catalog().Feature(path); ok {
			return NewFeature(session, f)
		}
		if path == workspace.HomePath {
			return NewHome(session)
		}
		return NewPlaceholder(session, path)
	}
}
