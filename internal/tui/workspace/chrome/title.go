package chrome

import tea "github.com/charmbracelet/bubbletea"

// SetTerminalTitle returns a Cmd that sets the terminal window/tab title.
// An empty view title leaves just the program name.
func SetTerminalTitle(viewTitle string) tea.Cmd {
	if viewTitle == "" {
		return tea.SetWindowTitle("erpdesk")
	}
	return tea.SetWindowTitle("erpdesk - " + viewTitle)
}
