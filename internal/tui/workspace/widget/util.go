package widget

import "github.com/charmbracelet/x/ansi"

// Truncate cuts s to maxWidth cells, ending in "…" when anything was cut.
// Escape sequences in s are preserved.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxWidth, "…")
}
