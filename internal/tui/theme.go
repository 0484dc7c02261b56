// Package tui provides terminal user interface components.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
)

// ThemeEnv names the environment variable that points at a colors.toml file.
const ThemeEnv = "ERPDESK_THEME"

// ResolveTheme loads a theme with the following precedence:
//  1. NO_COLOR set: NoColorTheme
//  2. ERPDESK_THEME: a colors.toml at that path
//  3. ~/.config/erpdesk/theme/colors.toml
//  4. DefaultTheme
//
// The theme directory may be a symlink into another theme system.
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}
	if path := ThemePath(); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
	}
	return DefaultTheme()
}

// ThemePath returns the colors.toml path ResolveTheme would read, or ""
// when no home directory can be found.
func ThemePath() string {
	if path := os.Getenv(ThemeEnv); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "erpdesk", "theme", "colors.toml")
}

// NoColorTheme returns a theme with empty colors (honors NO_COLOR).
// Lipgloss treats empty strings as "no color".
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{}
	return Theme{
		Primary:    empty,
		Secondary:  empty,
		Success:    empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Background: empty,
		Foreground: empty,
		Border:     empty,
	}
}

// LoadThemeFromFile parses a colors.toml file and returns a Theme.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path from trusted config
	if err != nil {
		return Theme{}, err
	}
	colors, err := parseColors(data)
	if err != nil {
		return Theme{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mapColorsToTheme(colors), nil
}

// WatchTheme reports on the returned channel whenever the theme file at path
// changes. The directory is watched rather than the file so that editors
// which replace the file atomically keep triggering events. The channel is
// closed when ctx is done or the watcher fails to start.
func WatchTheme(ctx context.Context, path string) <-chan Theme {
	out := make(chan Theme, 1)
	if path == "" {
		close(out)
		return out
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Debug("theme watcher unavailable", "error", err)
		close(out)
		return out
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		slog.Debug("theme watcher unavailable", "path", path, "error", err)
		_ = w.Close()
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				theme, err := LoadThemeFromFile(path)
				if err != nil {
					continue
				}
				select {
				case out <- theme:
				default:
					// A reload is already pending; the newer file wins when it is read.
					<-out
					out <- theme
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Debug("theme watcher error", "error", err)
			}
		}
	}()
	return out
}

// parseColors decodes a colors.toml file, keeping only top-level keys whose
// value is a hex color.
func parseColors(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	result := make(map[string]string, len(raw))
	for key, v := range raw {
		if s, ok := v.(string); ok && isValidHexColor(s) {
			result[key] = s
		}
	}
	return result, nil
}

// isValidHexColor checks for #RGB or #RRGGBB.
func isValidHexColor(s string) bool {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 3 && len(hex) != 6) {
		return false
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// mapColorsToTheme maps terminal-theme color names onto Theme roles.
//
//	accent / color4 → Primary
//	color7          → Secondary
//	color2          → Success
//	color3          → Warning
//	color1          → Error
//	color8 / color0 → Muted, Border
//	background, foreground as named
//
// Terminal themes are dark, so only the Dark variants are overridden.
func mapColorsToTheme(colors map[string]string) Theme {
	t := DefaultTheme()

	set := func(c *lipgloss.AdaptiveColor, keys ...string) {
		for _, k := range keys {
			if v, ok := colors[k]; ok {
				c.Dark = v
				return
			}
		}
	}

	set(&t.Primary, "accent", "color4")
	set(&t.Secondary, "color7")
	set(&t.Success, "color2")
	set(&t.Warning, "color3")
	set(&t.Error, "color1")
	set(&t.Muted, "color8", "color0")
	set(&t.Background, "background")
	set(&t.Foreground, "foreground")
	set(&t.Border, "color8", "color0")
	return t
}
