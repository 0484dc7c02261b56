package workspace

import (
	"encoding/json"
	"os"
	"reflect"

	"github.com/charmbracelet/bubbles/key"
)

// GlobalKeyMap defines keybindings that work in every context.
type GlobalKeyMap struct {
	Quit         key.Binding
	Help         key.Binding
	Back         key.Binding
	Jump         key.Binding
	Sidebar      key.Binding
	SidebarFocus key.Binding
	NextFeature  key.Binding
	PrevFeature  key.Binding
	NextDataTab  key.Binding
	PrevDataTab  key.Binding
	CloseDataTab key.Binding
	CloseFeature key.Binding
	Refresh      key.Binding
}

// DefaultGlobalKeyMap returns the default global keybindings.
func DefaultGlobalKeyMap() GlobalKeyMap {
	return GlobalKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Jump: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "go to"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("ctrl+b", "m"),
			key.WithHelp("m", "menu"),
		),
		SidebarFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch panel"),
		),
		NextFeature: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next feature"),
		),
		PrevFeature: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev feature"),
		),
		NextDataTab: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "next tab"),
		),
		PrevDataTab: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "prev tab"),
		),
		CloseDataTab: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close tab"),
		),
		CloseFeature: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "close feature"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// ListKeyMap defines keybindings for list navigation.
type ListKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageDown key.Binding
	PageUp   key.Binding
	Open     key.Binding
}

// DefaultListKeyMap returns the default list navigation keybindings.
func DefaultListKeyMap() ListKeyMap {
	return ListKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("j/k", "navigate"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/k", "navigate"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("ctrl+d", "pgdown"),
			key.WithHelp("ctrl+d", "page down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("ctrl+u", "pgup"),
			key.WithHelp("ctrl+u", "page up"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
	}
}

// ShortHelp returns the global key bindings for the status bar.
func (k GlobalKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Sidebar, k.Jump, k.Quit}
}

// FullHelp returns all global key bindings for the help overlay.
func (k GlobalKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Back, k.Quit, k.Help},
		{k.Sidebar, k.SidebarFocus, k.Jump},
		{k.NextFeature, k.PrevFeature, k.CloseFeature},
		{k.NextDataTab, k.PrevDataTab, k.CloseDataTab, k.Refresh},
	}
}

// actionFieldMap maps action names (from keybindings.json) to GlobalKeyMap field names.
var actionFieldMap = map[string]string{
	"quit":          "Quit",
	"help":          "Help",
	"back":          "Back",
	"jump":          "Jump",
	"sidebar":       "Sidebar",
	"sidebar_focus": "SidebarFocus",
	"next_feature":  "NextFeature",
	"prev_feature":  "PrevFeature",
	"next_tab":      "NextDataTab",
	"prev_tab":      "PrevDataTab",
	"close_tab":     "CloseDataTab",
	"close_feature": "CloseFeature",
	"refresh":       "Refresh",
}

// LoadKeyOverrides reads keybinding overrides from a JSON file.
// Returns an empty map (not an error) if the file doesn't exist.
func LoadKeyOverrides(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// ApplyOverrides remaps keybindings in km according to the overrides map.
// Keys are action names (e.g. "close_tab"), values are key strings (e.g. "ctrl+x").
// Unknown actions are silently ignored.
func ApplyOverrides(km *GlobalKeyMap, overrides map[string]string) {
	v := reflect.ValueOf(km).Elem()
	for action, keyStr := range overrides {
		fieldName, ok := actionFieldMap[action]
		if !ok {
			continue
		}
		field := v.FieldByName(fieldName)
		if !field.IsValid() {
			continue
		}
		binding := field.Interface().(key.Binding)
		helpInfo := binding.Help()
		field.Set(reflect.ValueOf(key.NewBinding(
			key.WithKeys(keyStr),
			key.WithHelp(keyStr, helpInfo.Desc),
		)))
	}
}
