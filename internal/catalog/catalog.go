// Package catalog describes the ERP's navigation menu and the features
// that have a dedicated list view: which REST endpoint backs each one, the
// columns it shows and the fields its form edits.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/erpdesk/erpdesk/internal/output"
)

//go:embed default.yaml
var defaultYAML []byte

// Column kinds.
const (
	KindText     = "text"
	KindDate     = "date"
	KindCurrency = "currency"
	KindNumber   = "number"
	KindStatus   = "status"
)

// MenuEntry is a menu section or item. Sections have Items and usually no
// Href; top-level destinations such as Dashboard have an Href and no Items.
type MenuEntry struct {
	Title string      `yaml:"title"`
	Href  string      `yaml:"href,omitempty"`
	Icon  string      `yaml:"icon,omitempty"`
	Items []MenuEntry `yaml:"items,omitempty"`
}

// Column is one list column.
type Column struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	Kind  string `yaml:"kind,omitempty"`
}

// Field is one form input.
type Field struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Kind     string `yaml:"kind,omitempty"`
	Required bool   `yaml:"required,omitempty"`
}

// Feature is a menu destination with a registered list view.
type Feature struct {
	Href     string   `yaml:"href"`
	Title    string   `yaml:"title,omitempty"`
	Icon     string   `yaml:"icon,omitempty"`
	Endpoint string   `yaml:"endpoint"`
	Table    string   `yaml:"table,omitempty"`
	Label    string   `yaml:"label,omitempty"`
	Statuses []string `yaml:"statuses,omitempty"`
	Columns  []Column `yaml:"columns"`
	Fields   []Field  `yaml:"fields,omitempty"`
}

// Slug returns the last path segment of the href, e.g. "faktur".
func (f Feature) Slug() string {
	return path.Base(f.Href)
}

// RecordLabel returns the value of the feature's label column in rec.
func (f Feature) RecordLabel(rec map[string]any) string {
	key := f.Label
	if key == "" {
		key = "name"
	}
	if s, ok := rec[key].(string); ok && s != "" {
		return s
	}
	if id, ok := rec["id"]; ok && id != nil {
		return fmt.Sprint(id)
	}
	return ""
}

// Catalog is a parsed menu and feature registry.
type Catalog struct {
	Menu     []MenuEntry `yaml:"menu"`
	Features []Feature   `yaml:"features"`

	byHref map[string]int
	titles map[string]string
	icons  map[string]string
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file, falling back to the built-in catalog when
// file is empty.
func Load(file string) (*Catalog, error) {
	if file == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.byHref = make(map[string]int, len(c.Features))
	c.titles = make(map[string]string)
	c.icons = make(map[string]string)

	var walk func(entries []MenuEntry, icon string)
	walk = func(entries []MenuEntry, icon string) {
		for _, e := range entries {
			i := e.Icon
			if i == "" {
				i = icon
			}
			if e.Href != "" {
				c.titles[e.Href] = e.Title
				c.icons[e.Href] = i
			}
			walk(e.Items, i)
		}
	}
	walk(c.Menu, "")

	for i := range c.Features {
		f := &c.Features[i]
		if f.Href == "" || !strings.HasPrefix(f.Href, "/") {
			return fmt.Errorf("feature %d: href must be an absolute path", i)
		}
		if f.Endpoint == "" {
			return fmt.Errorf("feature %s: endpoint is required", f.Href)
		}
		if len(f.Columns) == 0 {
			return fmt.Errorf("feature %s: at least one column is required", f.Href)
		}
		if _, dup := c.byHref[f.Href]; dup {
			return fmt.Errorf("feature %s: declared twice", f.Href)
		}
		for j := range f.Columns {
			if f.Columns[j].Kind == "" {
				f.Columns[j].Kind = KindText
			}
		}
		for j := range f.Fields {
			if f.Fields[j].Kind == "" {
				f.Fields[j].Kind = KindText
			}
		}
		if f.Title == "" {
			f.Title = c.titles[f.Href]
		}
		if f.Title == "" {
			f.Title = f.Slug()
		}
		if f.Icon == "" {
			f.Icon = c.icons[f.Href]
		}
		c.titles[f.Href] = f.Title
		c.byHref[f.Href] = i
	}
	return nil
}

// IsRegistered reports whether href has a dedicated list view.
func (c *Catalog) IsRegistered(href string) bool {
	_, ok := c.byHref[href]
	return ok
}

// Feature returns the registered feature for href.
func (c *Catalog) Feature(href string) (Feature, bool) {
	i, ok := c.byHref[href]
	if !ok {
		return Feature{}, false
	}
	return c.Features[i], true
}

// Title returns the menu title for href, or the href itself when the menu
// does not list it.
func (c *Catalog) Title(href string) string {
	if t, ok := c.titles[href]; ok && t != "" {
		return t
	}
	return href
}

// Icon returns the glyph shown next to href in tab bars.
func (c *Catalog) Icon(href string) string {
	return c.icons[href]
}

// Destinations returns every menu href in menu order.
func (c *Catalog) Destinations() []string {
	var out []string
	var walk func([]MenuEntry)
	walk = func(entries []MenuEntry) {
		for _, e := range entries {
			if e.Href != "" {
				out = append(out, e.Href)
			}
			walk(e.Items)
		}
	}
	walk(c.Menu)
	return out
}

// Resolve finds a registered feature by href, slug, endpoint or title
// (case-insensitive), as typed on the command line.
func (c *Catalog) Resolve(query string) (Feature, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Feature{}, output.ErrUsage("Feature name required")
	}
	if f, ok := c.Feature(q); ok {
		return f, nil
	}

	lower := strings.ToLower(strings.Trim(q, "/"))
	var matches []Feature
	for _, f := range c.Features {
		if strings.ToLower(f.Slug()) == lower ||
			strings.ToLower(strings.Trim(f.Endpoint, "/")) == lower ||
			strings.EqualFold(f.Title, q) {
			return f, nil
		}
		if strings.Contains(strings.ToLower(f.Title), lower) || strings.Contains(f.Href, lower) {
			matches = append(matches, f)
		}
	}

	switch len(matches) {
	case 0:
		return Feature{}, output.ErrNotFoundHint("Feature", q, "Run: erpdesk features")
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Slug()
		}
		return Feature{}, output.ErrAmbiguous("feature", names)
	}
}
