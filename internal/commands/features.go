package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/output"
)

// featureInfo is one row of "erpdesk features".
type featureInfo struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Section  string   `json:"section,omitempty"`
	Endpoint string   `json:"endpoint"`
	Statuses []string `json:"statuses,omitempty"`
	Editable bool     `json:"editable"`
}

// menuInfo is one menu destination of "erpdesk features --menu".
type menuInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Section    string `json:"section,omitempty"`
	Registered bool   `json:"registered"`
}

// NewFeaturesCmd creates the features command.
func NewFeaturesCmd() *cobra.Command {
	var menu bool

	cmd := &cobra.Command{
		Use:   "features",
		Short: "List the features the workspace can open",
		Long: `List the registered features: menu destinations with a list view in
the workspace and in "erpdesk list". With --menu, list every menu destination
instead, including those only the web dashboard provides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			sections := sectionsByHref(app.Catalog.Menu)

			if menu {
				dests := app.Catalog.Destinations()
				out := make([]menuInfo, len(dests))
				registered := 0
				for i, href := range dests {
					out[i] = menuInfo{
						ID:         href,
						Title:      app.Catalog.Title(href),
						Section:    sections[href],
						Registered: app.Catalog.IsRegistered(href),
					}
					if out[i].Registered {
						registered++
					}
				}
				return app.OK(out,
					output.WithSummary(fmt.Sprintf("%d menu destinations, %d open in the workspace", len(out), registered)),
					output.WithColumns(
						output.Column{Key: "section", Header: "Section"},
						output.Column{Key: "title", Header: "Menu"},
						output.Column{Key: "id", Header: "Path"},
						output.Column{Key: "registered", Header: "Workspace"},
					),
				)
			}

			out := make([]featureInfo, len(app.Catalog.Features))
			for i, f := range app.Catalog.Features {
				out[i] = featureInfo{
					ID:       f.Href,
					Slug:     f.Slug(),
					Title:    f.Title,
					Section:  sections[f.Href],
					Endpoint: f.Endpoint,
					Statuses: f.Statuses,
					Editable: len(f.Fields) > 0,
				}
			}
			return app.OK(out,
				output.WithSummary(fmt.Sprintf("%d features", len(out))),
				output.WithColumns(
					output.Column{Key: "slug", Header: "Slug"},
					output.Column{Key: "title", Header: "Title"},
					output.Column{Key: "section", Header: "Section"},
					output.Column{Key: "endpoint", Header: "Endpoint"},
				),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "list",
					Cmd:         "erpdesk list <slug>",
					Description: "List a feature's records",
				}),
			)
		},
	}

	cmd.Flags().BoolVar(&menu, "menu", false, "List every menu destination")
	return cmd
}

// sectionsByHref maps each destination to the title of its menu section.
func sectionsByHref(menu []catalog.MenuEntry) map[string]string {
	out := map[string]string{}
	var walk func(entries []catalog.MenuEntry, trail []string)
	walk = func(entries []catalog.MenuEntry, trail []string) {
		for _, e := range entries {
			if e.Href != "" && len(trail) > 0 {
				out[e.Href] = strings.Join(trail, " › ")
			}
			if len(e.Items) > 0 {
				walk(e.Items, append(trail[:len(trail):len(trail)], e.Title))
			}
		}
	}
	walk(menu, nil)
	return out
}
