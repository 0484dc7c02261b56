package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/store"
)

// tabInfo is one open document of a saved session.
type tabInfo struct {
	ID      string `json:"id"`
	Feature string `json:"feature"`
	Title   string `json:"title"`
	Active  bool   `json:"active"`
	Dirty   bool   `json:"dirty"`
}

// NewTabsCmd creates the tabs command.
func NewTabsCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "Show the saved workspace session",
		Long: `Show the feature and data tabs the workspace will reopen on next start
for the current backend. Use --clear to forget them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(app)
			if err != nil {
				return err
			}
			defer st.Close()
			key := sessionKey(app)

			if clear {
				if err := st.Delete(key); err != nil {
					return fmt.Errorf("clearing session: %w", err)
				}
				return app.OK(map[string]string{"status": "cleared", "backend": key},
					output.WithSummary("Saved session cleared"))
			}

			state, savedAt, err := store.Load[api.Record](st, key)
			if errors.Is(err, store.ErrNoSession) {
				return app.OK([]tabInfo{},
					output.WithSummary("No saved session for "+key),
					output.WithBreadcrumbs(output.Breadcrumb{Action: "open", Cmd: "erpdesk tui", Description: "Open the workspace"}),
				)
			}
			if err != nil {
				return err
			}

			var rows []tabInfo
			dirty := 0
			for _, f := range state.Features {
				for _, t := range f.DataTabs {
					rows = append(rows, tabInfo{
						ID:      t.ID,
						Feature: f.Title,
						Title:   t.Title,
						Active:  f.ID == state.ActiveFeatureID && t.ID == f.ActiveDataTabID,
						Dirty:   t.Dirty,
					})
					if t.Dirty {
						dirty++
					}
				}
			}
			if rows == nil {
				rows = []tabInfo{}
			}

			summary := fmt.Sprintf("%d features, %d tabs", len(state.Features), len(rows))
			if dirty > 0 {
				summary += fmt.Sprintf(", %d with unsaved drafts", dirty)
			}
			return app.OK(rows,
				output.WithSummary(summary),
				output.WithColumns(
					output.Column{Key: "feature", Header: "Feature"},
					output.Column{Key: "title", Header: "Tab"},
					output.Column{Key: "active", Header: "Active"},
					output.Column{Key: "dirty", Header: "Unsaved"},
				),
				output.WithMeta("saved_at", savedAt.Format(time.RFC3339)),
				output.WithContext("backend", key),
				output.WithBreadcrumbs(
					output.Breadcrumb{Action: "resume", Cmd: "erpdesk tui", Description: "Reopen these tabs"},
					output.Breadcrumb{Action: "clear", Cmd: "erpdesk tabs --clear", Description: "Forget them"},
				),
			)
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Forget the saved session")
	return cmd
}
