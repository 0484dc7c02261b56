// Package commands implements the CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/output"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Actions     []string `json:"actions,omitempty"`
}

// CommandCategory groups commands by category.
type CommandCategory struct {
	Name     string        `json:"name"`
	Commands []CommandInfo `json:"commands"`
}

func commandCategories() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Workspace",
			Commands: []CommandInfo{
				{Name: "tui", Category: "workspace", Description: "Launch the ERP workspace (default)"},
				{Name: "tabs", Category: "workspace", Description: "Show the saved workspace session", Actions: []string{"clear"}},
				{Name: "serve", Category: "workspace", Description: "Run the control API over a headless workspace"},
			},
		},
		{
			Name: "Records",
			Commands: []CommandInfo{
				{Name: "list", Category: "records", Description: "List a feature's records"},
				{Name: "features", Category: "records", Description: "List the features the workspace can open", Actions: []string{"menu"}},
			},
		},
		{
			Name: "Auth & Config",
			Commands: []CommandInfo{
				{Name: "login", Category: "auth", Description: "Sign in to the ERP backend"},
				{Name: "logout", Category: "auth", Description: "Remove stored credentials"},
				{Name: "config", Category: "auth", Description: "Show configuration", Actions: []string{"show"}},
			},
		},
		{
			Name: "Additional Commands",
			Commands: []CommandInfo{
				{Name: "commands", Category: "additional", Description: "List all commands"},
				{Name: "completion", Category: "additional", Description: "Generate shell completions", Actions: []string{"bash", "zsh", "fish", "powershell"}},
				{Name: "help", Category: "additional", Description: "Show help"},
				{Name: "version", Category: "additional", Description: "Show version"},
			},
		},
	}
}

// CatalogCommandNames returns all command names from the catalog.
// Used by tests to verify catalog matches registered commands.
func CatalogCommandNames() []string {
	var names []string
	for _, cat := range commandCategories() {
		for _, cmd := range cat.Commands {
			names = append(names, cmd.Name)
		}
	}
	return names
}

// NewCommandsCmd creates the commands listing command.
func NewCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "commands",
		Aliases: []string{"cmds"},
		Short:   "List all available commands",
		Long:    "List all available erpdesk commands organized by category.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			return app.OK(commandCategories(),
				output.WithSummary("All available erpdesk commands"),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "help",
					Cmd:         "erpdesk --help",
					Description: "View help",
				}),
			)
		},
	}
}

// All returns every subcommand of the root command.
func All() []*cobra.Command {
	return []*cobra.Command{
		NewTUICmd(),
		NewListCmd(),
		NewFeaturesCmd(),
		NewTabsCmd(),
		NewServeCmd(),
		NewLoginCmd(),
		NewLogoutCmd(),
		NewConfigCmd(),
		NewCommandsCmd(),
		NewVersionCmd(),
	}
}
