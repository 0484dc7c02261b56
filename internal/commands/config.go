package commands

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/config"
	"github.com/erpdesk/erpdesk/internal/output"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		Long: `Show erpdesk configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > local > repo > global > system > defaults

Config locations:
  - System: /etc/erpdesk/config.json
  - Global: ~/.config/erpdesk/config.json
  - Repo:   <git-root>/.erpdesk/config.json
  - Local:  .erpdesk/config.json

Repo and local files cannot set base_url, ws_url or dsn. A .env file in the
working directory is read before ERPDESK_* variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	})

	return cmd
}

func runConfigShow(cmd *cobra.Command) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	return app.OK(effectiveConfig(app.Config),
		output.WithSummary("Effective configuration"),
		output.WithContext("config_dir", config.GlobalConfigDir()),
		output.WithBreadcrumbs(output.Breadcrumb{
			Action:      "edit",
			Cmd:         "$EDITOR " + config.GlobalConfigDir() + "/config.json",
			Description: "Edit global config",
		}),
	)
}

// effectiveConfig lists every set key with its value and where it came from.
func effectiveConfig(cfg *config.Config) map[string]any {
	keys := []struct {
		key     string
		value   string
		include bool
	}{
		{"base_url", cfg.BaseURL, cfg.BaseURL != ""},
		{"ws_url", cfg.WSURL, cfg.WSURL != ""},
		{"dsn", redactDSN(cfg.DSN), cfg.DSN != ""},
		{"profile", cfg.ActiveProfile, cfg.ActiveProfile != ""},
		{"cache_dir", cfg.CacheDir, cfg.CacheDir != ""},
		{"log_file", cfg.LogFile, cfg.LogFile != ""},
		{"catalog_file", cfg.CatalogFile, cfg.CatalogFile != ""},
		{"session_restore", strconv.FormatBool(cfg.SessionRestore), true},
		{"format", cfg.Format, cfg.Format != ""},
		{"page_limit", strconv.Itoa(cfg.PageLimit), true},
		{"listen_addr", cfg.ListenAddr, cfg.ListenAddr != ""},
		{"verbose", fmt.Sprintf("%d", derefInt(cfg.Verbose)), cfg.Verbose != nil},
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if !k.include {
			continue
		}
		source := cfg.Sources[k.key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		out[k.key] = map[string]string{"value": k.value, "source": source}
	}
	return out
}

// redactDSN hides the password of a mysql:// DSN.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

