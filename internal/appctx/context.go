// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/auth"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/config"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/resilience"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// DebugEnv raises verbosity like -v. "1", "2" or "true".
const DebugEnv = "ERPDESK_DEBUG"

// App holds the shared application context for all commands.
type App struct {
	Config  *config.Config
	Auth    *auth.Manager
	API     *api.Client
	Gate    *resilience.Gate
	Catalog *catalog.Catalog
	Output  *output.Writer

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON    bool
	Quiet   bool
	MD      bool // Literal Markdown syntax output
	Styled  bool // Force ANSI styled output (even when piped)
	IDsOnly bool
	Count   bool
	JQ      string

	// Context flags
	BaseURL string
	Profile string
	DSN     string

	// Behavior flags
	Verbose  int // stacks with -v -v or -vv
	CacheDir string
	Fresh    bool // skip session restore
}

// NewApp creates a new App with the given configuration. The catalog comes
// from cfg.CatalogFile when set, otherwise the embedded default.
func NewApp(cfg *config.Config) (*App, error) {
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		cat = loaded
	}

	authMgr := auth.NewManager(cfg)
	gate := resilience.NewGate(
		resilience.NewStore(filepath.Join(cfg.CacheDir, "resilience")),
		authMgr.Origin(),
		resilience.DefaultConfig(),
	)

	return &App{
		Config:  cfg,
		Auth:    authMgr,
		API:     api.NewClient(cfg, authMgr, api.WithGate(gate)),
		Gate:    gate,
		Catalog: cat,
		Output: output.New(output.Options{
			Format: formatFromConfig(cfg.Format),
			Writer: os.Stdout,
		}),
	}, nil
}

func formatFromConfig(s string) output.Format {
	switch s {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	case "styled":
		return output.FormatStyled
	case "quiet":
		return output.FormatQuiet
	}
	return output.FormatAuto
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	format := a.Output.Format()
	// Order matters: specific modes first
	switch {
	case a.Flags.IDsOnly:
		format = output.FormatIDs
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.Styled:
		format = output.FormatStyled
	case a.Flags.MD:
		format = output.FormatMarkdown
	}
	a.Output = output.New(output.Options{
		Format:  format,
		Writer:  os.Stdout,
		JQ:      a.Flags.JQ,
		Verbose: a.VerboseLevel() > 0,
	})
}

// VerboseLevel combines -v flags with ERPDESK_DEBUG and the config file.
func (a *App) VerboseLevel() int {
	level := a.Flags.Verbose
	if a.Config != nil && a.Config.Verbose != nil && *a.Config.Verbose > level {
		level = *a.Config.Verbose
	}
	if debugEnv := os.Getenv(DebugEnv); debugEnv != "" {
		if n, err := strconv.Atoi(debugEnv); err == nil {
			level = max(level, n)
		} else if debugEnv == "true" {
			level = 2
		}
	}
	return level
}

// LogLevel is the slog level for the current verbosity.
func (a *App) LogLevel() slog.Level {
	if a.VerboseLevel() > 0 {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// OK outputs a success response.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	return a.Output.OK(data, opts...)
}

// Err outputs an error response.
func (a *App) Err(err error) error {
	return a.Output.Err(err)
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	// Not interactive if any non-interactive output mode is set
	if a.Flags.JSON || a.Flags.Quiet || a.Flags.IDsOnly || a.Flags.Count || a.Flags.JQ != "" {
		return false
	}

	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
