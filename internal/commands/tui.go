package commands

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/config"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/session"
	"github.com/erpdesk/erpdesk/internal/store"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui/recents"
	"github.com/erpdesk/erpdesk/internal/tui/workspace"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/views"
)

// NewTUICmd creates the tui command for the persistent workspace.
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the ERP workspace",
		Long: `Launch a full-screen terminal workspace over the ERP dashboard: the
menu in a sidebar, opened features as tabs, and list and form documents as
data tabs under each feature. Open tabs and unsaved drafts are restored on
next start unless --fresh is given.`,
		Args: cobra.NoArgs,
		RunE: RunTUI,
	}
}

// RunTUI runs the workspace. It is also the root command's default action.
func RunTUI(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if !app.IsInteractive() {
		return output.ErrUsageHint("The workspace needs a terminal", "Use \"erpdesk list <feature>\" for scripted output")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src, release, err := openSource(ctx, app)
	if err != nil {
		return err
	}
	defer release()

	reg := session.NewRegistry(app.Catalog)
	if app.Config.SessionRestore {
		st, err := openStore(app)
		if err != nil {
			// Another instance holds the session; run without one.
			slog.Warn("session restore unavailable", "error", err)
		} else {
			defer st.Close()
			if !app.Flags.Fresh {
				restoreSession(st, sessionKey(app), reg)
			}
			p := store.Persist(st, sessionKey(app), reg, store.DefaultPersistDelay)
			defer func() {
				if err := p.Flush(); err != nil {
					slog.Warn("saving session failed", "error", err)
				}
			}()
		}
	}

	sess := workspace.NewSession(app, reg, src)
	defer sess.Shutdown()
	sess.SetRecents(recents.NewStore(app.Config.CacheDir), sessionKey(app))
	if broker := startLiveFeed(ctx, app); broker != nil {
		sess.SetLive(broker)
	}

	model := workspace.New(sess, views.NewFactory())
	keys := workspace.DefaultGlobalKeyMap()
	if overrides, err := workspace.LoadKeyOverrides(filepath.Join(config.GlobalConfigDir(), "keys.json")); err != nil {
		slog.Warn("ignoring key overrides", "error", err)
	} else if len(overrides) > 0 {
		workspace.ApplyOverrides(&keys, overrides)
	}
	model.SetKeys(keys)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// restoreSession loads the saved tabs of key into reg. Anything unreadable
// starts an empty session.
func restoreSession(st *store.Store, key string, reg *tabs.Registry[api.Record]) {
	state, savedAt, err := store.Load[api.Record](st, key)
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			slog.Warn("restoring session failed", "error", err)
		}
		return
	}
	reg.Restore(state)
	slog.Debug("session restored", "features", len(state.Features), "saved_at", savedAt)
}
