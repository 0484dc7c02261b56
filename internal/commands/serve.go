package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erpdesk/erpdesk/internal/appctx"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/server"
	"github.com/erpdesk/erpdesk/internal/session"
	"github.com/erpdesk/erpdesk/internal/source"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var addr string
	var noLive bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API over a headless workspace",
		Long: `Run an HTTP API over a headless workspace session, for scripts and
agents: open and close feature and data tabs, edit and save drafts, navigate,
page through lists, and stream registry changes from /api/v1/events.

The OpenAPI document is served at /openapi.json and interactive docs at /docs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.Config.ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			src, release, err := openSource(ctx, app)
			if err != nil {
				return err
			}
			defer release()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}

			var sub *live.Subscriber
			if !noLive {
				if sub, err = liveFeed(app); err != nil {
					slog.Warn("live updates disabled", "error", err)
				}
			}

			slog.Info("control API listening", "addr", ln.Addr().String(), "source", src.Name())
			return serve(ctx, app, src, ln, sub)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config listen_addr)")
	cmd.Flags().BoolVar(&noLive, "no-live", false, "Do not follow the backend's record feed")
	return cmd
}

// serve runs the control API on ln, and the live feed when sub is set,
// until ctx is done or either fails.
func serve(ctx context.Context, app *appctx.App, src source.Source, ln net.Listener, sub *live.Subscriber) error {
	sess := session.New(app.Catalog, src, session.NewRegistry(app.Catalog))
	defer sess.Close()
	srv := &http.Server{
		Handler:           server.New(sess),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control API: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sub != nil {
		g.Go(func() error {
			err := sub.Run(gctx, func(evt live.Event) {
				if reset := sess.ApplyLive(evt); len(reset) > 0 {
					slog.Debug("live event reset lists", "resource", evt.Resource, "features", reset)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err := g.Wait()
	slog.Info("control API stopped")
	return err
}
