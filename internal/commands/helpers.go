package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/appctx"
	"github.com/erpdesk/erpdesk/internal/live"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/sqlsource"
	"github.com/erpdesk/erpdesk/internal/store"
)

// appFrom returns the app PersistentPreRunE stored on the command.
func appFrom(cmd *cobra.Command) (*appctx.App, error) {
	app := appctx.FromContext(cmd.Context())
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

// openSource returns where records come from: MySQL when a DSN is
// configured, the REST API otherwise. The returned func releases it.
func openSource(ctx context.Context, app *appctx.App) (source.Source, func(), error) {
	if app.Config.DSN == "" {
		return source.NewAPI(app.API, app.Config.PageLimit), func() {}, nil
	}
	db, err := sqlsource.Open(ctx, app.Config.DSN)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("using database source")
	return source.NewSQL(db, app.Config.PageLimit), func() {
		if err := db.Close(); err != nil {
			slog.Debug("closing database failed", "error", err)
		}
	}, nil
}

// sessionKey identifies the saved session of the current backend.
func sessionKey(app *appctx.App) string {
	if app.Config.DSN != "" {
		return "mysql:" + app.Auth.Origin()
	}
	return app.Auth.Origin()
}

// openStore opens the session database under the cache dir.
func openStore(app *appctx.App) (*store.Store, error) {
	return store.Open(store.DefaultPath(app.Config.CacheDir))
}

// liveFeed returns a subscriber for the backend's record feed, or nil when
// records come from the database and there is no backend to follow.
func liveFeed(app *appctx.App) (*live.Subscriber, error) {
	if app.Config.DSN != "" {
		return nil, nil
	}
	url, err := live.FeedURL(app.Config.BaseURL, app.Config.WSURL)
	if err != nil {
		return nil, err
	}
	return live.NewSubscriber(url, app.Auth), nil
}

// startLiveFeed follows the feed in the background until ctx is done and
// republishes each event on the returned broker. It returns nil when there
// is no feed.
func startLiveFeed(ctx context.Context, app *appctx.App) *live.Broker[live.Event] {
	sub, err := liveFeed(app)
	if err != nil {
		slog.Warn("live updates disabled", "error", err)
		return nil
	}
	if sub == nil {
		return nil
	}
	broker := live.NewBroker[live.Event]()
	go func() {
		_ = sub.Run(ctx, broker.Publish)
	}()
	return broker
}
