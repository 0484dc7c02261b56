package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/appctx"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var (
		all    bool
		page   int
		search string
		status string
	)

	cmd := &cobra.Command{
		Use:   "list <feature>",
		Short: "List a feature's records",
		Long: `List the records behind a menu feature, one page at a time.

The feature may be given by slug (faktur), title (Pesanan Penjualan), menu
path (/dashboard/sales/faktur) or API endpoint. Run "erpdesk features" to see
them all.`,
		Example: `  erpdesk list faktur
  erpdesk list faktur --status UNPAID --all --json
  erpdesk list pelanggan --search kopi --ids-only
  erpdesk list faktur --all --jq '.data | map(.total) | add'`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeFeatures,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			f, err := app.Catalog.Resolve(args[0])
			if err != nil {
				return err
			}
			if status != "" && len(f.Statuses) > 0 && !slices.Contains(f.Statuses, strings.ToUpper(status)) {
				return output.ErrUsageHint(
					fmt.Sprintf("Unknown status %q for %s", status, f.Title),
					"Use one of: "+strings.Join(f.Statuses, ", "),
				)
			}
			if page < 1 {
				return output.ErrUsage("--page must be 1 or more")
			}

			src, release, err := openSource(cmd.Context(), app)
			if err != nil {
				return err
			}
			defer release()

			filter := source.Filter{Search: strings.TrimSpace(search), Status: strings.ToUpper(status)}
			st, err := fetchRecords(cmd, src, f, filter, page, all)
			if err != nil {
				return err
			}
			return app.OK(st.Items, listResponse(f, src.Name(), filter, st, all)...)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Fetch every page")
	cmd.Flags().IntVar(&page, "page", 1, "Page to start from")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search text")
	cmd.Flags().StringVar(&status, "status", "", "Status filter (e.g. UNPAID)")

	return cmd
}

// fetchRecords drives a fetcher the way a scrolling list would: one page,
// or with all every page until none is left. Ids already seen are dropped.
func fetchRecords(cmd *cobra.Command, src source.Source, f catalog.Feature, filter source.Filter, page int, all bool) (data.FetchState[api.Record], error) {
	pages, err := src.Pages(f, filter)
	if err != nil {
		return data.FetchState[api.Record]{}, err
	}
	fetcher := data.NewFetcher(f.Href, pages, func(r api.Record) string { return r.ID() }, data.WithInitialPage(page))

	for {
		load := fetcher.LoadMore(cmd.Context())
		if load == nil {
			break
		}
		if msg, ok := load().(data.PageLoadedMsg); ok && msg.Err != nil {
			return data.FetchState[api.Record]{}, msg.Err
		}
		if err := cmd.Context().Err(); err != nil {
			return data.FetchState[api.Record]{}, err
		}
		if !all {
			break
		}
	}

	st := fetcher.State()
	if st.Items == nil {
		st.Items = []api.Record{}
	}
	return st, nil
}

func listResponse(f catalog.Feature, sourceName string, filter source.Filter, st data.FetchState[api.Record], all bool) []output.ResponseOption {
	cols := make([]output.Column, len(f.Columns))
	for i, c := range f.Columns {
		cols[i] = output.Column{Key: c.Key, Header: c.Title, Kind: c.Kind}
	}

	summary := fmt.Sprintf("%d %s", len(st.Items), f.Title)
	if st.Total > 0 {
		summary = fmt.Sprintf("%d of %d %s", len(st.Items), st.Total, f.Title)
	}
	if filter.Status != "" {
		summary += " · " + filter.Status
	}
	if filter.Search != "" {
		summary += fmt.Sprintf(" · %q", filter.Search)
	}

	var crumbs []output.Breadcrumb
	if st.HasMore && !all {
		var flags string
		if filter.Status != "" {
			flags += " --status " + filter.Status
		}
		if filter.Search != "" {
			flags += fmt.Sprintf(" --search %q", filter.Search)
		}
		crumbs = append(crumbs,
			output.Breadcrumb{Action: "next", Cmd: fmt.Sprintf("erpdesk list %s --page %d%s", f.Slug(), st.Page, flags), Description: "Next page"},
			output.Breadcrumb{Action: "all", Cmd: fmt.Sprintf("erpdesk list %s --all%s", f.Slug(), flags), Description: "Fetch every page"},
		)
	}
	crumbs = append(crumbs, output.Breadcrumb{Action: "open", Cmd: "erpdesk tui", Description: "Open " + f.Title + " in the workspace"})

	return []output.ResponseOption{
		output.WithSummary(summary),
		output.WithColumns(cols...),
		output.WithBreadcrumbs(crumbs...),
		output.WithContext("feature", f.Href),
		output.WithContext("source", sourceName),
		output.WithMeta("has_more", st.HasMore),
		output.WithMeta("next_page", st.Page),
		output.WithMeta("total", st.Total),
	}
}

// completeFeatures offers feature slugs for shell completion. The app is
// not set up while completing, so the embedded catalog is used then.
func completeFeatures(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cat := catalog.Default()
	if ctx := cmd.Context(); ctx != nil {
		if app := appctx.FromContext(ctx); app != nil && app.Catalog != nil {
			cat = app.Catalog
		}
	}
	var out []string
	for _, f := range cat.Features {
		if strings.HasPrefix(f.Slug(), toComplete) {
			out = append(out, f.Slug()+"\t"+f.Title)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
