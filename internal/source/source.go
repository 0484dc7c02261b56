// Package source gives list views, the CLI and the control server one way
// to page and save a feature's records, whether they come from the REST
// API or straight from the database.
package source

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/dateparse"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/sqlsource"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/data"
)

// Filter narrows a list.
type Filter struct {
	Search string
	Status string
}

// Source pages and saves records of catalog features.
type Source interface {
	// Pages returns the page function for a feature's list.
	Pages(f catalog.Feature, filter Filter) (data.PageFunc[api.Record], error)
	// Get reads one record for an edit form.
	Get(ctx context.Context, f catalog.Feature, id string) (api.Record, error)
	// Save creates (empty id) or updates a record.
	Save(ctx context.Context, f catalog.Feature, id string, rec api.Record) (api.Record, string, error)
	// Name identifies the source in logs and the status bar.
	Name() string
}

// Payload converts a form draft to what the backend stores: numbers for
// numeric fields, ISO dates for date fields ("besok", "25/10/2026"), and no
// key at all for empty optional fields. Keys the feature has no field for
// are dropped.
func Payload(f catalog.Feature, draft api.Record) api.Record {
	out := make(api.Record, len(draft))
	for _, field := range f.Fields {
		s, _ := draft[field.Key].(string)
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		switch field.Kind {
		case catalog.KindDate:
			s = dateparse.Parse(s)
		case catalog.KindCurrency, catalog.KindNumber:
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				out[field.Key] = n
				continue
			}
		}
		out[field.Key] = s
	}
	return out
}

// API pages through the REST API.
type API struct {
	Client *api.Client
	Limit  int
}

// NewAPI wraps client.
func NewAPI(client *api.Client, limit int) *API {
	return &API{Client: client, Limit: limit}
}

func (s *API) Name() string { return s.Client.BaseURL() }

func (s *API) Pages(f catalog.Feature, filter Filter) (data.PageFunc[api.Record], error) {
	return func(ctx context.Context, page int) (data.Page[api.Record], error) {
		p, err := api.ListPage[api.Record](ctx, s.Client, f.Endpoint, api.ListParams{
			Page:   page,
			Limit:  s.Limit,
			Search: filter.Search,
			Status: filter.Status,
		})
		if err != nil {
			return data.Page[api.Record]{}, err
		}
		return data.Page[api.Record]{Items: p.Data, LastPage: p.Meta.LastPage, Total: p.Meta.Total}, nil
	}, nil
}

func (s *API) Get(ctx context.Context, f catalog.Feature, id string) (api.Record, error) {
	return s.Client.GetRecord(ctx, f.Endpoint, id)
}

func (s *API) Save(ctx context.Context, f catalog.Feature, id string, rec api.Record) (api.Record, string, error) {
	return s.Client.SaveRecord(ctx, f.Endpoint, id, rec)
}

// ErrReadOnly is returned when saving through a database source.
var ErrReadOnly = errors.New("database source is read-only")

// SQL pages straight from MySQL. It cannot save.
type SQL struct {
	DB    *sqlsource.Source
	Limit int
}

// NewSQL wraps db.
func NewSQL(db *sqlsource.Source, limit int) *SQL {
	return &SQL{DB: db, Limit: limit}
}

func (s *SQL) Name() string { return "mysql" }

func (s *SQL) Pages(f catalog.Feature, filter Filter) (data.PageFunc[api.Record], error) {
	q, err := sqlsource.QueryFor(f, filter.Search, filter.Status, s.Limit)
	if err != nil {
		return nil, output.ErrUsageHint(err.Error(), "Add a table to the feature in your catalog file")
	}
	return s.DB.PageFunc(q), nil
}

func (s *SQL) Get(ctx context.Context, f catalog.Feature, id string) (api.Record, error) {
	q, err := sqlsource.QueryFor(f, "", "", 1)
	if err != nil {
		return nil, output.ErrUsageHint(err.Error(), "Add a table to the feature in your catalog file")
	}
	rec, err := s.DB.Get(ctx, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, output.ErrNotFound(f.Title, id)
	}
	return rec, err
}

func (s *SQL) Save(context.Context, catalog.Feature, string, api.Record) (api.Record, string, error) {
	e := output.ErrUsageHint(ErrReadOnly.Error(), "Unset --dsn to save through the API")
	e.Cause = ErrReadOnly
	return nil, "", e
}
