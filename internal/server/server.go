// Package server exposes a headless session over HTTP for automation:
// tab and routing control, list paging and a stream of registry changes.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erpdesk/erpdesk/internal/api"
	"github.com/erpdesk/erpdesk/internal/catalog"
	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/session"
	"github.com/erpdesk/erpdesk/internal/source"
	"github.com/erpdesk/erpdesk/internal/tabs"
	"github.com/erpdesk/erpdesk/internal/tui/workspace/viewmgr"
	"github.com/erpdesk/erpdesk/internal/version"
)

// New returns the control API handler for sess.
func New(sess *session.Session) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("erpdesk control API", version.Version)
	humaAPI := humachi.New(router, cfg)

	router.Get("/api/v1/events", eventsHandler(sess))

	registerMiscHandlers(humaAPI, sess)
	registerTabHandlers(humaAPI, sess)
	registerListHandlers(humaAPI, sess)

	return router
}

func registerMiscHandlers(hapi huma.API, sess *session.Session) {
	type healthOutput struct {
		Body struct {
			Status  string `json:"status"`
			Version string `json:"version"`
		}
	}
	huma.Register(hapi, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Health check", Tags: []string{"Misc"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Version = version.Version
			return out, nil
		})

	type featureInfo struct {
		Href     string           `json:"href"`
		Title    string           `json:"title"`
		Endpoint string           `json:"endpoint"`
		Statuses []string         `json:"statuses,omitempty"`
		Columns  []catalog.Column `json:"columns"`
	}
	type catalogOutput struct {
		Body struct {
			Features []featureInfo `json:"features"`
		}
	}
	huma.Register(hapi, huma.Operation{OperationID: "list-features", Method: http.MethodGet, Path: "/api/v1/features", Summary: "List features with a list view", Tags: []string{"Misc"}},
		func(ctx context.Context, input *struct{}) (*catalogOutput, error) {
			out := &catalogOutput{}
			out.Body.Features = []featureInfo{}
			for _, f := range sess.Catalog().Features {
				out.Body.Features = append(out.Body.Features, featureInfo{
					Href:     f.Href,
					Title:    f.Title,
					Endpoint: f.Endpoint,
					Statuses: f.Statuses,
					Columns:  f.Columns,
				})
			}
			return out, nil
		})

	type outcomeOutput struct {
		Body viewmgr.Outcome
	}
	huma.Register(hapi, huma.Operation{OperationID: "get-outcome", Method: http.MethodGet, Path: "/api/v1/outcome", Summary: "Current routing outcome", Tags: []string{"Routing"}},
		func(ctx context.Context, input *struct{}) (*outcomeOutput, error) {
			return &outcomeOutput{Body: sess.Outcome()}, nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "navigate", Method: http.MethodPost, Path: "/api/v1/navigate", Summary: "Navigate to a path", Tags: []string{"Routing"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Path string `json:"path" required:"true" minLength:"1" doc:"Menu path, e.g. /dashboard/sales/faktur"`
			}
		}) (*outcomeOutput, error) {
			return &outcomeOutput{Body: sess.Navigate(input.Body.Path)}, nil
		})
}

type stateOutput struct {
	Body tabs.State[api.Record]
}

func snapshot(sess *session.Session) *stateOutput {
	return &stateOutput{Body: sess.Tabs().Snapshot()}
}

type featureQuery struct {
	Feature string `query:"feature" required:"true" doc:"Feature id (its href)"`
}

type dataTabQuery struct {
	Feature string `query:"feature" required:"true" doc:"Feature id (its href)"`
	Tab     string `query:"tab" required:"true" doc:"Data tab id"`
}

func registerTabHandlers(hapi huma.API, sess *session.Session) {
	huma.Register(hapi, huma.Operation{OperationID: "get-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "Open feature and data tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			return snapshot(sess), nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "open-feature", Method: http.MethodPost, Path: "/api/v1/tabs/features", Summary: "Open or re-activate a feature tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Href string `json:"href" required:"true" minLength:"1" doc:"Menu href of the feature"`
			}
		}) (*stateOutput, error) {
			if err := sess.OpenFeature(input.Body.Href); err != nil {
				return nil, mapErr(err)
			}
			return snapshot(sess), nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "close-feature", Method: http.MethodDelete, Path: "/api/v1/tabs/features", Summary: "Close a feature tab and its data tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *featureQuery) (*stateOutput, error) {
			if err := sess.CloseFeature(input.Feature); err != nil {
				return nil, mapErr(err)
			}
			return snapshot(sess), nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "activate-feature", Method: http.MethodPost, Path: "/api/v1/tabs/features/activate", Summary: "Switch to an open feature tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *featureQuery) (*stateOutput, error) {
			if err := sess.ActivateFeature(input.Feature); err != nil {
				return nil, mapErr(err)
			}
			return snapshot(sess), nil
		})

	type dataTabOutput struct {
		Body tabs.DataTab[api.Record]
	}
	huma.Register(hapi, huma.Operation{OperationID: "open-data-tab", Method: http.MethodPost, Path: "/api/v1/tabs/data", Summary: "Open a new-document or edit tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Feature  string `json:"feature" required:"true" minLength:"1" doc:"Feature id (its href)"`
				RecordID string `json:"record_id,omitempty" doc:"Record to edit. Omit to open the new-document tab."`
				Label    string `json:"label,omitempty" doc:"Tab title for an edit tab. Defaults to the record id."`
			}
		}) (*dataTabOutput, error) {
			var (
				tab tabs.DataTab[api.Record]
				err error
			)
			if input.Body.RecordID == "" {
				tab, err = sess.OpenNew(input.Body.Feature)
			} else {
				tab, err = sess.OpenEdit(input.Body.Feature, input.Body.RecordID, input.Body.Label)
			}
			if err != nil {
				return nil, mapErr(err)
			}
			return &dataTabOutput{Body: tab}, nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "close-data-tab", Method: http.MethodDelete, Path: "/api/v1/tabs/data", Summary: "Close a data tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *dataTabQuery) (*stateOutput, error) {
			sess.CloseDataTab(input.Feature, input.Tab)
			return snapshot(sess), nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "activate-data-tab", Method: http.MethodPost, Path: "/api/v1/tabs/data/activate", Summary: "Switch a feature's data tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *dataTabQuery) (*stateOutput, error) {
			if err := sess.ActivateDataTab(input.Feature, input.Tab); err != nil {
				return nil, mapErr(err)
			}
			return snapshot(sess), nil
		})

	huma.Register(hapi, huma.Operation{OperationID: "update-draft", Method: http.MethodPut, Path: "/api/v1/tabs/data/draft", Summary: "Store a data tab's draft", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct {
			Feature string `query:"feature" required:"true" doc:"Feature id (its href)"`
			Tab     string `query:"tab" required:"true" doc:"Data tab id"`
			Body    struct {
				Data  map[string]any `json:"data" doc:"Draft field values"`
				Dirty bool           `json:"dirty" doc:"Whether the draft has unsaved changes"`
			}
		}) (*dataTabOutput, error) {
			if err := sess.UpdateDraft(input.Feature, input.Tab, api.Record(input.Body.Data), input.Body.Dirty); err != nil {
				return nil, mapErr(err)
			}
			tab, _ := sess.Tabs().DataTab(input.Feature, input.Tab)
			return &dataTabOutput{Body: tab}, nil
		})

	type saveOutput struct {
		Body struct {
			Record  map[string]any `json:"record"`
			Message string         `json:"message,omitempty"`
		}
	}
	huma.Register(hapi, huma.Operation{OperationID: "save-draft", Method: http.MethodPost, Path: "/api/v1/tabs/data/save", Summary: "Save a data tab's draft and close the tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *dataTabQuery) (*saveOutput, error) {
			rec, msg, err := sess.SaveDraft(ctx, input.Feature, input.Tab)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &saveOutput{}
			out.Body.Record = rec
			out.Body.Message = msg
			return out, nil
		})
}

func registerListHandlers(hapi huma.API, sess *session.Session) {
	type listOutput struct {
		Body session.ListState
	}
	wrap := func(st session.ListState, err error) (*listOutput, error) {
		if err != nil {
			return nil, mapErr(err)
		}
		return &listOutput{Body: st}, nil
	}

	huma.Register(hapi, huma.Operation{OperationID: "get-list", Method: http.MethodGet, Path: "/api/v1/lists", Summary: "Accumulated list of a mounted feature", Tags: []string{"Lists"}},
		func(ctx context.Context, input *featureQuery) (*listOutput, error) {
			return wrap(sess.List(input.Feature))
		})

	huma.Register(hapi, huma.Operation{OperationID: "load-more", Method: http.MethodPost, Path: "/api/v1/lists/more", Summary: "Fetch the next page of a list", Tags: []string{"Lists"}},
		func(ctx context.Context, input *featureQuery) (*listOutput, error) {
			return wrap(sess.LoadMore(ctx, input.Feature))
		})

	huma.Register(hapi, huma.Operation{OperationID: "filter-list", Method: http.MethodPut, Path: "/api/v1/lists/filter", Summary: "Set a list's search and status and start over", Tags: []string{"Lists"}},
		func(ctx context.Context, input *struct {
			Feature string `query:"feature" required:"true" doc:"Feature id (its href)"`
			Body    struct {
				Search string `json:"search,omitempty" doc:"Free-text search"`
				Status string `json:"status,omitempty" doc:"Status filter"`
			}
		}) (*listOutput, error) {
			return wrap(sess.Filter(input.Feature, source.Filter{Search: input.Body.Search, Status: input.Body.Status}))
		})

	huma.Register(hapi, huma.Operation{OperationID: "refresh-list", Method: http.MethodPost, Path: "/api/v1/lists/refresh", Summary: "Empty a list so it reloads from the first page", Tags: []string{"Lists"}},
		func(ctx context.Context, input *featureQuery) (*listOutput, error) {
			return wrap(sess.Refresh(input.Feature))
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var e *output.Error
	if !errors.As(err, &e) {
		return huma.Error500InternalServerError(err.Error())
	}
	msg := e.Error()
	switch e.Code {
	case output.CodeUsage:
		return huma.Error400BadRequest(msg)
	case output.CodeValidation:
		details := make([]error, 0, len(e.Fields))
		for _, field := range sortedKeys(e.Fields) {
			details = append(details, &huma.ErrorDetail{Location: "body.data." + field, Message: e.Fields[field]})
		}
		return huma.Error422UnprocessableEntity(msg, details...)
	case output.CodeNotFound:
		return huma.Error404NotFound(msg)
	case output.CodeAmbiguous:
		return huma.Error409Conflict(msg)
	case output.CodeAuth:
		return huma.Error401Unauthorized(msg)
	case output.CodeForbidden:
		return huma.Error403Forbidden(msg)
	case output.CodeRateLimit:
		return huma.Error429TooManyRequests(msg)
	case output.CodeNetwork:
		return huma.Error502BadGateway(msg)
	default:
		if e.HTTPStatus >= 500 {
			return huma.Error502BadGateway(msg)
		}
		return huma.Error500InternalServerError(msg)
	}
}
