package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Record is one row of an ERP resource as the backend returns it.
type Record map[string]any

// ID returns the record's id as a string, or "" when it has none.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Label returns a human name for the record: its name, then code, then
// number, then id.
func (r Record) Label() string {
	for _, key := range []string{"name", "title", "code", "number", "invoiceNumber"} {
		if s, ok := r[key].(string); ok && s != "" {
			return s
		}
	}
	return r.ID()
}

// Meta is the pagination block of a list response.
type Meta struct {
	Total    *int `json:"total"`
	Page     int  `json:"page"`
	Limit    int  `json:"limit"`
	LastPage int  `json:"last_page"`
}

// Page is one page of a list response.
type Page[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

// ListParams are the query parameters list endpoints accept.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Status string

	// Extra carries resource-specific filters such as startDate.
	Extra map[string]string
}

// Values encodes the params, leaving out empty ones.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		v.Set("search", s)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	for k, val := range p.Extra {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// ListPage fetches one page of resource (for example "/fakturs"). A
// response whose meta lacks last_page is treated as a single page.
func ListPage[T any](ctx context.Context, c *Client, resource string, params ListParams) (*Page[T], error) {
	resp, err := c.Get(ctx, resource, params.Values())
	if err != nil {
		return nil, err
	}

	var page Page[T]
	if err := resp.UnmarshalData(&page); err != nil {
		return nil, fmt.Errorf("failed to parse %s page: %w", resource, err)
	}
	if page.Meta.Page == 0 {
		page.Meta.Page = params.Page
	}
	if page.Meta.LastPage == 0 {
		page.Meta.LastPage = page.Meta.Page
	}
	return &page, nil
}

// recordEnvelope is the {data, message} body of single-record endpoints.
type recordEnvelope struct {
	Data    Record `json:"data"`
	Message string `json:"message"`
}

// GetRecord fetches resource/id.
func (c *Client) GetRecord(ctx context.Context, resource, id string) (Record, error) {
	resp, err := c.Get(ctx, resource+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

// SaveRecord creates a record when id is empty and updates resource/id
// otherwise. It returns the stored record and the backend's message.
func (c *Client) SaveRecord(ctx context.Context, resource, id string, data Record) (Record, string, error) {
	var (
		resp *Response
		err  error
	)
	if id == "" {
		resp, err = c.Post(ctx, resource, data)
	} else {
		resp, err = c.Put(ctx, resource+"/"+url.PathEscape(id), data)
	}
	if err != nil {
		return nil, "", err
	}

	var env recordEnvelope
	if len(resp.Data) > 0 {
		if err := resp.UnmarshalData(&env); err != nil {
			return nil, "", fmt.Errorf("failed to parse saved record: %w", err)
		}
	}
	return env.Data, env.Message, nil
}

// DeleteRecord deletes resource/id.
func (c *Client) DeleteRecord(ctx context.Context, resource, id string) error {
	_, err := c.Delete(ctx, resource+"/"+url.PathEscape(id))
	return err
}

func decodeRecord(resp *Response) (Record, error) {
	var env recordEnvelope
	if err := resp.UnmarshalData(&env); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	if env.Data == nil {
		// Some endpoints return the record bare.
		var bare Record
		if err := resp.UnmarshalData(&bare); err != nil {
			return nil, fmt.Errorf("failed to parse record: %w", err)
		}
		return bare, nil
	}
	return env.Data, nil
}
