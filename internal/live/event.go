// Package live follows the backend's record-update feed over a websocket
// and fans the events out to interested parts of the client.
package live

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Event types sent by the backend.
const (
	RecordCreated = "record.created"
	RecordUpdated = "record.updated"
	RecordDeleted = "record.deleted"
)

// Event is one record change. Resource is the REST endpoint of the
// record's collection, e.g. "/fakturs".
type Event struct {
	Type     string `json:"type"`
	Resource string `json:"resource"`
	ID       string `json:"id,omitempty"`
}

// Decode parses a feed frame. IDs may arrive as numbers.
func Decode(data []byte) (Event, error) {
	var raw struct {
		Type     string          `json:"type"`
		Resource string          `json:"resource"`
		ID       json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	switch raw.Type {
	case RecordCreated, RecordUpdated, RecordDeleted:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", raw.Type)
	}
	if raw.Resource == "" {
		return Event{}, fmt.Errorf("%s event without resource", raw.Type)
	}

	e := Event{Type: raw.Type, Resource: NormalizeResource(raw.Resource)}
	if len(raw.ID) > 0 && string(raw.ID) != "null" {
		var s string
		if json.Unmarshal(raw.ID, &s) == nil {
			e.ID = s
		} else {
			e.ID = string(raw.ID)
		}
	}
	return e, nil
}

// NormalizeResource makes "fakturs", "/fakturs/" and "/fakturs" compare equal.
func NormalizeResource(r string) string {
	return "/" + strings.Trim(r, "/")
}

// FeedURL returns the websocket URL of the feed. An explicit wsURL wins;
// otherwise it is derived from the API base URL by switching the scheme and
// appending /events.
func FeedURL(baseURL, wsURL string) (string, error) {
	if wsURL != "" {
		return wsURL, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("cannot derive feed url from %q", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	return u.String(), nil
}
