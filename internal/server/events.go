package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erpdesk/erpdesk/internal/session"
)

// eventsHandler streams registry changes as server-sent events. Clients
// may narrow the stream with ?feature=<href>.
func eventsHandler(sess *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}
		feature := strings.TrimSpace(r.URL.Query().Get("feature"))

		id, ch := sess.Events().Subscribe()
		defer sess.Events().Unsubscribe(id)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if feature != "" && evt.FeatureID != feature {
					continue
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					slog.Debug("encode event failed", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, payload)
				flusher.Flush()
			}
		}
	}
}
