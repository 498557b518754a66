package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"invizible.art/internal/apperr"
)

// handleCatalogEvents streams catalog change notifications as server-sent events.
func (a *API) handleCatalogEvents(w http.ResponseWriter, r *http.Request) {
	if a.stream == nil {
		a.handleError(w, r, apperr.NotFound("event stream is not enabled"))
		return
	}

	rc := http.NewResponseController(w)
	// the server write timeout would cut long-lived streams
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := a.stream.Subscribe(r.Context())
	if err := rc.Flush(); err != nil {
		return
	}

	keepAlive := time.NewTicker(a.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Subject, evt.Data); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
