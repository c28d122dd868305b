package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"

	"clipforge/internal/logging"
)

// handleEvents streams the caller's tenant events as server-sent events.
// Delivery is best-effort; a slow or disconnected subscriber loses events
// without affecting any job.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	id := identityFrom(r)

	events, cancel := s.daemon.hub.Subscribe(id.Tenant)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Info("event subscriber connected", logging.String(logging.FieldTenant, id.Tenant))
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				s.logger.Warn("encode event", logging.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
