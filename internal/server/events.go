package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"archivarr/internal/logging"

	"github.com/go-chi/chi/v5"
)

// handleEventStream serves the real-time progress stream over SSE.
// The first event is always `connected` carrying the current snapshot;
// the subscriber ID rides along so clients can address their pings.
func handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, events := hub.Subscribe()
	defer hub.Unsubscribe(id)

	// Announce the subscriber ID before the event flow starts.
	fmt.Fprintf(w, "event: subscriber\ndata: %q\n\n", id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				logging.E("Failed to marshal %s event: %v", ev.Type, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

// handleEventPing marks a subscriber live; the pong answer arrives on
// its event stream.
func handleEventPing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || !hub.Ping(id) {
		writeError(w, http.StatusNotFound, "unknown subscriber")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
