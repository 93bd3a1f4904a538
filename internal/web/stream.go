package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleEventStream serves a Server-Sent Events stream of solve events. It
// polls the event log every 2 seconds, sends new events as they appear, and
// closes with a "done" event once the solve reaches a terminal status.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present

	sendDone := func(reason string) {
		fmt.Fprintf(w, "event: done\ndata: %s\n\n", reason)
		flusher.Flush()
	}

	var lastID int64
	send := func() bool {
		events, err := s.db.EventsSince(id, lastID)
		if err != nil {
			sendDone("event log unavailable")
			return false
		}
		for _, e := range events {
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			lastID = e.ID
		}
		if len(events) > 0 {
			flusher.Flush()
		}
		return true
	}

	// Flush history before entering the poll loop.
	if !send() {
		return
	}

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
		}

		if !send() {
			return
		}

		st, err := s.store.Get(id)
		if err != nil {
			sendDone("solve removed")
			return
		}
		if st.Terminal {
			// Drain anything logged between the last poll and Finish.
			send()
			sendDone("solve " + st.Status)
			return
		}
	}
}
