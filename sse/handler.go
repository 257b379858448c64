package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/skillsenselab/voiceclip/logger"
)

// keepAliveInterval must stay under common proxy idle timeouts.
const keepAliveInterval = 30 * time.Second

// ServeProgress streams progress events for one task to the caller until the
// connection drops or the hub shuts down. initial, when non-nil, is sent
// immediately so the client sees the current state before the next update.
func ServeProgress(hub *Hub, w http.ResponseWriter, r *http.Request, taskID string, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived connection, the server's write timeout must not apply.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logger.Warn("could not disable write deadline for event stream", logger.Fields(
			logger.FieldTaskID, taskID,
			logger.FieldError, err.Error(),
		))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(taskID)
	hub.Register(client)
	defer hub.Unregister(client)

	if initial != nil {
		fmt.Fprintf(w, "data: %s\n\n", initial)
		flusher.Flush()
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-client.Events():
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()

		case <-keepAlive.C:
			fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
