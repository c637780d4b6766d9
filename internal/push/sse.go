package push

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// EventGameProgress is the SSE event name carrying a snapshot
const EventGameProgress = "game-progress"

// ServeSSE streams hub updates to w as Server-Sent Events until the request
// ends or the hub closes. client must already be registered with hub.
func ServeSSE(w http.ResponseWriter, r *http.Request, client *Client, logger *slog.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		client.hub.Unregister(client)
		return
	}
	defer client.hub.Unregister(client)

	// streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(FormatSSE(EventGameProgress, string(update.Payload))); err != nil {
				logger.Debug("sse write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// FormatSSE formats an SSE message with event name and data.
// Multi-line data gets a "data: " prefix on each line.
func FormatSSE(eventName, data string) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	data = strings.ReplaceAll(data, "\r", "")
	for _, line := range strings.Split(strings.TrimSuffix(data, "\n"), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}
