package sse

import (
	"net/http"
	"time"
)

const (
	// Time between keepalive pings
	pingPeriod = 15 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client represents a connected SSE client
type Client struct {
	hub         *Hub
	remoteAddr  string
	connectedAt time.Time
	send        chan []byte
}

// NewClient creates a new SSE client
func NewClient(hub *Hub, remoteAddr string) *Client {
	return &Client{
		hub:         hub,
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
	}
}

// ServeSSE handles the SSE connection for a client. The initial payload is
// written by the caller before the loop starts so a viewer attaching late
// still sees the current scoreboard immediately.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient(hub, r.RemoteAddr)
	hub.Register(client)

	defer func() {
		hub.Unregister(client)
	}()

	if len(initial) > 0 {
		_, _ = w.Write(initial)
		flusher.Flush()
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			// Keepalive comment
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
