package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const statusPushInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // LAN-only surface
	},
}

// handleWebSocket streams registry snapshots to the client until it
// disconnects. Each frame is the same JSON shape as GET /devices.
func (m *Monitor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("Monitor client connected", "addr", r.RemoteAddr)
	defer slog.Info("Monitor client disconnected", "addr", r.RemoteAddr)

	// Reads are discarded, but a read loop is needed to notice the peer
	// going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(r.Context(), snapshotBudget)
		statuses := m.snapshot(ctx)
		cancel()

		if err := conn.WriteJSON(statuses); err != nil {
			slog.Debug("Failed to push status frame", "addr", r.RemoteAddr, "error", err.Error())
			return
		}

		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
