package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbocsi/gomo/device"
	"github.com/mbocsi/gomo/server"
)

const snapshotBudget = 5 * time.Second

// DeviceStatus is the monitor's wire representation of one registered device.
type DeviceStatus struct {
	Name  string `json:"name"`
	Addr  string `json:"addr"`
	Port  int    `json:"port"`
	UUID  string `json:"uuid"`
	State string `json:"state"` // "on", "off" or "error"
}

// Monitor is a small LAN-facing HTTP surface for humans and tooling: a JSON
// view of the registry with manual control, plus a websocket stream of state
// snapshots. It is separate from the per-device UPnP servers the assistant
// talks to.
type Monitor struct {
	Addr     string
	registry *server.DeviceRegistry
	server   *http.Server
}

func NewMonitor(addr string, registry *server.DeviceRegistry) *Monitor {
	return &Monitor{Addr: addr, registry: registry}
}

func (m *Monitor) Start() error {
	slog.Info("Starting web monitor", "addr", m.Addr)

	r := chi.NewRouter()
	r.Get("/devices", m.handleDevices)
	r.Get("/devices/{name}", m.handleDeviceDetail)
	r.Post("/devices/{name}/{action}", m.handleDeviceAction)
	r.Get("/ws", m.handleWebSocket)

	m.server = &http.Server{Addr: m.Addr, Handler: r}

	err := m.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (m *Monitor) Shutdown() error {
	slog.Info("Shutting down web monitor", "addr", m.Addr)
	if m.server != nil {
		return m.server.Close()
	}
	return nil
}

func (m *Monitor) handleDevices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotBudget)
	defer cancel()
	writeJSON(w, http.StatusOK, m.snapshot(ctx))
}

func (m *Monitor) handleDeviceDetail(w http.ResponseWriter, r *http.Request) {
	entry, ok := m.registry.Get(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotBudget)
	defer cancel()
	writeJSON(w, http.StatusOK, status(ctx, entry))
}

func (m *Monitor) handleDeviceAction(w http.ResponseWriter, r *http.Request) {
	entry, ok := m.registry.Get(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotBudget)
	defer cancel()

	var (
		state device.State
		err   error
	)
	switch action := chi.URLParam(r, "action"); action {
	case "on":
		state, err = entry.Handle.TurnOn(ctx)
	case "off":
		state, err = entry.Handle.TurnOff(ctx)
	default:
		http.Error(w, "unknown action: "+action, http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("Manual device action failed", "device", entry.Info.Name, "error", err.Error())
		http.Error(w, "device unresponsive", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": entry.Info.Name, "state": state.String()})
}

// snapshot queries every device concurrently; the fan-out keeps a full
// registry read inside one device's worth of latency.
func (m *Monitor) snapshot(ctx context.Context) []DeviceStatus {
	entries := m.registry.List()
	statuses := make([]DeviceStatus, len(entries))

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry *server.Entry) {
			defer wg.Done()
			statuses[i] = status(ctx, entry)
		}(i, entry)
	}
	wg.Wait()
	return statuses
}

func status(ctx context.Context, entry *server.Entry) DeviceStatus {
	s := DeviceStatus{
		Name: entry.Info.Name,
		Addr: entry.Info.IP.String(),
		Port: entry.Info.Port,
		UUID: entry.Info.UUID.String(),
	}
	state, err := entry.Handle.CheckIsOn(ctx)
	if err != nil {
		s.State = "error"
		return s
	}
	s.State = state.String()
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err.Error())
	}
}
