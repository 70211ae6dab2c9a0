package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mbocsi/gomo/device"
	"github.com/mbocsi/gomo/server"
)

type stubDevice struct {
	mu       sync.Mutex
	state    device.State
	checkErr error
}

func (d *stubDevice) TurnOn(ctx context.Context) (device.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = device.On
	return d.state, nil
}

func (d *stubDevice) TurnOff(ctx context.Context) (device.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = device.Off
	return d.state, nil
}

func (d *stubDevice) CheckIsOn(ctx context.Context) (device.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.checkErr != nil {
		return device.Off, d.checkErr
	}
	return d.state, nil
}

func testMonitor(t *testing.T, devs map[string]device.Device) (*Monitor, http.Handler) {
	t.Helper()
	registry := server.NewDeviceRegistry(net.IPv4(192, 168, 1, 50), 9100)
	for name, dev := range devs {
		if _, err := registry.Register(name, dev); err != nil {
			t.Fatalf("Register(%q) returned error: %v", name, err)
		}
	}

	m := NewMonitor("127.0.0.1:0", registry)
	r := chi.NewRouter()
	r.Get("/devices", m.handleDevices)
	r.Get("/devices/{name}", m.handleDeviceDetail)
	r.Post("/devices/{name}/{action}", m.handleDeviceAction)
	return m, r
}

func TestMonitor_Devices(t *testing.T) {
	_, handler := testMonitor(t, map[string]device.Device{
		"Lamp": &stubDevice{state: device.On},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var statuses []DeviceStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("Expected 1 device, got %d", len(statuses))
	}
	if statuses[0].Name != "Lamp" || statuses[0].State != "on" {
		t.Errorf("Unexpected status: %+v", statuses[0])
	}
}

func TestMonitor_DeviceDetail_ErrorState(t *testing.T) {
	_, handler := testMonitor(t, map[string]device.Device{
		"Projector": &stubDevice{checkErr: errors.New("unreachable")},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices/projector", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var status DeviceStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if status.State != "error" {
		t.Errorf("Expected error state, got %q", status.State)
	}
}

func TestMonitor_DeviceDetail_NotFound(t *testing.T) {
	_, handler := testMonitor(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/devices/nothing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestMonitor_DeviceAction(t *testing.T) {
	dev := &stubDevice{}
	_, handler := testMonitor(t, map[string]device.Device{"Lamp": dev})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/devices/Lamp/on", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if state, _ := dev.CheckIsOn(context.Background()); state != device.On {
		t.Errorf("Expected device turned on, got %v", state)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/devices/Lamp/blink", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown action, got %d", rec.Code)
	}
}
