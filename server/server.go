package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/mbocsi/gomo/device"
)

const defaultStartPort = 9100

// GomoServerOptions configures a GomoServer.
type GomoServerOptions struct {
	Interface net.IP     // LAN address advertised in discovery responses (required)
	StartPort int        // First per-device control port (defaults to 9100)
	MCPServer *MCPServer // Optional MCP surface to run alongside
}

// GomoServer makes registered virtual devices discoverable and controllable
// by the voice assistant. Every device gets its own HTTP control server on a
// unique port (the smart-plug protocol identifies devices by port), and one
// shared SSDP responder answers discovery probes for all of them.
type GomoServer struct {
	options  GomoServerOptions
	registry *DeviceRegistry
	ssdp     *SSDPResponder

	mu          sync.Mutex
	httpServers []*http.Server
}

func NewGomoServer(opts GomoServerOptions) (*GomoServer, error) {
	if opts.Interface == nil {
		return nil, fmt.Errorf("an interface address is required")
	}
	if opts.StartPort == 0 {
		opts.StartPort = defaultStartPort
	}

	registry := NewDeviceRegistry(opts.Interface, opts.StartPort)

	s := &GomoServer{
		options:  opts,
		registry: registry,
		ssdp:     NewSSDPResponder(registry),
	}
	if opts.MCPServer != nil {
		opts.MCPServer.registerTools(registry)
	}
	return s, nil
}

// Registry exposes the device registry for read-only collaborators such as
// the web monitor.
func (s *GomoServer) Registry() *DeviceRegistry {
	return s.registry
}

// AddDevice registers a virtual device under name and starts its control
// server. The returned synchronized handle is the only way callers should
// touch the device afterwards; it can also be reused as a group member.
func (s *GomoServer) AddDevice(name string, dev device.Device) (*device.Synced, error) {
	entry, err := s.registry.Register(name, dev)
	if err != nil {
		return nil, err
	}
	s.startDeviceServer(entry)
	return entry.Handle, nil
}

// AddPollingDevice registers dev behind a polling wrapper, for hardware whose
// state registers as changed within a few seconds of a transition request.
func (s *GomoServer) AddPollingDevice(name string, dev device.Device) (*device.Synced, error) {
	return s.AddDevice(name, device.NewPolling(dev))
}

// AddInstantOnDevice registers dev behind an instant-on wrapper, for hardware
// that takes longer than the assistant's timeout but eventually gets there.
func (s *GomoServer) AddInstantOnDevice(name string, dev device.Device) (*device.Synced, error) {
	return s.AddDevice(name, device.NewInstantOn(dev))
}

// AddFunctionalDevice registers an ad hoc device defined by three callables.
func (s *GomoServer) AddFunctionalDevice(name string, turnOn, turnOff, checkIsOn device.Op) (*device.Synced, error) {
	return s.AddDevice(name, device.NewFunctional(turnOn, turnOff, checkIsOn))
}

// AddDeviceGroup registers a composite over previously registered handles.
// Members are controlled in parallel, so they must not depend on each
// other's state.
func (s *GomoServer) AddDeviceGroup(name string, members []device.Device) (*device.Synced, error) {
	return s.AddDevice(name, device.NewComposite(name, members))
}

// startDeviceServer brings up the per-device UPnP control endpoint. It runs
// from registration time so the assistant can control the device as soon as
// it has discovered it.
func (s *GomoServer) startDeviceServer(entry *Entry) {
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", entry.Info.IP.String(), entry.Info.Port),
		Handler: newDeviceRouter(entry),
	}

	s.mu.Lock()
	s.httpServers = append(s.httpServers, srv)
	s.mu.Unlock()

	go func() {
		slog.Info("Starting device control server", "device", entry.Info.Name, "addr", srv.Addr, "uuid", entry.Info.UUID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Device control server failed", "device", entry.Info.Name, "addr", srv.Addr, "error", err.Error())
		}
	}()
}

// Start runs the SSDP responder (and the MCP surface if configured) until
// ctx is done, then shuts everything down, including every per-device
// control server.
func (s *GomoServer) Start(ctx context.Context) error {
	go func() {
		if err := s.ssdp.Start(); err != nil {
			slog.Error("SSDP responder stopped", "error", err.Error())
		}
	}()
	if s.options.MCPServer != nil {
		go func() {
			if err := s.options.MCPServer.Start(); err != nil {
				slog.Error("MCP server stopped", "error", err.Error())
			}
		}()
	}

	<-ctx.Done()
	slog.Info("Shutting down gomo server")

	if err := s.ssdp.Shutdown(); err != nil {
		slog.Error("There was an error when shutting down the SSDP responder", "error", err.Error())
	}
	if s.options.MCPServer != nil {
		if err := s.options.MCPServer.Shutdown(); err != nil {
			slog.Error("There was an error when shutting down the MCP server", "error", err.Error())
		}
	}

	s.mu.Lock()
	servers := s.httpServers
	s.mu.Unlock()
	for _, srv := range servers {
		if err := srv.Close(); err != nil {
			slog.Error("There was an error when shutting down a device control server", "addr", srv.Addr, "error", err.Error())
		}
	}
	return nil
}
