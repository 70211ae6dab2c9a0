package server

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mbocsi/gomo/device"
)

// ErrDeviceExists is returned when registering a device whose name collides
// (case-insensitively) with an already registered one.
var ErrDeviceExists = errors.New("device already exists")

// gomoNamespace seeds the deterministic per-device UUIDs, so a device keeps
// its identity across restarts and the assistant doesn't re-discover it as
// a new plug.
var gomoNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gomo:device"))

// DeviceInfo is the immutable discovery record for a registered device.
type DeviceInfo struct {
	Name string
	IP   net.IP
	Port int
	UUID uuid.UUID
}

// Entry pairs a device's discovery record with its synchronized handle.
type Entry struct {
	Info   DeviceInfo
	Handle *device.Synced
}

// DeviceRegistry holds every registered virtual device. It is shared between
// the SSDP responder goroutine and all inbound control request goroutines,
// so reads take the read lock and List returns a snapshot.
type DeviceRegistry struct {
	mu       sync.RWMutex
	byName   map[string]*Entry // key is the lowercased name
	ordered  []*Entry
	ip       net.IP
	nextPort int
}

// NewDeviceRegistry creates a registry that advertises devices on ip and
// assigns control ports starting at startPort.
func NewDeviceRegistry(ip net.IP, startPort int) *DeviceRegistry {
	return &DeviceRegistry{
		byName:   make(map[string]*Entry),
		ip:       ip,
		nextPort: startPort,
	}
}

// Register wraps dev in a synchronization wrapper, assigns it the next free
// control port and a name-derived UUID, and stores it. Names are compared
// case-insensitively; a duplicate is the only defined rejection.
func (r *DeviceRegistry) Register(name string, dev device.Device) (*Entry, error) {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[key]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDeviceExists, name)
	}

	entry := &Entry{
		Info: DeviceInfo{
			Name: name,
			IP:   r.ip,
			Port: r.nextPort,
			UUID: uuid.NewSHA1(gomoNamespace, []byte(key)),
		},
		Handle: device.NewSynced(dev),
	}
	r.nextPort++

	r.byName[key] = entry
	r.ordered = append(r.ordered, entry)
	return entry, nil
}

// Get looks a device up by name, case-insensitively.
func (r *DeviceRegistry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byName[strings.ToLower(name)]
	return entry, ok
}

// List returns a snapshot of all entries in registration order. Safe to call
// concurrently with Register and with in-flight control invocations.
func (r *DeviceRegistry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, len(r.ordered))
	copy(entries, r.ordered)
	return entries
}
