package device

import (
	"context"
	"sync"
)

// Synced makes one Device instance safe to invoke from multiple inbound
// request goroutines. All three operations hold the mutex for the duration
// of the call, so at most one in-flight operation reaches the underlying
// device at a time. Lock acquisition order across competing callers is
// whatever sync.Mutex provides (unfair).
//
// A *Synced is itself a Device, so it composes transparently anywhere one is
// expected, including as a composite member. Copying the pointer yields a
// new handle to the same underlying device, not a copy of device state.
type Synced struct {
	mu    sync.Mutex
	inner Device
}

// NewSynced wraps dev. The wrapper assumes exclusive ownership of dev;
// callers must not invoke dev directly afterwards.
func NewSynced(dev Device) *Synced {
	return &Synced{inner: dev}
}

func (d *Synced) TurnOn(ctx context.Context) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.TurnOn(ctx)
}

func (d *Synced) TurnOff(ctx context.Context) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.TurnOff(ctx)
}

func (d *Synced) CheckIsOn(ctx context.Context) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inner.CheckIsOn(ctx)
}
