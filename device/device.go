package device

import (
	"context"
	"errors"
)

// State is the binary state every virtual device projects onto. Physical
// devices that are warming up, buffering, etc. must still report On or Off.
type State int

const (
	Off State = iota
	On
)

func (s State) String() string {
	if s == On {
		return "on"
	}
	return "off"
}

// Sentinel error kinds drivers are expected to wrap with fmt.Errorf("...: %w", ...).
var (
	// ErrTransport indicates the underlying I/O (socket, subprocess) failed.
	ErrTransport = errors.New("transport error")

	// ErrProtocol indicates the device responded but the response violated
	// the expected format or semantics.
	ErrProtocol = errors.New("protocol error")

	// ErrUnsupported indicates the operation has no meaning for this device,
	// e.g. a receiver that cannot be powered off remotely.
	ErrUnsupported = errors.New("operation not supported")
)

// Device is the capability contract every controllable appliance implements.
//
// The voice assistant considers a device unresponsive if a request takes
// longer than ~5 seconds, and it probes CheckIsOn immediately after a
// TurnOn/TurnOff. Implementations should return as quickly as possible and
// rely on the Polling or InstantOn wrappers for slower hardware.
//
// All three operations may block on network or subprocess I/O and must honor
// ctx. The returned State is the observed or assumed result, which is not
// necessarily the requested one: a driver may report Off from TurnOn without
// erroring if it treats partial failure as a state report. Calling TurnOn or
// TurnOff twice must be harmless at this contract layer.
type Device interface {
	TurnOn(ctx context.Context) (State, error)
	TurnOff(ctx context.Context) (State, error)
	CheckIsOn(ctx context.Context) (State, error)
}
