package device

import (
	"context"
	"sync"
	"time"
)

// fakeDevice is an instrumented Device for decorator tests. It records call
// counts, can fail individual operations, report On only after a number of
// checks, delay checks, and detect overlapping calls at the driver level.
type fakeDevice struct {
	mu sync.Mutex

	state State

	turnOnCalls  int
	turnOffCalls int
	checkCalls   int

	turnOnErr  error
	turnOffErr error
	checkErr   error

	// onAfterChecks > 0 makes CheckIsOn report Off until that many checks
	// have been observed, then On thereafter.
	onAfterChecks int

	checkDelay time.Duration

	// opDelay stretches TurnOn/TurnOff so overlapping callers have a window
	// to collide in.
	opDelay time.Duration

	inFlight bool
	overlap  bool
}

func newFakeDevice(initial State) *fakeDevice {
	return &fakeDevice{state: initial}
}

func (f *fakeDevice) enter() {
	f.mu.Lock()
	if f.inFlight {
		f.overlap = true
	}
	f.inFlight = true
	f.mu.Unlock()
}

func (f *fakeDevice) exit() {
	f.mu.Lock()
	f.inFlight = false
	f.mu.Unlock()
}

func (f *fakeDevice) TurnOn(ctx context.Context) (State, error) {
	f.enter()
	defer f.exit()

	f.mu.Lock()
	delay := f.opDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.turnOnCalls++
	if f.turnOnErr != nil {
		return Off, f.turnOnErr
	}
	if f.onAfterChecks == 0 {
		f.state = On
	}
	return f.state, nil
}

func (f *fakeDevice) TurnOff(ctx context.Context) (State, error) {
	f.enter()
	defer f.exit()

	f.mu.Lock()
	delay := f.opDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.turnOffCalls++
	if f.turnOffErr != nil {
		return Off, f.turnOffErr
	}
	f.state = Off
	return f.state, nil
}

func (f *fakeDevice) CheckIsOn(ctx context.Context) (State, error) {
	f.enter()

	f.mu.Lock()
	delay := f.checkDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer func() {
		f.mu.Unlock()
		f.exit()
	}()

	f.checkCalls++
	if f.checkErr != nil {
		return Off, f.checkErr
	}
	if f.onAfterChecks > 0 {
		if f.checkCalls > f.onAfterChecks {
			f.state = On
		} else {
			return Off, nil
		}
	}
	return f.state, nil
}

func (f *fakeDevice) counts() (turnOn, turnOff, check int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turnOnCalls, f.turnOffCalls, f.checkCalls
}

func (f *fakeDevice) sawOverlap() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlap
}
