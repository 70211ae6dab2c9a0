package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolling_AlreadyConverged(t *testing.T) {
	fake := newFakeDevice(Off)
	dev := NewPollingWithBudget(fake, 5*time.Millisecond, 10)

	state, err := dev.TurnOn(context.Background())
	if err != nil {
		t.Fatalf("TurnOn returned error: %v", err)
	}
	if state != On {
		t.Errorf("Expected On, got %v", state)
	}
	if _, _, checks := fake.counts(); checks != 1 {
		t.Errorf("Expected 1 check when already converged, got %d", checks)
	}
}

func TestPolling_Convergence(t *testing.T) {
	for _, k := range []int{1, 3, 7} {
		fake := newFakeDevice(Off)
		fake.onAfterChecks = k
		dev := NewPollingWithBudget(fake, 5*time.Millisecond, 10)

		state, err := dev.TurnOn(context.Background())
		if err != nil {
			t.Fatalf("k=%d: TurnOn returned error: %v", k, err)
		}
		if state != On {
			t.Errorf("k=%d: Expected On, got %v", k, state)
		}
		if _, _, checks := fake.counts(); checks != k+1 {
			t.Errorf("k=%d: Expected %d checks, got %d", k, k+1, checks)
		}
	}
}

func TestPolling_NeverConverges(t *testing.T) {
	fake := newFakeDevice(Off)
	fake.onAfterChecks = 1000
	dev := NewPollingWithBudget(fake, 2*time.Millisecond, 10)

	state, err := dev.TurnOn(context.Background())
	if err != nil {
		t.Fatalf("TurnOn should not error on timeout, got: %v", err)
	}
	if state != Off {
		t.Errorf("Expected last observed Off, got %v", state)
	}
	if _, _, checks := fake.counts(); checks != 10 {
		t.Errorf("Expected exactly 10 checks, got %d", checks)
	}
}

func TestPolling_TurnOffMirror(t *testing.T) {
	fake := newFakeDevice(On)
	dev := NewPollingWithBudget(fake, 5*time.Millisecond, 10)

	state, err := dev.TurnOff(context.Background())
	if err != nil {
		t.Fatalf("TurnOff returned error: %v", err)
	}
	if state != Off {
		t.Errorf("Expected Off, got %v", state)
	}
}

func TestPolling_TransitionErrorIsFatal(t *testing.T) {
	fake := newFakeDevice(Off)
	fake.turnOnErr = errors.New("projector not reachable")
	dev := NewPollingWithBudget(fake, 5*time.Millisecond, 10)

	if _, err := dev.TurnOn(context.Background()); err == nil {
		t.Error("Expected the initiating TurnOn error to propagate")
	}
	if _, _, checks := fake.counts(); checks != 0 {
		t.Errorf("Expected no polling after fatal transition, got %d checks", checks)
	}
}

func TestPolling_CheckErrorsCollapseToPessimistic(t *testing.T) {
	fake := newFakeDevice(Off)
	fake.checkErr = errors.New("status probe failed")
	dev := NewPollingWithBudget(fake, 2*time.Millisecond, 3)

	state, err := dev.TurnOn(context.Background())
	if err != nil {
		t.Fatalf("Polling-phase check errors must not propagate, got: %v", err)
	}
	if state != Off {
		t.Errorf("Expected pessimistic Off, got %v", state)
	}
}

func TestPolling_CheckIsOnDelegatesDirectly(t *testing.T) {
	fake := newFakeDevice(On)
	dev := NewPollingWithBudget(fake, 5*time.Millisecond, 10)

	state, err := dev.CheckIsOn(context.Background())
	if err != nil {
		t.Fatalf("CheckIsOn returned error: %v", err)
	}
	if state != On {
		t.Errorf("Expected On, got %v", state)
	}
	if _, _, checks := fake.counts(); checks != 1 {
		t.Errorf("Expected exactly 1 check, got %d", checks)
	}
}

func TestPolling_ContextCancellation(t *testing.T) {
	fake := newFakeDevice(Off)
	fake.onAfterChecks = 1000
	dev := NewPollingWithBudget(fake, 50*time.Millisecond, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	start := time.Now()
	state, err := dev.TurnOn(ctx)
	if err == nil {
		t.Error("Expected ctx error once the deadline passed")
	}
	if state != Off {
		t.Errorf("Expected last observed Off, got %v", state)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("Cancellation took too long: %v", elapsed)
	}
}

// End-to-end: a slow driver behind a polling wrapper converges and the real
// device state matches what the wrapper reported.
func TestPolling_EndToEnd(t *testing.T) {
	fake := newFakeDevice(Off)
	fake.onAfterChecks = 3
	poller := NewPollingWithBudget(fake, 2*time.Millisecond, 10)

	state, err := poller.TurnOn(context.Background())
	if err != nil {
		t.Fatalf("TurnOn returned error: %v", err)
	}
	if state != On {
		t.Fatalf("Expected On through the wrapper, got %v", state)
	}

	// Bypass the wrapper: the driver itself must now report On.
	direct, err := fake.CheckIsOn(context.Background())
	if err != nil {
		t.Fatalf("Direct CheckIsOn returned error: %v", err)
	}
	if direct != On {
		t.Errorf("Expected driver to report On directly, got %v", direct)
	}
}
