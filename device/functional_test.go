package device

import (
	"context"
	"errors"
	"testing"
)

func TestFunctional_Delegation(t *testing.T) {
	var onCalls, offCalls, checkCalls int

	dev := NewFunctional(
		func(ctx context.Context) (State, error) {
			onCalls++
			return On, nil
		},
		func(ctx context.Context) (State, error) {
			offCalls++
			return Off, nil
		},
		func(ctx context.Context) (State, error) {
			checkCalls++
			return On, nil
		},
	)

	ctx := context.Background()
	if state, err := dev.TurnOn(ctx); err != nil || state != On {
		t.Errorf("TurnOn = (%v, %v), expected (On, nil)", state, err)
	}
	if state, err := dev.TurnOff(ctx); err != nil || state != Off {
		t.Errorf("TurnOff = (%v, %v), expected (Off, nil)", state, err)
	}
	if state, err := dev.CheckIsOn(ctx); err != nil || state != On {
		t.Errorf("CheckIsOn = (%v, %v), expected (On, nil)", state, err)
	}

	if onCalls != 1 || offCalls != 1 || checkCalls != 1 {
		t.Errorf("Expected each callable invoked once, got on=%d off=%d check=%d", onCalls, offCalls, checkCalls)
	}
}

func TestFunctional_ErrorsPropagate(t *testing.T) {
	wantErr := errors.New("no such input")
	dev := NewFunctional(
		func(ctx context.Context) (State, error) { return Off, wantErr },
		func(ctx context.Context) (State, error) { return Off, nil },
		func(ctx context.Context) (State, error) { return Off, nil },
	)

	if _, err := dev.TurnOn(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Expected callable error to propagate, got %v", err)
	}
}

func TestFunctional_WrapsWithDecorators(t *testing.T) {
	dev := NewFunctional(
		func(ctx context.Context) (State, error) { return Off, nil },
		func(ctx context.Context) (State, error) { return Off, nil },
		func(ctx context.Context) (State, error) { return Off, nil },
	)

	wrapped := NewInstantOn(dev)
	state, err := wrapped.TurnOn(context.Background())
	if err != nil {
		t.Fatalf("TurnOn returned error: %v", err)
	}
	if state != On {
		t.Errorf("Expected instant-on belief over functional device, got %v", state)
	}
}
