package device

import "context"

// Op is a single device operation supplied as a plain function.
type Op func(ctx context.Context) (State, error)

// Functional adapts three independently supplied callables into a Device,
// for devices too simple or ad hoc to warrant a dedicated type. It is pure
// delegation; if the closures capture shared state, synchronizing that state
// is the caller's responsibility.
type Functional struct {
	turnOn    Op
	turnOff   Op
	checkIsOn Op
}

func NewFunctional(turnOn, turnOff, checkIsOn Op) *Functional {
	return &Functional{turnOn: turnOn, turnOff: turnOff, checkIsOn: checkIsOn}
}

func (d *Functional) TurnOn(ctx context.Context) (State, error) {
	return d.turnOn(ctx)
}

func (d *Functional) TurnOff(ctx context.Context) (State, error) {
	return d.turnOff(ctx)
}

func (d *Functional) CheckIsOn(ctx context.Context) (State, error) {
	return d.checkIsOn(ctx)
}
