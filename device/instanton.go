package device

import "context"

// InstantOn wraps a Device whose real transition is slow but eventually
// reliable, and pretends the transition happened immediately.
//
// After TurnOn, CheckIsOn reports On from the local belief flag without
// touching the inner device, so the assistant's follow-up state probe
// succeeds inside its latency budget. The belief is only reset by an
// explicit TurnOff; it is never cleared by an inner check independently
// confirming On.
type InstantOn struct {
	inner      Device
	believedOn bool
}

// NewInstantOn wraps dev with an initial belief of Off.
func NewInstantOn(dev Device) *InstantOn {
	return &InstantOn{inner: dev}
}

// NewInstantOnWithBelief wraps dev with a caller-supplied initial belief.
func NewInstantOnWithBelief(dev Device, believedOn bool) *InstantOn {
	return &InstantOn{inner: dev, believedOn: believedOn}
}

func (d *InstantOn) TurnOn(ctx context.Context) (State, error) {
	_, err := d.inner.TurnOn(ctx)
	d.believedOn = true
	if err != nil {
		return Off, err
	}
	return On, nil
}

func (d *InstantOn) TurnOff(ctx context.Context) (State, error) {
	_, err := d.inner.TurnOff(ctx)
	d.believedOn = false
	if err != nil {
		return Off, err
	}
	return Off, nil
}

func (d *InstantOn) CheckIsOn(ctx context.Context) (State, error) {
	if d.believedOn {
		return On, nil
	}
	return d.inner.CheckIsOn(ctx)
}
