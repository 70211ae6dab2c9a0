package device

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Composite presents several independently controllable devices as a single
// logical device ("living room"). Membership is fixed at construction.
//
// All member operations run concurrently because the assistant's latency
// budget is shared across the whole group; a few slow members dispatched
// sequentially would blow it. That also means members must not depend on
// each other's state: "turn on the receiver, then switch its input" cannot
// be expressed as a composite, since no ordering between members is
// guaranteed.
type Composite struct {
	name    string
	members []Device
}

// NewComposite builds a composite over the given members, usually the
// synchronized handles returned from registration so each member stays
// independently controllable. Members are evaluated in slice order for
// diagnostics only.
func NewComposite(name string, members []Device) *Composite {
	devs := make([]Device, len(members))
	copy(devs, members)
	return &Composite{name: name, members: devs}
}

func (c *Composite) TurnOn(ctx context.Context) (State, error) {
	c.transition(ctx, On)
	return c.CheckIsOn(ctx)
}

func (c *Composite) TurnOff(ctx context.Context) (State, error) {
	c.transition(ctx, Off)
	return c.CheckIsOn(ctx)
}

// CheckIsOn queries every member concurrently and AND-reduces: the composite
// is On only if every member reports On. A member error counts as Off for
// aggregation only and is never surfaced.
func (c *Composite) CheckIsOn(ctx context.Context) (State, error) {
	var allOn atomic.Bool
	allOn.Store(true)

	var wg sync.WaitGroup
	for i, member := range c.members {
		wg.Add(1)
		go func(i int, member Device) {
			defer wg.Done()
			state, err := member.CheckIsOn(ctx)
			if err != nil {
				slog.Warn("Composite member check failed", "group", c.name, "member", i, "error", err.Error())
				allOn.Store(false)
				return
			}
			if state != On {
				allOn.Store(false)
			}
		}(i, member)
	}
	wg.Wait()

	if allOn.Load() {
		return On, nil
	}
	return Off, nil
}

// transition fans out to every member not already in the target state.
// Partial success across a device group is common (one member already
// powered), so individual member failures are logged and swallowed; a
// composite operation never fails because one member did.
func (c *Composite) transition(ctx context.Context, want State) {
	var wg sync.WaitGroup
	for i, member := range c.members {
		wg.Add(1)
		go func(i int, member Device) {
			defer wg.Done()

			state, err := member.CheckIsOn(ctx)
			if err != nil {
				state = opposite(want)
			}
			if state == want {
				return
			}

			var terr error
			if want == On {
				_, terr = member.TurnOn(ctx)
			} else {
				_, terr = member.TurnOff(ctx)
			}
			if terr != nil {
				slog.Warn("Composite member transition failed", "group", c.name, "member", i, "want", want, "error", terr.Error())
			}
		}(i, member)
	}
	wg.Wait()
}
