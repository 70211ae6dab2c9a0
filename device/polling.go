package device

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultPollInterval = 400 * time.Millisecond
	defaultMaxAttempts  = 10
)

// Polling wraps a Device whose state change registers within a few seconds,
// actively re-checking after a transition until the state converges or the
// attempt budget runs out. The defaults (400ms x 10) keep the total wait
// around 4 seconds, under the assistant's 5 second timeout with headroom for
// the initial transition call.
type Polling struct {
	inner       Device
	interval    time.Duration
	maxAttempts int
}

// NewPolling wraps dev with the default interval and attempt ceiling.
func NewPolling(dev Device) *Polling {
	return &Polling{inner: dev, interval: defaultPollInterval, maxAttempts: defaultMaxAttempts}
}

// NewPollingWithBudget wraps dev with an explicit poll interval and attempt
// ceiling. interval*maxAttempts should stay safely under 5 seconds.
func NewPollingWithBudget(dev Device, interval time.Duration, maxAttempts int) *Polling {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Polling{inner: dev, interval: interval, maxAttempts: maxAttempts}
}

func (d *Polling) TurnOn(ctx context.Context) (State, error) {
	if _, err := d.inner.TurnOn(ctx); err != nil {
		return Off, err
	}
	return d.await(ctx, On)
}

func (d *Polling) TurnOff(ctx context.Context) (State, error) {
	if _, err := d.inner.TurnOff(ctx); err != nil {
		return Off, err
	}
	return d.await(ctx, Off)
}

func (d *Polling) CheckIsOn(ctx context.Context) (State, error) {
	return d.inner.CheckIsOn(ctx)
}

// await re-checks the inner device until it reports want or the attempt
// budget is spent. The initial check counts against the budget. Check
// failures during the loop are advisory and collapse to the pessimistic
// state rather than aborting an otherwise-succeeding transition. Exhausting
// the budget is not an error: the last observed state is returned and the
// caller decides what "didn't converge" means.
func (d *Polling) await(ctx context.Context, want State) (State, error) {
	state := d.checkOrAssume(ctx, opposite(want))
	if state == want {
		return state, nil
	}

	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for attempt := 1; attempt < d.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-timer.C:
		}

		state = d.checkOrAssume(ctx, opposite(want))
		slog.Debug("Polling device state", "want", want, "observed", state, "attempt", attempt)
		if state == want {
			return state, nil
		}
		timer.Reset(d.interval)
	}
	return state, nil
}

func (d *Polling) checkOrAssume(ctx context.Context, fallback State) State {
	state, err := d.inner.CheckIsOn(ctx)
	if err != nil {
		return fallback
	}
	return state
}

func opposite(s State) State {
	if s == On {
		return Off
	}
	return On
}
