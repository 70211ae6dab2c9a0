// Package backends provides generic device backends that expose the
// capability contract over common transports, for appliances reachable
// through an intermediary (an MQTT broker, typically via Tasmota/ESPHome
// style firmware) rather than a brand-specific wire protocol.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mbocsi/gomo/device"
)

// Broker is the minimal pub/sub surface the MQTT switch needs. It enables
// unit testing the switch without a live broker.
type Broker interface {
	Publish(topic string, payload []byte, retain bool) error
	Subscribe(topic string, cb func(topic string, payload []byte)) error
}

// SwitchConfig describes one MQTT-controlled on/off device.
type SwitchConfig struct {
	CommandTopic string // payload published here to request a transition
	StateTopic   string // retained topic the device reports its state on
	PayloadOn    string // defaults to "ON"
	PayloadOff   string // defaults to "OFF"
}

// Switch is a device.Device backed by an MQTT command/state topic pair.
//
// MQTT state reporting is asynchronous: TurnOn/TurnOff publish the command
// and return the last reported state, which usually still reads Off/On until
// the device publishes its new state. Register a Switch behind a Polling (or
// InstantOn) wrapper so the assistant sees the transition converge.
type Switch struct {
	broker Broker
	cfg    SwitchConfig

	mu    sync.RWMutex
	state device.State
}

func NewSwitch(broker Broker, cfg SwitchConfig) (*Switch, error) {
	if cfg.CommandTopic == "" || cfg.StateTopic == "" {
		return nil, fmt.Errorf("mqtt switch needs both a command topic and a state topic")
	}
	if cfg.PayloadOn == "" {
		cfg.PayloadOn = "ON"
	}
	if cfg.PayloadOff == "" {
		cfg.PayloadOff = "OFF"
	}

	s := &Switch{broker: broker, cfg: cfg}
	if err := broker.Subscribe(cfg.StateTopic, s.onState); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", cfg.StateTopic, err)
	}
	return s, nil
}

func (s *Switch) onState(topic string, payload []byte) {
	reported := string(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch reported {
	case s.cfg.PayloadOn:
		s.state = device.On
	case s.cfg.PayloadOff:
		s.state = device.Off
	default:
		slog.Warn("Unrecognized state payload", "topic", topic, "payload", reported)
	}
}

func (s *Switch) TurnOn(ctx context.Context) (device.State, error) {
	if err := s.broker.Publish(s.cfg.CommandTopic, []byte(s.cfg.PayloadOn), false); err != nil {
		return device.Off, fmt.Errorf("%w: publish %s: %v", device.ErrTransport, s.cfg.CommandTopic, err)
	}
	return s.CheckIsOn(ctx)
}

func (s *Switch) TurnOff(ctx context.Context) (device.State, error) {
	if err := s.broker.Publish(s.cfg.CommandTopic, []byte(s.cfg.PayloadOff), false); err != nil {
		return device.Off, fmt.Errorf("%w: publish %s: %v", device.ErrTransport, s.cfg.CommandTopic, err)
	}
	return s.CheckIsOn(ctx)
}

// CheckIsOn returns the last state the device reported. A device that has
// never reported reads Off.
func (s *Switch) CheckIsOn(ctx context.Context) (device.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}
