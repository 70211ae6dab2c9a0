// Package config loads the gomo bridge configuration from YAML.
package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Wrapper names accepted in device definitions.
const (
	WrapperNone    = "none"
	WrapperPolling = "polling"
	WrapperInstant = "instant"
)

// Config is the root configuration structure.
type Config struct {
	Interface string         `yaml:"interface"`  // LAN IP advertised in discovery responses
	StartPort int            `yaml:"start_port"` // first per-device control port
	Web       WebConfig      `yaml:"web"`
	MQTT      MQTTConfig     `yaml:"mqtt"`
	Devices   []DeviceConfig `yaml:"devices"`
	Groups    []GroupConfig  `yaml:"groups"`
}

// WebConfig configures the monitor surface.
type WebConfig struct {
	Addr string `yaml:"addr"`
	MDNS bool   `yaml:"mdns"`
}

// MQTTConfig contains broker connection settings shared by all MQTT devices.
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DeviceConfig defines one MQTT-backed virtual device.
type DeviceConfig struct {
	Name    string           `yaml:"name"`
	Wrapper string           `yaml:"wrapper"` // none, polling or instant
	MQTT    MQTTSwitchConfig `yaml:"mqtt"`
}

// MQTTSwitchConfig holds the topic pair and payloads for one switch.
type MQTTSwitchConfig struct {
	CommandTopic string `yaml:"command_topic"`
	StateTopic   string `yaml:"state_topic"`
	PayloadOn    string `yaml:"payload_on"`
	PayloadOff   string `yaml:"payload_off"`
}

// GroupConfig defines a composite over previously defined devices.
type GroupConfig struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in the optional fields callers may omit.
func (c *Config) ApplyDefaults() {
	if c.StartPort == 0 {
		c.StartPort = 9100
	}
	if c.Web.Addr == "" {
		c.Web.Addr = "0.0.0.0:8080"
	}
	for i := range c.Devices {
		if c.Devices[i].Wrapper == "" {
			c.Devices[i].Wrapper = WrapperNone
		}
	}
}

// Validate checks the parts that would otherwise fail obscurely at runtime.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if net.ParseIP(c.Interface) == nil {
		return fmt.Errorf("interface %q is not a valid IP address", c.Interface)
	}

	if len(c.Devices) > 0 && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when devices are defined")
	}

	names := make(map[string]struct{})
	for _, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("every device needs a name")
		}
		switch d.Wrapper {
		case WrapperNone, WrapperPolling, WrapperInstant:
		default:
			return fmt.Errorf("device %q: unknown wrapper %q", d.Name, d.Wrapper)
		}
		if d.MQTT.CommandTopic == "" || d.MQTT.StateTopic == "" {
			return fmt.Errorf("device %q: command_topic and state_topic are required", d.Name)
		}
		names[d.Name] = struct{}{}
	}

	for _, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("every group needs a name")
		}
		if len(g.Members) == 0 {
			return fmt.Errorf("group %q has no members", g.Name)
		}
		for _, member := range g.Members {
			if _, ok := names[member]; !ok {
				return fmt.Errorf("group %q references unknown device %q", g.Name, member)
			}
		}
	}
	return nil
}
