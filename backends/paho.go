package backends

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const connectTimeout = 10 * time.Second

// PahoBroker adapts the paho client to the Broker interface.
type PahoBroker struct {
	cli mqtt.Client
}

// ConnectBroker connects to an MQTT broker URL like tcp://host:1883.
// Username and password may be empty.
func ConnectBroker(brokerURL, clientID, username, password string) (*PahoBroker, error) {
	if clientID == "" {
		clientID = "gomo-" + time.Now().Format("150405.000")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.OnConnect = func(c mqtt.Client) {
		slog.Info("MQTT connected", "broker", brokerURL)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		slog.Error("MQTT connection lost", "broker", brokerURL, "error", err.Error())
	}

	cli := mqtt.NewClient(opts)
	if t := cli.Connect(); t.Wait() && t.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", brokerURL, t.Error())
	}
	return &PahoBroker{cli: cli}, nil
}

func (b *PahoBroker) Publish(topic string, payload []byte, retain bool) error {
	t := b.cli.Publish(topic, 0, retain, payload)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

func (b *PahoBroker) Subscribe(topic string, cb func(topic string, payload []byte)) error {
	t := b.cli.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		cb(msg.Topic(), msg.Payload())
	})
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	slog.Info("MQTT subscribed", "topic", topic)
	return nil
}

func (b *PahoBroker) Disconnect() {
	b.cli.Disconnect(250)
}
