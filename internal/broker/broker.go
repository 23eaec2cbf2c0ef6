// Package broker runs an optional in-process MQTT broker for installations
// that have no broker of their own.
package broker

import (
	"fmt"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/sirupsen/logrus"
)

// Broker is a running embedded broker.
type Broker struct {
	server *mqttv2.Server
	addr   string
}

// Start listens on addr (for example ":1883") and serves MQTT clients in the
// background. All clients are allowed.
func Start(addr string) (*Broker, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("broker: add auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{ID: "solard", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("broker: listen %s: %w", addr, err)
	}

	if err := server.Serve(); err != nil {
		server.Close()
		return nil, fmt.Errorf("broker: serve: %w", err)
	}

	logrus.WithField("addr", addr).Info("broker: embedded MQTT broker started")
	return &Broker{server: server, addr: addr}, nil
}

// Addr returns the address the broker was started on.
func (b *Broker) Addr() string {
	return b.addr
}

// Publish sends a message from the broker's inline client.
func (b *Broker) Publish(topic string, payload []byte, retain bool) error {
	return b.server.Publish(topic, payload, retain, 0)
}

// Close stops all listeners and disconnects clients.
func (b *Broker) Close() error {
	return b.server.Close()
}
