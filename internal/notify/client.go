package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/alarm-clock/internal/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	disconnectWait = 250 // milliseconds
)

var errPublishTimeout = errors.New("mqtt publish timed out")

// Client is the part of the broker connection the publisher uses.
type Client interface {
	Publish(ctx context.Context, topic string, payload []byte, retained bool) error
	Disconnect()
}

// pahoClient adapts a paho client to Client.
type pahoClient struct {
	client mqtt.Client
	qos    byte
}

// Dial connects to the broker named in cfg.
func Dial(ctx context.Context, cfg config.MQTTConfig) (Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(connectTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)

		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	return &pahoClient{client: client, qos: 1}, nil
}

// Publish sends the payload and waits for the broker to acknowledge it.
func (c *pahoClient) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, c.qos, retained, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: %s", errPublishTimeout, topic)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

// Disconnect closes the connection after in-flight work has had a moment to finish.
func (c *pahoClient) Disconnect() {
	c.client.Disconnect(disconnectWait)
}
