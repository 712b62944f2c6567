package mqttclient

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type MessageHandler func(topic string, payload []byte)

// Client is an auto-reconnecting MQTT subscriber. Subscriptions are
// re-established on every (re)connect.
type Client struct {
	conn      mqtt.Client
	topics    []string
	qos       byte
	connected atomic.Bool
	log       zerolog.Logger
	handler   MessageHandler
	received  atomic.Int64
}

type Options struct {
	BrokerURL string
	ClientID  string
	Topics    string // comma-separated
	QoS       byte
	Username  string
	Password  string
	Handler   MessageHandler
	Log       zerolog.Logger
}

// Connect dials the broker. Handler is installed before connecting so no
// message delivered on the first subscription is missed.
func Connect(opts Options) (*Client, error) {
	topics := parseTopics(opts.Topics)
	if len(topics) == 0 {
		return nil, errors.New("mqtt: at least one topic is required")
	}
	c := &Client{
		topics:  topics,
		qos:     opts.QoS,
		log:     opts.Log.With().Str("component", "mqtt").Logger(),
		handler: opts.Handler,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetDefaultPublishHandler(c.onMessage)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	c.conn = mqtt.NewClient(clientOpts)
	token := c.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) onConnect(client mqtt.Client) {
	c.connected.Store(true)
	c.log.Info().Strs("topics", c.topics).Msg("mqtt connected, subscribing")

	filters := make(map[string]byte, len(c.topics))
	for _, t := range c.topics {
		filters[t] = c.qos
	}
	token := client.SubscribeMultiple(filters, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		c.log.Error().Err(err).Msg("mqtt subscribe failed")
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.connected.Store(false)
	c.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

func (c *Client) onMessage(_ mqtt.Client, msg mqtt.Message) {
	c.received.Add(1)
	if c.handler != nil {
		c.handler(msg.Topic(), msg.Payload())
		return
	}
	c.log.Debug().
		Str("topic", msg.Topic()).
		Int("payload_size", len(msg.Payload())).
		Msg("mqtt message dropped, no handler")
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Received returns the number of messages delivered since Connect.
func (c *Client) Received() int64 {
	return c.received.Load()
}

func (c *Client) Close() {
	c.log.Info().Int64("received", c.received.Load()).Msg("disconnecting mqtt client")
	c.conn.Disconnect(1000)
}

func parseTopics(raw string) []string {
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
