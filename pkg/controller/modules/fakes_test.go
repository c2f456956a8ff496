package modules

import (
	"context"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt_base "github.com/eclipse/paho.mqtt.golang"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/protocol"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload string
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m *fakeMessage) Ack()              {}

// fakeMqttClient records publications and subscriptions in memory.
type fakeMqttClient struct {
	mutex     sync.Mutex
	published map[string][]interface{}
	handlers  map[string]mqtt_base.MessageHandler
}

func newFakeMqttClient() *fakeMqttClient {
	return &fakeMqttClient{
		published: map[string][]interface{}{},
		handlers:  map[string]mqtt_base.MessageHandler{},
	}
}

func (c *fakeMqttClient) Connect() error    { return nil }
func (c *fakeMqttClient) Disconnect() error { return nil }

func (c *fakeMqttClient) Publish(topic string, message interface{}) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.published[topic] = append(c.published[topic], message)
	return nil
}

func (c *fakeMqttClient) PublishAndRetain(topic string, message interface{}) error {
	return c.Publish(topic, message)
}

func (c *fakeMqttClient) Subscribe(topic string, messageHandler mqtt_base.MessageHandler) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.handlers[topic] = messageHandler
	return nil
}

func (c *fakeMqttClient) GetFullTopic(topic string) string {
	return path.Join("smartplug", topic)
}

func (c *fakeMqttClient) ServerStatusTopic() string {
	return "smartplug/server/status"
}

func (c *fakeMqttClient) DeviceTopics(name string) mqtt.DeviceTopics {
	return mqtt.NewDeviceTopics(strings.ReplaceAll(name, " ", "_"))
}

func (c *fakeMqttClient) RawClient() mqtt_base.Client {
	return nil
}

func (c *fakeMqttClient) receive(t *testing.T, topic string, payload string) {
	c.mutex.Lock()
	handler, ok := c.handlers[topic]
	c.mutex.Unlock()
	require.True(t, ok, "no subscription for %s", topic)
	handler(nil, &fakeMessage{topic: topic, payload: payload})
}

func (c *fakeMqttClient) subscribed() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	topics := []string{}
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// last returns the last message published on the topic.
func (c *fakeMqttClient) last(topic string) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	messages := c.published[topic]
	if len(messages) == 0 {
		return nil, false
	}
	return messages[len(messages)-1], true
}

func (c *fakeMqttClient) count(topic string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.published[topic])
}

func testConfig() *config.Config {
	return &config.Config{
		Device:       config.ConfigDevice{Timeout: time.Second},
		PollInterval: time.Hour,
	}
}

func openSimulated(t *testing.T, simulator *protocol.Simulator) smartdevice.Device {
	identity := smartdevice.NewIdentity("simulator", protocol.NewSimulatedTransport(simulator))
	device, err := smartdevice.Open(context.Background(), identity)
	require.NoError(t, err)
	return device
}
