package mqtt

import (
	"fmt"
	"path"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	Online  string = "online"
	Offline string = "offline"
)

const serverStatus string = "server/status"

type SubscriptionHandler struct {
	Topic          string
	MessageHandler mqtt.MessageHandler
}

type Client interface {
	// Connect to the MQTT server and mark the bridge online.
	Connect() error
	// Mark the bridge offline and disconnect from the MQTT server.
	Disconnect() error

	// Publishes a message under the topic prefix.
	Publish(topic string, message interface{}) error
	// Same as publish but force the retain flag regardless of what is in the config
	PublishAndRetain(topic string, message interface{}) error
	// Subscribe to a topic and calls the given handler when a message is
	// received. Subscriptions are restored after a reconnection.
	Subscribe(topic string, messageHandler mqtt.MessageHandler) error

	// Return the full topic for a given subpath.
	GetFullTopic(topic string) string
	// Returns the topic used to publish the server status.
	ServerStatusTopic() string
	// Returns the topics of the device with the given name.
	DeviceTopics(name string) DeviceTopics

	RawClient() mqtt.Client
}

type client struct {
	mqttClient    mqtt.Client
	options       ClientOptions
	subscriptions *subscriptions
}

// subscriptions remembers every subscription so that they can be replayed
// when the broker connection is restored.
type subscriptions struct {
	mutex           sync.Mutex
	shouldReconnect bool
	list            []SubscriptionHandler
}

func (s *subscriptions) add(handler SubscriptionHandler) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.list = append(s.list, handler)
	return len(s.list)
}

func (s *subscriptions) markReconnecting() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.shouldReconnect = true
}

// pending returns the subscriptions to restore, if a reconnection happened.
func (s *subscriptions) pending() []SubscriptionHandler {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.shouldReconnect {
		return nil
	}
	s.shouldReconnect = false
	return append([]SubscriptionHandler{}, s.list...)
}

func NewClient(options *ClientOptions) Client {
	subs := &subscriptions{}
	statusTopic := path.Join(options.TopicPrefix, serverStatus)
	mqttOptions := mqtt.NewClientOptions().
		AddBroker(options.MqttUrl).
		SetClientID("smartplug-mqtt-"+uuid.New().String()).
		SetOrderMatters(false).
		SetUsername(options.Username).
		SetPassword(options.Password).
		SetAutoReconnect(true).
		// The broker flags the bridge offline when the connection is lost.
		SetWill(statusTopic, Offline, options.QoS, true).
		SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
			log.Info().Str("url", options.MqttUrl).Msg("Reconnecting to MQTT server.")
			subs.markReconnecting()
		}).
		SetOnConnectHandler(func(client mqtt.Client) {
			log.Info().Str("url", options.MqttUrl).Msg("Connected to MQTT server.")
			resubscribe(client, subs.pending(), options.QoS)
		})

	return &client{
		mqttClient:    mqtt.NewClient(mqttOptions),
		options:       *options,
		subscriptions: subs,
	}
}

func resubscribe(client mqtt.Client, pending []SubscriptionHandler, qos byte) {
	if len(pending) == 0 {
		return
	}
	log.Info().Int("count", len(pending)).Msg("Re-subscribing to topics")
	for _, sub := range pending {
		log.Debug().Str("topic", sub.Topic).Msg("Re-subscribing to topic")
		t := client.Subscribe(sub.Topic, qos, sub.MessageHandler)
		<-t.Done()
		if t.Error() != nil {
			log.Error().Err(t.Error()).Str("topic", sub.Topic).Msg("Error re-subscribing to topic")
		}
	}
}

func (c *client) Connect() error {
	t := c.mqttClient.Connect()
	<-t.Done()
	if t.Error() != nil {
		return fmt.Errorf("error connecting to MQTT broker: %w", t.Error())
	}
	return c.publishServerStatus(Online)
}

func (c *client) Disconnect() error {
	log.Info().Msg("Publishing Offline status to MQTT server.")
	if err := c.publishServerStatus(Offline); err != nil {
		return err
	}
	c.mqttClient.Disconnect(uint(c.options.DisconnectTimeout.Milliseconds()))
	log.Info().Msg("Disconnected from MQTT server.")
	return nil
}

func (c *client) publish(topic string, message interface{}, forceRetain bool) error {
	t := c.mqttClient.Publish(
		c.GetFullTopic(topic),
		c.options.QoS,
		c.options.Retain || forceRetain,
		message)
	<-t.Done()
	return t.Error()
}

func (c *client) Publish(topic string, message interface{}) error {
	return c.publish(topic, message, false)
}

func (c *client) PublishAndRetain(topic string, message interface{}) error {
	return c.publish(topic, message, true)
}

func (c *client) Subscribe(topic string, messageHandler mqtt.MessageHandler) error {
	topic = c.GetFullTopic(topic)
	count := c.subscriptions.add(SubscriptionHandler{
		Topic:          topic,
		MessageHandler: messageHandler,
	})
	log.Debug().Int("count", count).Str("topic", topic).Msg("Subscribing to topic")
	t := c.mqttClient.Subscribe(topic, c.options.QoS, messageHandler)
	<-t.Done()
	return t.Error()
}

// Publish the current bridge status, retained, into the MQTT topic.
func (c *client) publishServerStatus(message string) error {
	log.Info().Str("status", message).Str("topic", serverStatus).Msg("Updating server status topic")
	return c.PublishAndRetain(serverStatus, message)
}

func (c *client) ServerStatusTopic() string {
	return c.GetFullTopic(serverStatus)
}

func (c *client) GetFullTopic(topic string) string {
	return path.Join(c.options.TopicPrefix, topic)
}

func (c *client) DeviceTopics(name string) DeviceTopics {
	if c.options.NormalizeDeviceName {
		name = normalizeForTopicName(name)
	}
	return NewDeviceTopics(name)
}

func (c *client) RawClient() mqtt.Client {
	return c.mqttClient
}
