package modules

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt_base "github.com/eclipse/paho.mqtt.golang"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Outlets Module publishes the state of every outlet of the device and
// forwards the commands received on MQTT. The state is polled every poll
// interval and published when it changes.
type OutletsModule struct {
	mqttClient mqtt.Client
	device     smartdevice.Device
	board      switchboard

	refreshAtStart bool
	pollInterval   time.Duration
	requestTimeout time.Duration

	info   *smartdevice.DeviceInfo
	topics mqtt.DeviceTopics

	mutex      sync.Mutex
	lastStates map[int]smartdevice.SwitchState
	lastLed    string

	ticker     *time.Ticker
	tickerDone chan struct{}
}

func (c *OutletsModule) Start() error {
	board, err := newSwitchboard(c.device)
	if err != nil {
		return err
	}
	c.board = board

	ctx, cancel := c.context()
	info, err := c.device.Info(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("error fetching device info of %s: %w", c.device.Host(), err)
	}
	c.info = info
	c.topics = c.mqttClient.DeviceTopics(info.Alias)
	log.Info().
		Str("device", info.Alias).
		Str("model", info.Model).
		Int("outlets", c.board.NumOutlets()).
		Msg("Device found.")
	log.Debug().Str("info", utils.PrettyPrint(info)).Msg("Device info.")

	// Subscribe to MQTT events.
	for index := 0; index < c.board.NumOutlets(); index++ {
		if err := c.subscribe(c.topics.Outlet(index, mqtt.Command), smartdevice.One(index)); err != nil {
			return err
		}
	}
	if err := c.subscribe(c.topics.AllOutlets(mqtt.Command), smartdevice.All); err != nil {
		return err
	}
	ledTopic := c.topics.Led(mqtt.Command)
	if err := c.mqttClient.Subscribe(ledTopic, func(client mqtt_base.Client, message mqtt_base.Message) {
		payload := string(message.Payload())
		log.Trace().Str("topic", ledTopic).Str("payload", payload).Msg("Message Received.")
		if err := c.onLedMessage(payload); err != nil {
			log.Error().Str("topic", ledTopic).Err(err).Msg("Error handling MQTT Message.")
		}
	}); err != nil {
		return err
	}

	// Refresh outlet values.
	if c.refreshAtStart {
		go c.updateStates()
	}

	c.ticker = time.NewTicker(c.pollInterval)
	c.tickerDone = make(chan struct{})
	go func() {
		for {
			select {
			case <-c.tickerDone:
				return
			case <-c.ticker.C:
				c.updateStates()
			}
		}
	}()
	return nil
}

func (c *OutletsModule) Stop() error {
	if c.ticker == nil {
		return nil
	}
	c.ticker.Stop()
	c.tickerDone <- struct{}{}
	c.ticker = nil
	return nil
}

func (c *OutletsModule) subscribe(topic string, target smartdevice.Target) error {
	log.Trace().
		Str("topic", topic).
		Stringer("target", target).
		Msg("Subscribing for topic.")
	return c.mqttClient.Subscribe(topic, func(client mqtt_base.Client, message mqtt_base.Message) {
		payload := string(message.Payload())
		log.Trace().
			Str("topic", topic).
			Stringer("target", target).
			Str("payload", payload).
			Msg("Message Received.")
		if err := c.onMqttMessage(target, payload); err != nil {
			log.Error().
				Str("topic", topic).
				Err(err).
				Msg("Error handling MQTT Message.")
		}
	})
}

func (c *OutletsModule) onMqttMessage(target smartdevice.Target, message string) error {
	ctx, cancel := c.context()
	defer cancel()
	log.Info().
		Str("device", c.info.Alias).
		Stringer("target", target).
		Str("value", message).
		Msg("Setting state.")
	if err := c.board.SetState(ctx, strings.TrimSpace(message), target); err != nil {
		return err
	}
	return c.publishStates(ctx)
}

func (c *OutletsModule) onLedMessage(message string) error {
	state, err := smartdevice.EncodeState(strings.TrimSpace(message))
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	if err := c.device.SetLED(ctx, state == smartdevice.SwitchStateOn); err != nil {
		return err
	}
	return c.publishLed(ctx)
}

// updateStates publishes the outlets and LED states that changed since the
// last update.
func (c *OutletsModule) updateStates() {
	log.Debug().Str("device", c.info.Alias).Msg("Updating outlet states.")
	ctx, cancel := c.context()
	defer cancel()
	if err := c.publishStates(ctx); err != nil {
		log.Error().Err(err).Str("device", c.info.Alias).Msg("Error updating outlet states")
		return
	}
	if err := c.publishLed(ctx); err != nil {
		log.Error().Err(err).Str("device", c.info.Alias).Msg("Error updating LED state")
	}
}

func (c *OutletsModule) publishStates(ctx context.Context) error {
	states, err := c.board.States(ctx)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for index, state := range states {
		if previous, ok := c.lastStates[index]; ok && previous == state {
			continue
		}
		if err := c.mqttClient.Publish(c.topics.Outlet(index, mqtt.State), string(state)); err != nil {
			return fmt.Errorf("error publishing state of outlet %d: %w", index, err)
		}
		c.lastStates[index] = state
	}
	return nil
}

func (c *OutletsModule) publishLed(ctx context.Context) error {
	on, err := c.device.LED(ctx)
	if err != nil {
		return err
	}
	state := string(smartdevice.SwitchStateOff)
	if on {
		state = string(smartdevice.SwitchStateOn)
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if state == c.lastLed {
		return nil
	}
	if err := c.mqttClient.Publish(c.topics.Led(mqtt.State), state); err != nil {
		return fmt.Errorf("error publishing LED state: %w", err)
	}
	c.lastLed = state
	return nil
}

func (c *OutletsModule) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.requestTimeout)
}

// outletName returns the alias of the outlet, falling back to the device
// alias for single relay devices.
func (c *OutletsModule) outletName(index int) string {
	if c.board.NumOutlets() > 1 && index < len(c.info.Outlets) && c.info.Outlets[index].Alias != "" {
		return c.info.Outlets[index].Alias
	}
	if c.board.NumOutlets() > 1 {
		return fmt.Sprintf("%s %d", c.info.Alias, index+1)
	}
	return c.info.Alias
}

func (c *OutletsModule) GetHomeAssistantEntities() ([]homeassistant.DiscoveryConfig, error) {
	configs := []homeassistant.DiscoveryConfig{}
	deviceId := homeassistant.UniqueId(c.info.DeviceId)

	for index := 0; index < c.board.NumOutlets(); index++ {
		name := c.outletName(index)
		configs = append(configs, homeassistant.DiscoveryConfig{
			Domain:   homeassistant.Switch,
			DeviceId: deviceId,
			ObjectId: "outlet_" + strconv.Itoa(index),
			Config: &homeassistant.SwitchConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   haDevice(c.info),
					Name:     name,
					UniqueId: homeassistant.UniqueId(c.info.DeviceId, "outlet", strconv.Itoa(index)),
				},
				CommandTopic: c.mqttClient.GetFullTopic(c.topics.Outlet(index, mqtt.Command)),
				StateTopic:   c.mqttClient.GetFullTopic(c.topics.Outlet(index, mqtt.State)),
				PayloadOn:    string(smartdevice.SwitchStateOn),
				PayloadOff:   string(smartdevice.SwitchStateOff),
				DeviceClass:  "outlet",
			},
		})
	}

	configs = append(configs, homeassistant.DiscoveryConfig{
		Domain:   homeassistant.Switch,
		DeviceId: deviceId,
		ObjectId: "led",
		Config: &homeassistant.SwitchConfig{
			BaseConfig: homeassistant.BaseConfig{
				Device:   haDevice(c.info),
				Name:     "LED " + c.info.Alias,
				UniqueId: homeassistant.UniqueId(c.info.DeviceId, "led"),
			},
			CommandTopic: c.mqttClient.GetFullTopic(c.topics.Led(mqtt.Command)),
			StateTopic:   c.mqttClient.GetFullTopic(c.topics.Led(mqtt.State)),
			PayloadOn:    string(smartdevice.SwitchStateOn),
			PayloadOff:   string(smartdevice.SwitchStateOff),
			Icon:         "mdi:led-on",
		},
	})
	return configs, nil
}

func haDevice(info *smartdevice.DeviceInfo) homeassistant.Device {
	identifiers := []string{info.DeviceId}
	if info.Mac != "" {
		identifiers = append(identifiers, info.Mac)
	}
	return homeassistant.Device{
		Identifiers: identifiers,
		Model:       info.Model,
		Name:        info.Alias,
		SwVersion:   info.SwVersion,
		HwVersion:   info.HwVersion,
	}
}

func NewOutletsModule(mqttClient mqtt.Client, device smartdevice.Device, config *config.Config) Module {
	return &OutletsModule{
		mqttClient:     mqttClient,
		device:         device,
		refreshAtStart: config.RefreshAtStart,
		pollInterval:   config.PollInterval,
		requestTimeout: config.Device.Timeout,
		lastStates:     map[int]smartdevice.SwitchState{},
	}
}

func init() {
	Register("outlets", NewOutletsModule)
}
