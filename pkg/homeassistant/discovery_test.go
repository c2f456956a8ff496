package homeassistant

import (
	"testing"

	mqtt_base "github.com/eclipse/paho.mqtt.golang"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMqttClient struct{}

func (c *stubMqttClient) Connect() error                                   { return nil }
func (c *stubMqttClient) Disconnect() error                                { return nil }
func (c *stubMqttClient) Publish(string, interface{}) error                { return nil }
func (c *stubMqttClient) PublishAndRetain(string, interface{}) error       { return nil }
func (c *stubMqttClient) Subscribe(string, mqtt_base.MessageHandler) error { return nil }
func (c *stubMqttClient) GetFullTopic(topic string) string                 { return "smartplug/" + topic }
func (c *stubMqttClient) ServerStatusTopic() string                        { return "smartplug/server/status" }
func (c *stubMqttClient) DeviceTopics(name string) mqtt.DeviceTopics {
	return mqtt.NewDeviceTopics(name)
}
func (c *stubMqttClient) RawClient() mqtt_base.Client { return nil }

func TestUniqueId(t *testing.T) {
	assert.Equal(t, "8006abc_outlet_1_power", UniqueId("8006ABC", "Outlet 1", "power"))
	assert.Equal(t, "8006abc", UniqueId("8006ABC"))
	assert.Equal(t, "living_room_lamp", UniqueId("Living room", "lamp"))
}

func TestDiscoveryTopic(t *testing.T) {
	c := DiscoveryConfig{Domain: Switch, DeviceId: "8006abc", ObjectId: "outlet_0"}
	assert.Equal(t, "homeassistant/switch/8006abc/outlet_0/config", c.Topic("homeassistant"))
}

func TestAddConfigs(t *testing.T) {
	hass := NewHomeAssistantDiscovery(&stubMqttClient{}, &config.ConfigHomeAssistant{
		DeviceHost:           "192.168.1.105",
		RemoveRegexpFromName: "outlet",
		Retain:               true,
	})

	hass.AddConfigs([]DiscoveryConfig{{
		Domain:   Switch,
		DeviceId: "8006abc",
		ObjectId: "outlet_0",
		Config: &SwitchConfig{
			BaseConfig: BaseConfig{Name: "Outlet Kettle"},
		},
	}})

	configs := hass.Configs()
	require.Len(t, configs, 1)
	c := configs[0].Config.(*SwitchConfig)
	assert.Equal(t, "Kettle", c.Name)
	assert.True(t, c.Retain)
	assert.Equal(t, "all", c.AvailabilityMode)
	assert.Equal(t, "smartplug/server/status", c.Availability[0].Topic)
	assert.Equal(t, "TP-Link", c.Device.Manufacturer)
	assert.Equal(t, "http://192.168.1.105", c.Device.ConfigurationUrl)
}

func TestPublishDiscoveryMessagesDisabled(t *testing.T) {
	hass := NewHomeAssistantDiscovery(&stubMqttClient{}, &config.ConfigHomeAssistant{})
	hass.AddConfigs([]DiscoveryConfig{{Domain: Sensor, Config: &SensorConfig{}}})
	// RawClient is never used when discovery is disabled.
	assert.NoError(t, hass.PublishDiscoveryMessages())
}
