package homeassistant

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/utils"
	"github.com/gosimple/slug"
)

type Domain string

const (
	Sensor Domain = "sensor"
	Switch Domain = "switch"
)

const manufacturer string = "TP-Link"

type DiscoveryConfig struct {
	Domain   Domain
	DeviceId string
	ObjectId string
	Config   MqttConfig
}

// Topic returns the discovery topic of the entity below the given prefix.
func (c *DiscoveryConfig) Topic(prefix string) string {
	return path.Join(prefix, string(c.Domain), c.DeviceId, c.ObjectId, "config")
}

type HomeAssistantDiscoveryInterface interface {
	// Returns the list of Home Assitant MQTT entities that each module would
	// be exporting for discovery.
	// This will be run after the method Start is called and therefore it can
	// assume that the logic there will be run.
	GetHomeAssistantEntities() ([]DiscoveryConfig, error)
}

// UniqueId builds an entity id safe for Home Assistant out of the given
// parts, e.g. ("8006ABC", "Outlet 1", "power") -> "8006abc_outlet_1_power".
func UniqueId(parts ...string) string {
	id := ""
	for _, part := range parts {
		if id != "" {
			id += "_"
		}
		id += slug.MakeLang(part, "en")
	}
	return slug.Substitute(id, map[string]string{"-": "_"})
}

type HomeAssistantDiscovery struct {
	mqttClient mqtt.Client
	config     *config.ConfigHomeAssistant

	discoveryConfigs []DiscoveryConfig
}

func NewHomeAssistantDiscovery(mqttClient mqtt.Client, config *config.ConfigHomeAssistant) *HomeAssistantDiscovery {
	return &HomeAssistantDiscovery{
		mqttClient:       mqttClient,
		config:           config,
		discoveryConfigs: []DiscoveryConfig{},
	}
}

func (hass *HomeAssistantDiscovery) AddConfigs(configs []DiscoveryConfig) {
	systemAvailability := Availability{
		Topic:               hass.mqttClient.ServerStatusTopic(),
		PayloadAvailable:    mqtt.Online,
		PayloadNotAvailable: mqtt.Offline,
	}
	for _, config := range configs {
		entityName := config.Config.GetName()
		config.Config.
			SetName(
				utils.RemoveRegexp(
					entityName,
					hass.config.RemoveRegexpFromName)).
			SetRetain(hass.config.Retain).
			AddAvailability(systemAvailability).
			SetAvailabilityMode("all")
		// Update the config with some generic attributes for all
		// configurations.
		device := config.Config.GetDevice()
		device.Manufacturer = manufacturer
		if hass.config.DeviceHost != "" {
			device.ConfigurationUrl = "http://" + hass.config.DeviceHost
		}

		hass.discoveryConfigs = append(hass.discoveryConfigs, config)
	}
}

// Configs returns the configs added so far.
func (hass *HomeAssistantDiscovery) Configs() []DiscoveryConfig {
	return hass.discoveryConfigs
}

func (hass *HomeAssistantDiscovery) PublishDiscoveryMessages() error {
	if !hass.config.DiscoveryEnabled {
		return nil
	}

	for _, config := range hass.discoveryConfigs {
		topic := config.Topic(hass.config.DiscoveryTopicPrefix)
		json, err := json.Marshal(config.Config)
		if err != nil {
			return fmt.Errorf("error serializing dicovery config to JSON: %w", err)
		}
		t := hass.mqttClient.RawClient().Publish(topic, 0, true, json)
		<-t.Done()
		if t.Error() != nil {
			return fmt.Errorf("error publishing discovery message to MQTT: %w", t.Error())
		}
	}
	return nil
}
