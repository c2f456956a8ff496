package controller

import (
	"context"
	"fmt"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/controller/modules"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/health"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/protocol"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
	"github.com/rs/zerolog/log"
)

type Controller struct {
	config     *config.Config
	transport  protocol.Transport
	device     smartdevice.Device
	mqttClient mqtt.Client
	discovery  *homeassistant.HomeAssistantDiscovery
	health     health.Health

	modules map[string]modules.Module
}

func NewController(config *config.Config) (*Controller, error) {
	// Create device transport.
	deviceOptions := protocol.NewClientOptions().
		SetKind(protocol.Kind(config.Device.Transport)).
		SetHost(config.Device.Host).
		SetPort(config.Device.Port).
		SetTimeout(config.Device.Timeout).
		SetSimulated(config.Device.SimulatedOutlets, config.Device.SimulatedEnergyMeter)
	transport, err := protocol.NewClient(deviceOptions)
	if err != nil {
		return nil, err
	}

	mqttOptions := mqtt.NewClientOptions().
		SetMqttUrl(config.Mqtt.MqttUrl).
		SetUsername(config.Mqtt.Username).
		SetPassword(config.Mqtt.Password).
		SetTopicPrefix(config.Mqtt.TopicPrefix).
		SetNormalizeDeviceName(config.Mqtt.NormalizeDeviceName).
		SetRetain(config.Mqtt.Retain)
	mqttClient := mqtt.NewClient(mqttOptions)

	return &Controller{
		config:     config,
		transport:  transport,
		mqttClient: mqttClient,
		discovery:  homeassistant.NewHomeAssistantDiscovery(mqttClient, &config.HomeAssistant),
		modules:    map[string]modules.Module{},
	}, nil
}

func (c *Controller) Start() error {
	log.Info().Msg("Starting controller.")
	if err := c.mqttClient.Connect(); err != nil {
		return fmt.Errorf("error connecting to MQTT client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Device.Timeout)
	defer cancel()
	device, err := smartdevice.Open(ctx, smartdevice.NewIdentity(c.config.Device.Host, c.transport))
	if err != nil {
		return fmt.Errorf("error opening device %s: %w", c.config.Device.Host, err)
	}
	c.device = device

	for name, builder := range modules.Modules {
		c.modules[name] = builder(c.mqttClient, device, c.config)
	}
	for name, module := range c.modules {
		log.Info().Str("module", name).Msg("Starting module.")
		if err := module.Start(); err != nil {
			return fmt.Errorf("error starting module '%s': %w", name, err)
		}
		if discoverable, ok := module.(homeassistant.HomeAssistantDiscoveryInterface); ok {
			configs, err := discoverable.GetHomeAssistantEntities()
			if err != nil {
				return fmt.Errorf("error listing entities of module '%s': %w", name, err)
			}
			c.discovery.AddConfigs(configs)
		}
	}
	if err := c.discovery.PublishDiscoveryMessages(); err != nil {
		return err
	}

	if c.config.HealthCheck.Enabled {
		h, err := health.NewHealth(c.config.HealthCheck, c.mqttClient, device)
		if err != nil {
			return err
		}
		c.health = h
		if err := c.health.Start(); err != nil {
			return fmt.Errorf("error starting health check: %w", err)
		}
	}

	return nil
}

func (c *Controller) Stop() error {
	log.Info().Msg("Stopping controller.")

	if c.health != nil {
		if err := c.health.Stop(); err != nil {
			return fmt.Errorf("error stopping health check: %w", err)
		}
	}

	for name, module := range c.modules {
		log.Info().Str("module", name).Msg("Stopping module.")
		if err := module.Stop(); err != nil {
			return fmt.Errorf("error stopping module '%s': %w", name, err)
		}
	}

	if err := c.mqttClient.Disconnect(); err != nil {
		return fmt.Errorf("error disconnecting to MQTT client: %w", err)
	}
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("error closing connection to device: %w", err)
	}

	return nil
}
