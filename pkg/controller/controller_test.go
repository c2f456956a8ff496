package controller

import (
	"testing"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControllerUnknownTransport(t *testing.T) {
	_, err := NewController(&config.Config{
		Device: config.ConfigDevice{Host: "192.168.1.105", Transport: "serial"},
	})
	assert.EqualError(t, err, "unknown transport kind 'serial'")
}

func TestNewControllerSimulator(t *testing.T) {
	c, err := NewController(&config.Config{
		Device: config.ConfigDevice{Host: "simulator", Transport: "simulator", SimulatedOutlets: 4},
		Mqtt:   config.ConfigMqtt{MqttUrl: "tcp://localhost:1883", TopicPrefix: "smartplug"},
	})
	require.NoError(t, err)
	assert.NotNil(t, c.transport)
	assert.Empty(t, c.modules)
	assert.Equal(t, "smartplug/server/status", c.mqttClient.ServerStatusTopic())
}
