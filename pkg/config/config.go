package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ConfigDevice struct {
	Host                 string
	Port                 int
	Transport            string
	Timeout              time.Duration
	SimulatedOutlets     int
	SimulatedEnergyMeter bool
}
type ConfigMqtt struct {
	MqttUrl             string
	Username            string
	Password            string
	TopicPrefix         string
	NormalizeDeviceName bool
	Retain              bool
}
type ConfigHomeAssistant struct {
	DeviceHost           string
	DiscoveryEnabled     bool
	DiscoveryTopicPrefix string
	RemoveRegexpFromName string
	Retain               bool
}
type HealthCheckConfig struct {
	Enabled bool
	Port    int
}
type Config struct {
	Device         ConfigDevice
	Mqtt           ConfigMqtt
	HomeAssistant  ConfigHomeAssistant
	HealthCheck    HealthCheckConfig
	PollInterval   time.Duration
	RefreshAtStart bool
	LogLevel       string
}

const (
	undefined                               string = "__undefined__"
	envKeyDeviceHost                        string = "device_host"
	envKeyDevicePort                        string = "device_port"
	envKeyDeviceTransport                   string = "device_transport"
	envKeyDeviceTimeout                     string = "device_timeout"
	envKeyDeviceSimulatedOutlets            string = "device_simulated_outlets"
	envKeyDeviceSimulatedEnergyMeter        string = "device_simulated_energy_meter"
	envKeyMqttUrl                           string = "mqtt_url"
	envKeyMqttUsername                      string = "mqtt_username"
	envKeyMqttPassword                      string = "mqtt_password"
	envKeyMqttTopicPrefix                   string = "mqtt_topic_prefix"
	envKeyMqttNormalizeTopicName            string = "mqtt_normalize_device_name"
	envKeyMqttRetain                        string = "mqtt_retain"
	envKeyPollInterval                      string = "poll_interval"
	envKeyRefreshAtStart                    string = "refresh_at_start"
	envKeyLogLevel                          string = "log_level"
	envKeyHomeAssistantDiscoveryEnabled     string = "home_assistant_discovery_enabled"
	envKeyHomeAssistantDiscoveryPrefix      string = "home_assistant_discovery_prefix"
	envKeyHomeAssistantRemoveRegexpFromName string = "home_assistant_remove_regexp_from_name"
	envKeyHealthCheckEnabled                string = "health_check_enabled"
	envKeyHealthCheckPort                   string = "health_check_port"
)

var defaultConfig = map[string]interface{}{
	envKeyDeviceHost:                        undefined,
	envKeyDevicePort:                        9999,
	envKeyDeviceTransport:                   "tcp",
	envKeyDeviceTimeout:                     "5s",
	envKeyDeviceSimulatedOutlets:            6,
	envKeyDeviceSimulatedEnergyMeter:        true,
	envKeyMqttUrl:                           undefined,
	envKeyMqttUsername:                      "",
	envKeyMqttPassword:                      "",
	envKeyMqttTopicPrefix:                   "smartplug",
	envKeyMqttNormalizeTopicName:            true,
	envKeyMqttRetain:                        false,
	envKeyPollInterval:                      "10s",
	envKeyRefreshAtStart:                    true,
	envKeyLogLevel:                          "INFO",
	envKeyHomeAssistantDiscoveryEnabled:     false,
	envKeyHomeAssistantDiscoveryPrefix:      "homeassistant",
	envKeyHomeAssistantRemoveRegexpFromName: "",
	envKeyHealthCheckEnabled:                false,
	envKeyHealthCheckPort:                   8080,
}

// ReadConfig returns a Config read from config.yaml in the working directory
// and overridden by env variables.
func ReadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	// Set the current directory where the binary is being run.
	v.AddConfigPath(".")
	v.AutomaticEnv()
	for key, value := range defaultConfig {
		if value != undefined {
			v.SetDefault(key, value)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ReadInConfig error: %w", err)
		}
	}

	// Check for undefined fields.
	for fieldName, defaultValue := range defaultConfig {
		if defaultValue == undefined && !v.IsSet(fieldName) {
			return nil, fmt.Errorf("required field not found in config: %s", fieldName)
		}
	}

	config := &Config{
		Device: ConfigDevice{
			Host:                 v.GetString(envKeyDeviceHost),
			Port:                 v.GetInt(envKeyDevicePort),
			Transport:            v.GetString(envKeyDeviceTransport),
			Timeout:              v.GetDuration(envKeyDeviceTimeout),
			SimulatedOutlets:     v.GetInt(envKeyDeviceSimulatedOutlets),
			SimulatedEnergyMeter: v.GetBool(envKeyDeviceSimulatedEnergyMeter),
		},
		Mqtt: ConfigMqtt{
			MqttUrl:             v.GetString(envKeyMqttUrl),
			Username:            v.GetString(envKeyMqttUsername),
			Password:            v.GetString(envKeyMqttPassword),
			TopicPrefix:         v.GetString(envKeyMqttTopicPrefix),
			NormalizeDeviceName: v.GetBool(envKeyMqttNormalizeTopicName),
			Retain:              v.GetBool(envKeyMqttRetain),
		},
		HomeAssistant: ConfigHomeAssistant{
			DeviceHost:           v.GetString(envKeyDeviceHost),
			DiscoveryEnabled:     v.GetBool(envKeyHomeAssistantDiscoveryEnabled),
			DiscoveryTopicPrefix: v.GetString(envKeyHomeAssistantDiscoveryPrefix),
			RemoveRegexpFromName: v.GetString(envKeyHomeAssistantRemoveRegexpFromName),
			Retain:               v.GetBool(envKeyMqttRetain),
		},
		HealthCheck: HealthCheckConfig{
			Enabled: v.GetBool(envKeyHealthCheckEnabled),
			Port:    v.GetInt(envKeyHealthCheckPort),
		},
		PollInterval:   v.GetDuration(envKeyPollInterval),
		RefreshAtStart: v.GetBool(envKeyRefreshAtStart),
		LogLevel:       v.GetString(envKeyLogLevel),
	}

	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive: %s", config.PollInterval)
	}

	return config, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("%+v\n", c.Device)
}
