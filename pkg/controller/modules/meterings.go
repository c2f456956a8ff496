package modules

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/homeassistant"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	meteringLabels = []string{"device", "outlet"}
	powerGauge     = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smartplug_outlet_power_watts",
		Help: "Realtime power drawn by an outlet",
	}, meteringLabels)
	voltageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smartplug_outlet_voltage_volts",
		Help: "Realtime voltage measured on an outlet",
	}, meteringLabels)
	currentGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smartplug_outlet_current_amperes",
		Help: "Realtime current drawn by an outlet",
	}, meteringLabels)
	energyGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smartplug_outlet_energy_kwh",
		Help: "Energy consumed by an outlet since the meter was reset",
	}, meteringLabels)
	lastSuccessGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "smartplug_metering_last_success_timestamp_seconds",
		Help: "Last successful metering update (epoch seconds)",
	}, []string{"device"})
)

// Meterings Module polls the energy meter of every outlet. The logic is the
// following: every poll interval the realtime readings are fetched and pushed
// to the corresponding topic in the MQTT server and to the Prometheus gauges.
type MeteringsModule struct {
	mqttClient mqtt.Client
	device     smartdevice.Device
	board      switchboard

	pollInterval   time.Duration
	requestTimeout time.Duration

	info   *smartdevice.DeviceInfo
	topics mqtt.DeviceTopics

	ticker     *time.Ticker
	tickerDone chan struct{}
}

func (c *MeteringsModule) Start() error {
	if !c.device.HasEnergyMeter() {
		log.Info().Str("host", c.device.Host()).Msg("Device has no energy meter, skipping meterings.")
		return nil
	}
	board, err := newSwitchboard(c.device)
	if err != nil {
		return err
	}
	c.board = board

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	info, err := c.device.Info(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("error fetching device info of %s: %w", c.device.Host(), err)
	}
	c.info = info
	c.topics = c.mqttClient.DeviceTopics(info.Alias)

	c.ticker = time.NewTicker(c.pollInterval)
	c.tickerDone = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.tickerDone:
				return
			case <-c.ticker.C:
				c.updateMeteringValues()
			}
		}
	}()
	return nil
}

func (c *MeteringsModule) Stop() error {
	if c.ticker == nil {
		return nil
	}
	c.ticker.Stop()
	c.tickerDone <- struct{}{}
	c.ticker = nil
	return nil
}

// readings fetches the realtime reading of every outlet, the outlets being
// queried concurrently.
func (c *MeteringsModule) readings(ctx context.Context) ([]*smartdevice.EnergyReading, error) {
	readings := make([]*smartdevice.EnergyReading, c.board.NumOutlets())
	g, ctx := errgroup.WithContext(ctx)
	for index := range readings {
		g.Go(func() error {
			values, ok, err := c.board.EnergyRealtime(ctx, smartdevice.One(index))
			if err != nil {
				return fmt.Errorf("error reading energy meter of outlet %d: %w", index, err)
			}
			if reading, found := values[index]; ok && found {
				readings[index] = &reading
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return readings, nil
}

func (c *MeteringsModule) updateMeteringValues() {
	log.Debug().Msg("Updating metering values.")

	ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
	defer cancel()
	readings, err := c.readings(ctx)
	if err != nil {
		log.Error().Err(err).Str("device", c.info.Alias).Msg("Error fetching metering values")
		return
	}

	for index, reading := range readings {
		if reading == nil {
			continue
		}
		outlet := strconv.Itoa(index)
		powerGauge.WithLabelValues(c.info.Alias, outlet).Set(reading.Power)
		voltageGauge.WithLabelValues(c.info.Alias, outlet).Set(reading.Voltage)
		currentGauge.WithLabelValues(c.info.Alias, outlet).Set(reading.Current)
		energyGauge.WithLabelValues(c.info.Alias, outlet).Set(reading.Total)

		if err := c.mqttClient.Publish(c.topics.Metering(index, mqtt.Power), fmt.Sprintf("%.1f", reading.Power)); err != nil {
			log.Error().Err(err).Int("outlet", index).Msg("Error updating power metering")
			continue
		}
		if err := c.mqttClient.Publish(c.topics.Metering(index, mqtt.Energy), fmt.Sprintf("%.3f", reading.Total)); err != nil {
			log.Error().Err(err).Int("outlet", index).Msg("Error updating energy metering")
			continue
		}
	}
	lastSuccessGauge.WithLabelValues(c.info.Alias).SetToCurrentTime()
}

func (c *MeteringsModule) GetHomeAssistantEntities() ([]homeassistant.DiscoveryConfig, error) {
	configs := []homeassistant.DiscoveryConfig{}
	if c.info == nil {
		return configs, nil
	}
	deviceId := homeassistant.UniqueId(c.info.DeviceId)

	for index := 0; index < c.board.NumOutlets(); index++ {
		name := c.info.Alias
		if c.board.NumOutlets() > 1 {
			name = fmt.Sprintf("%s %d", c.info.Alias, index+1)
		}
		outlet := strconv.Itoa(index)
		powerConfig := homeassistant.DiscoveryConfig{
			Domain:   homeassistant.Sensor,
			DeviceId: deviceId,
			ObjectId: "power_" + outlet,
			Config: &homeassistant.SensorConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   haDevice(c.info),
					Name:     "Power " + name,
					UniqueId: homeassistant.UniqueId(c.info.DeviceId, "outlet", outlet, "power"),
				},
				StateTopic:        c.mqttClient.GetFullTopic(c.topics.Metering(index, mqtt.Power)),
				UnitOfMeasurement: "W",
				DeviceClass:       "power",
				StateClass:        "measurement",
				Icon:              "mdi:flash",
			},
		}
		configs = append(configs, powerConfig)
		energyConfig := homeassistant.DiscoveryConfig{
			Domain:   homeassistant.Sensor,
			DeviceId: deviceId,
			ObjectId: "energy_" + outlet,
			Config: &homeassistant.SensorConfig{
				BaseConfig: homeassistant.BaseConfig{
					Device:   haDevice(c.info),
					Name:     "Energy " + name,
					UniqueId: homeassistant.UniqueId(c.info.DeviceId, "outlet", outlet, "energy"),
				},
				StateTopic:        c.mqttClient.GetFullTopic(c.topics.Metering(index, mqtt.Energy)),
				UnitOfMeasurement: "kWh",
				DeviceClass:       "energy",
				StateClass:        "total_increasing",
				Icon:              "mdi:lightning-bolt",
			},
		}
		configs = append(configs, energyConfig)
	}
	return configs, nil
}

func NewMeteringsModule(mqttClient mqtt.Client, device smartdevice.Device, config *config.Config) Module {
	return &MeteringsModule{
		mqttClient:     mqttClient,
		device:         device,
		pollInterval:   config.PollInterval,
		requestTimeout: config.Device.Timeout,
	}
}

func init() {
	prometheus.MustRegister(powerGauge, voltageGauge, currentGauge, energyGauge, lastSuccessGauge)
	Register("meterings", NewMeteringsModule)
}
