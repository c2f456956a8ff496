package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
	"github.com/go-chi/chi/v5"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/rs/zerolog/log"
)

type Health interface {
	Start() error
	Stop() error
}

type health struct {
	config config.HealthCheckConfig
	health *healthgo.Health

	server *http.Server
}

func NewHealth(config config.HealthCheckConfig, mqttClient mqtt.Client, device smartdevice.Device) (Health, error) {
	h, err := healthgo.New(healthgo.WithComponent(healthgo.Component{
		Name:    "smartplug-mqtt",
		Version: "v1.0",
	}))
	if err != nil {
		return nil, fmt.Errorf("unable to create health check: %w", err)
	}

	err = h.Register(healthgo.Config{
		Name:      "mqtt",
		Timeout:   time.Second * 2,
		SkipOnErr: false,
		Check: func(ctx context.Context) error {
			if mqttClient.RawClient().IsConnectionOpen() {
				log.Trace().Msg("MQTT client is connected")
				return nil
			}
			return errors.New("MQTT client is not connected")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to register MQTT healthcheck: %w", err)
	}

	err = h.Register(healthgo.Config{
		Name:      "device",
		Timeout:   time.Second * 5,
		SkipOnErr: false,
		Check:     deviceCheck(device),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to register device healthcheck: %w", err)
	}

	return &health{
		config: config,
		health: h,
	}, nil
}

// deviceCheck succeeds when the device answers a status query.
func deviceCheck(device smartdevice.Device) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if _, err := device.Info(ctx); err != nil {
			return fmt.Errorf("device %s is not reachable: %w", device.Host(), err)
		}
		return nil
	}
}

func (h *health) Start() error {
	listenAddr := fmt.Sprintf("0.0.0.0:%d", h.config.Port)
	h.server = &http.Server{Addr: listenAddr, Handler: h.service()}
	go func() {
		log.Info().Msgf("Starting health check server on %s", listenAddr)
		err := h.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Unable to start health check server")
		}
	}()
	return nil
}

func (h *health) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("Health check server stopped")
	return nil
}

func (h *health) service() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.health.HandlerFunc)
	r.Get("/health/ready", h.health.HandlerFunc)
	r.Get("/health/live", h.health.HandlerFunc)
	return r
}
