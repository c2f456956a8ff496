package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/controller"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/debug"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := config.ReadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error found when reading the config.")
	}

	level, err := zerolog.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		log.Warn().Str("level", config.LogLevel).Msg("Unknown log level, keeping INFO.")
	} else {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("host", config.Device.Host).
		Str("transport", config.Device.Transport).
		Msg("Starting Smartplug MQTT!")

	// Add profiling server for live profile of the program.
	debugServerExitDone := &sync.WaitGroup{}
	debugServerExitDone.Add(1)
	srv, isReady := debug.StartDebugServer(debugServerExitDone)

	// Initialize controller responsible for all the bridge logic.
	controller, err := controller.NewController(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Error on creating the controller")
	}
	if err := controller.Start(); err != nil {
		log.Fatal().Err(err).Msg("Error on starting the controller")
	}
	isReady.Store(true)

	// Subscribe for interruption happening during execution.
	exitSignal := make(chan os.Signal, 2)
	signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)
	<-exitSignal

	// Gracefully stop all the modules loops and logic.
	log.Info().Msg("Shutting down controller...")
	isReady.Store(false)
	if err := controller.Stop(); err != nil {
		log.Fatal().Err(err).Msg("Error when stopping the controller")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("Shutting down debug server...")
	if err := srv.Shutdown(ctx); err != nil {
		panic(err) // failure/timeout shutting down the server gracefully.
	}

	debugServerExitDone.Wait()
	log.Info().Msg("Done exiting.")
}
