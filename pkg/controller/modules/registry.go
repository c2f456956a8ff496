package modules

import (
	"github.com/gaetancollaud/smartplug-mqtt/pkg/config"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/mqtt"
	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
)

// Interface for the different modules bridging the device and MQTT.
type Module interface {
	Start() error
	Stop() error
}

type ModuleBuilder func(mqtt.Client, smartdevice.Device, *config.Config) Module

// Register stores a builder function into the registy for external access.
// Register() can be called from init() on a module in this package and will
// automatically register a module.
func Register(name string, builder ModuleBuilder) {
	Modules[name] = builder
}

var Modules = map[string]ModuleBuilder{}
