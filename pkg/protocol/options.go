package protocol

import (
	"time"
)

type Kind string

const (
	KindTcp       Kind = "tcp"
	KindWebsocket Kind = "websocket"
	KindSimulator Kind = "simulator"
)

// ClientOptions contains configurable options for a device transport.
type ClientOptions struct {
	Kind    Kind
	Host    string
	Port    int
	Timeout time.Duration

	// Only used by the simulator.
	SimulatedOutlets     int
	SimulatedEnergyMeter bool
}

// NewClientOptions will create a new ClientOptions type with some default
// values.
//
//	Kind: tcp
//	Port: 9999
//	Timeout: 5 seconds
func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		Kind:             KindTcp,
		Host:             "",
		Port:             9999,
		Timeout:          5 * time.Second,
		SimulatedOutlets: 1,
	}
}

// SetKind will set which transport is used to reach the device.
func (o *ClientOptions) SetKind(kind Kind) *ClientOptions {
	o.Kind = kind
	return o
}

// SetHost will set the address of the device.
func (o *ClientOptions) SetHost(host string) *ClientOptions {
	o.Host = host
	return o
}

// SetPort will set the port of the device.
func (o *ClientOptions) SetPort(port int) *ClientOptions {
	o.Port = port
	return o
}

// SetTimeout will set the maximum duration of a request when the context has
// no deadline.
func (o *ClientOptions) SetTimeout(timeout time.Duration) *ClientOptions {
	o.Timeout = timeout
	return o
}

// SetSimulated will set the shape of the simulated device.
func (o *ClientOptions) SetSimulated(outlets int, energyMeter bool) *ClientOptions {
	o.SimulatedOutlets = outlets
	o.SimulatedEnergyMeter = energyMeter
	return o
}
