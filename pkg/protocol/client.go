package protocol

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	moduleSystem  string = "system"
	actionSysInfo string = "get_sysinfo"
)

// Transport is the interface used to talk to a device. It is implemented on
// top of the different exchangers (tcp, websocket, simulator).
type Transport interface {
	// QueryDeviceInfo returns the status record of the device, scoped to one
	// child when childId is not empty.
	QueryDeviceInfo(ctx context.Context, childId string) (map[string]interface{}, error)
	// SendCommand sends one command and returns its result.
	SendCommand(ctx context.Context, childId string, module string, action string, params map[string]interface{}) (map[string]interface{}, error)
	// Close releases the connection to the device.
	Close() error
}

// exchanger sends one request and waits for its response.
type exchanger interface {
	exchange(ctx context.Context, request Request) (Response, error)
	close() error
}

// client implements Transport.
type client struct {
	host      string
	exchanger exchanger
}

// NewClient creates the transport described by the options.
func NewClient(options *ClientOptions) (Transport, error) {
	var e exchanger
	switch options.Kind {
	case KindTcp:
		e = newTcpExchanger(options)
	case KindWebsocket:
		e = newWebsocketExchanger(options)
	case KindSimulator:
		e = NewSimulator(options.Host, options.SimulatedOutlets, options.SimulatedEnergyMeter)
	default:
		return nil, fmt.Errorf("unknown transport kind '%s'", options.Kind)
	}
	return &client{host: options.Host, exchanger: e}, nil
}

func (c *client) QueryDeviceInfo(ctx context.Context, childId string) (map[string]interface{}, error) {
	return c.SendCommand(ctx, childId, moduleSystem, actionSysInfo, nil)
}

func (c *client) SendCommand(ctx context.Context, childId string, module string, action string, params map[string]interface{}) (map[string]interface{}, error) {
	request := NewRequest(childId, module, action, params)
	response, err := c.exchanger.exchange(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("error calling %s.%s on %s: %w", module, action, c.host, err)
	}
	log.Trace().
		Str("host", c.host).
		Str("module", module).
		Str("action", action).
		Interface("response", response).
		Msg("Response received")
	return response.Result(module, action)
}

func (c *client) Close() error {
	return c.exchanger.close()
}
