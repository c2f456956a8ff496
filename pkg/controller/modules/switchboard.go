package modules

import (
	"context"
	"fmt"

	"github.com/gaetancollaud/smartplug-mqtt/pkg/smartdevice"
)

// switchboard is the view of a device used by the modules. A single relay
// device is seen as a strip with one outlet.
type switchboard interface {
	NumOutlets() int
	States(ctx context.Context) (map[int]smartdevice.SwitchState, error)
	SetState(ctx context.Context, value interface{}, target smartdevice.Target) error
	EnergyRealtime(ctx context.Context, target smartdevice.Target) (map[int]smartdevice.EnergyReading, bool, error)
}

var _ switchboard = (*smartdevice.Strip)(nil)

type plugSwitchboard struct {
	plug *smartdevice.Plug
}

func (p *plugSwitchboard) NumOutlets() int {
	return 1
}

func (p *plugSwitchboard) States(ctx context.Context) (map[int]smartdevice.SwitchState, error) {
	state, err := p.plug.State(ctx)
	if err != nil {
		return nil, err
	}
	return map[int]smartdevice.SwitchState{0: state}, nil
}

func (p *plugSwitchboard) SetState(ctx context.Context, value interface{}, target smartdevice.Target) error {
	if err := p.validate(target); err != nil {
		return err
	}
	return p.plug.SetState(ctx, value)
}

func (p *plugSwitchboard) EnergyRealtime(ctx context.Context, target smartdevice.Target) (map[int]smartdevice.EnergyReading, bool, error) {
	if err := p.validate(target); err != nil {
		return nil, false, err
	}
	reading, ok, err := p.plug.EnergyRealtime(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return map[int]smartdevice.EnergyReading{0: reading}, true, nil
}

func (p *plugSwitchboard) validate(target smartdevice.Target) error {
	if index, ok := target.Index(); ok && index != 0 {
		return &smartdevice.OutletRangeError{Value: index, Count: 1}
	}
	return nil
}

func newSwitchboard(device smartdevice.Device) (switchboard, error) {
	switch d := device.(type) {
	case *smartdevice.Strip:
		return d, nil
	case *smartdevice.Plug:
		return &plugSwitchboard{plug: d}, nil
	}
	return nil, fmt.Errorf("unsupported device type %T", device)
}
