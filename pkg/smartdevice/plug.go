package smartdevice

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Commands understood by the devices.
const (
	moduleSystem      string = "system"
	moduleEmeter      string = "emeter"
	actionSetRelay    string = "set_relay_state"
	actionSetLedOff   string = "set_led_off"
	actionSetAlias    string = "set_dev_alias"
	actionGetRealtime string = "get_realtime"
)

// Keys of the presentation bundle returned by StateInformation.
const (
	InfoLedState string = "LED state"
	InfoOnSince  string = "On since"
)

// Plug is a device driving a single relay. A Plug scoped with a child id is
// used as proxy for one outlet of a strip.
type Plug struct {
	identity *Identity
	childId  string
	features []string
}

// NewPlug fetches the status record once to discover the capabilities of the
// device and returns a Plug addressing the whole device.
func NewPlug(ctx context.Context, identity *Identity) (*Plug, error) {
	plug := &Plug{identity: identity}
	info, err := plug.SysInfo(ctx)
	if err != nil {
		return nil, err
	}
	plug.features = info.Features()
	return plug, nil
}

// newScopedPlug builds a Plug bound to one child of the device. Features are
// inherited from the parent.
func newScopedPlug(identity *Identity, childId string, features []string) *Plug {
	return &Plug{
		identity: identity,
		childId:  childId,
		features: features,
	}
}

// Host returns the address of the device.
func (p *Plug) Host() string {
	return p.identity.Host
}

// ChildId returns the context used for every call, empty for the whole
// device.
func (p *Plug) ChildId() string {
	return p.childId
}

// SysInfo fetches a fresh status record from the device.
func (p *Plug) SysInfo(ctx context.Context) (*SysInfo, error) {
	record, err := p.identity.Transport.QueryDeviceInfo(ctx, p.childId)
	if err != nil {
		return nil, &TransportError{Op: "query device info", Err: err}
	}
	info, err := decodeSysInfo(record)
	if err != nil {
		return nil, fmt.Errorf("error decoding status of %s: %w", p.identity.Host, err)
	}
	return info, nil
}

func (p *Plug) command(ctx context.Context, module string, action string, params map[string]interface{}) (RawResult, error) {
	log.Debug().
		Str("host", p.identity.Host).
		Str("context", p.childId).
		Str("module", module).
		Str("action", action).
		Interface("params", params).
		Msg("Sending command")
	result, err := p.identity.Transport.SendCommand(ctx, p.childId, module, action, params)
	if err != nil {
		return nil, &TransportError{Op: module + "." + action, Err: err}
	}
	return result, nil
}

// State returns the switch state of the relay.
func (p *Plug) State(ctx context.Context) (SwitchState, error) {
	info, err := p.SysInfo(ctx)
	if err != nil {
		return SwitchStateUnknown, err
	}
	return decodeRelay(info.RelayState), nil
}

// SetState turns the relay on or off given "ON" or "OFF". Invalid values fail
// before any command is sent.
func (p *Plug) SetState(ctx context.Context, value interface{}) error {
	state, err := EncodeState(value)
	if err != nil {
		return err
	}
	return p.setRelay(ctx, state)
}

func (p *Plug) setRelay(ctx context.Context, state SwitchState) error {
	_, err := p.command(ctx, moduleSystem, actionSetRelay, map[string]interface{}{"state": state.relay()})
	return err
}

// IsOn returns true when the relay reports any non zero value.
func (p *Plug) IsOn(ctx context.Context) (bool, error) {
	info, err := p.SysInfo(ctx)
	if err != nil {
		return false, err
	}
	return relayIsOn(info.RelayState), nil
}

func (p *Plug) TurnOn(ctx context.Context) error {
	return p.setRelay(ctx, SwitchStateOn)
}

func (p *Plug) TurnOff(ctx context.Context) error {
	return p.setRelay(ctx, SwitchStateOff)
}

// LED returns whether the indicator LED is enabled. The device reports the
// inverted value.
func (p *Plug) LED(ctx context.Context) (bool, error) {
	info, err := p.SysInfo(ctx)
	if err != nil {
		return false, err
	}
	return info.LedOff == 0, nil
}

// SetLED enables or disables the indicator LED (night mode).
func (p *Plug) SetLED(ctx context.Context, on bool) error {
	off := 1
	if on {
		off = 0
	}
	_, err := p.command(ctx, moduleSystem, actionSetLedOff, map[string]interface{}{"off": off})
	return err
}

// HasEnergyMeter returns true when the device advertises energy metering.
// Capabilities describe the hardware and are read at construction.
func (p *Plug) HasEnergyMeter() bool {
	return lo.Contains(p.features, FeatureEnergyMeter)
}

// SupportsDimming is always false for this device family.
func (p *Plug) SupportsDimming() bool {
	return false
}

// Brightness returns the brightness in percent. The boolean is false when the
// device is not dimmable.
func (p *Plug) Brightness(ctx context.Context) (int, bool, error) {
	if !p.SupportsDimming() {
		return 0, false, nil
	}
	info, err := p.SysInfo(ctx)
	if err != nil {
		return 0, false, err
	}
	return lo.Clamp(info.Brightness, 0, 100), true, nil
}

// SetBrightness is not supported by this family, the value is discarded.
func (p *Plug) SetBrightness(ctx context.Context, value int) error {
	log.Debug().Str("host", p.identity.Host).Int("brightness", value).Msg("Device is not dimmable, ignoring brightness.")
	return nil
}

// OnSince returns when the relay of the child with the given index was turned
// on. Even a single relay device reports itself as a one element children
// list.
func (p *Plug) OnSince(ctx context.Context, childIndex int) (time.Time, error) {
	info, err := p.SysInfo(ctx)
	if err != nil {
		return time.Time{}, err
	}
	child, err := findChild(info.Children, childIndex)
	if err != nil {
		return time.Time{}, err
	}
	return onSince(child.OnTime), nil
}

// StateInformation returns a user presentable bundle of the device state.
func (p *Plug) StateInformation(ctx context.Context) (map[string]interface{}, error) {
	led, err := p.LED(ctx)
	if err != nil {
		return nil, err
	}
	since, err := p.OnSince(ctx, 0)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		InfoLedState: led,
		InfoOnSince:  since,
	}, nil
}

// SetAlias renames the device, or the outlet for scoped plugs.
func (p *Plug) SetAlias(ctx context.Context, alias string) error {
	_, err := p.command(ctx, moduleSystem, actionSetAlias, map[string]interface{}{"alias": alias})
	return err
}

// Info returns the descriptive fields of the device.
func (p *Plug) Info(ctx context.Context) (*DeviceInfo, error) {
	info, err := p.SysInfo(ctx)
	if err != nil {
		return nil, err
	}
	return newDeviceInfo(p.identity.Host, info), nil
}

func onSince(onTime int64) time.Time {
	return time.Now().Add(-time.Duration(onTime) * time.Second)
}
