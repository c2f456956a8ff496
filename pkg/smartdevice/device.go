package smartdevice

import (
	"context"
)

// Device is the surface shared by single relay devices and strips.
type Device interface {
	Host() string
	Info(ctx context.Context) (*DeviceInfo, error)
	LED(ctx context.Context) (bool, error)
	SetLED(ctx context.Context, on bool) error
	HasEnergyMeter() bool
	SupportsDimming() bool
	StateInformation(ctx context.Context) (map[string]interface{}, error)
}

var (
	_ Device = (*Plug)(nil)
	_ Device = (*Strip)(nil)
)

// DeviceInfo holds the descriptive fields of a device.
type DeviceInfo struct {
	Host      string
	Alias     string
	Model     string
	Mac       string
	DeviceId  string
	HwVersion string
	SwVersion string
	Rssi      int
	Features  []string
	Outlets   []OutletInfo
}

// OutletInfo describes one child of a device.
type OutletInfo struct {
	Id    string
	Alias string
}

func newDeviceInfo(host string, info *SysInfo) *DeviceInfo {
	outlets := make([]OutletInfo, len(info.Children))
	for i, child := range info.Children {
		outlets[i] = OutletInfo{Id: child.Id, Alias: child.Alias}
	}
	return &DeviceInfo{
		Host:      host,
		Alias:     info.Alias,
		Model:     info.Model,
		Mac:       info.Mac,
		DeviceId:  info.DeviceId,
		HwVersion: info.HwVersion,
		SwVersion: info.SwVersion,
		Rssi:      info.Rssi,
		Features:  info.Features(),
		Outlets:   outlets,
	}
}

// Open fetches the status record of the device and returns a Strip when the
// device reports more than one child, a Plug otherwise.
func Open(ctx context.Context, identity *Identity) (Device, error) {
	plug := &Plug{identity: identity}
	info, err := plug.SysInfo(ctx)
	if err != nil {
		return nil, err
	}
	if len(info.Children) > 1 {
		return newStrip(identity, info)
	}
	plug.features = info.Features()
	return plug, nil
}
