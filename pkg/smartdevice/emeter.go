package smartdevice

import (
	"context"
	"fmt"
)

// EnergyReading is a realtime reading of the energy meter.
type EnergyReading struct {
	// Power in W.
	Power float64 `json:"power"`
	// Voltage in V.
	Voltage float64 `json:"voltage"`
	// Current in A.
	Current float64 `json:"current"`
	// Total energy in kWh since the meter was reset.
	Total float64 `json:"total"`
}

// Newer firmwares report milli units, older ones plain units.
type rawEnergyReading struct {
	PowerMw   *float64 `mapstructure:"power_mw"`
	VoltageMv *float64 `mapstructure:"voltage_mv"`
	CurrentMa *float64 `mapstructure:"current_ma"`
	TotalWh   *float64 `mapstructure:"total_wh"`
	Power     *float64 `mapstructure:"power"`
	Voltage   *float64 `mapstructure:"voltage"`
	Current   *float64 `mapstructure:"current"`
	Total     *float64 `mapstructure:"total"`
}

func (r *rawEnergyReading) normalize() EnergyReading {
	return EnergyReading{
		Power:   pick(r.Power, r.PowerMw, 1000),
		Voltage: pick(r.Voltage, r.VoltageMv, 1000),
		Current: pick(r.Current, r.CurrentMa, 1000),
		Total:   pick(r.Total, r.TotalWh, 1000),
	}
}

func pick(unit *float64, milli *float64, divider float64) float64 {
	if unit != nil {
		return *unit
	}
	if milli != nil {
		return *milli / divider
	}
	return 0
}

// EnergyRealtime returns the current reading of the energy meter. The boolean
// is false, without error, when the device has no energy meter.
func (p *Plug) EnergyRealtime(ctx context.Context) (EnergyReading, bool, error) {
	if !p.HasEnergyMeter() {
		return EnergyReading{}, false, nil
	}
	result, err := p.command(ctx, moduleEmeter, actionGetRealtime, map[string]interface{}{})
	if err != nil {
		return EnergyReading{}, false, err
	}
	raw, err := decodeRecord[rawEnergyReading](result)
	if err != nil {
		return EnergyReading{}, false, fmt.Errorf("error decoding energy reading of %s: %w", p.identity.Host, err)
	}
	return raw.normalize(), true, nil
}
