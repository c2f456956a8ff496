package smartdevice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlug(t *testing.T, record RawStatusRecord) (*Plug, *fakeTransport) {
	transport := &fakeTransport{record: record}
	plug, err := NewPlug(context.Background(), NewIdentity("192.168.1.105", transport))
	require.NoError(t, err)
	transport.reset()
	return plug, transport
}

func TestPlugState(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(1, 0))
	ctx := context.Background()

	state, err := plug.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, SwitchStateOn, state)

	transport.record["relay_state"] = 0
	state, err = plug.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, SwitchStateOff, state)

	transport.record["relay_state"] = 7
	state, err = plug.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, SwitchStateUnknown, state)

	// Every read fetches a fresh record.
	assert.Len(t, transport.queries, 3)
}

func TestPlugSetStateRoundTrip(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(0, 0))
	ctx := context.Background()

	require.NoError(t, plug.SetState(ctx, "ON"))
	state, err := plug.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, SwitchStateOn, state)

	require.NoError(t, plug.SetState(ctx, "on"))
	require.Len(t, transport.commands, 2)
	for _, cmd := range transport.commands {
		assert.Equal(t, sentCommand{
			module: "system",
			action: "set_relay_state",
			params: map[string]interface{}{"state": 1},
		}, cmd)
	}
}

func TestPlugSetStateInvalidSendsNothing(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(0, 0))

	err := plug.SetState(context.Background(), "UNKNOWN")
	var stateErr *InvalidStateError
	assert.True(t, errors.As(err, &stateErr))
	assert.Equal(t, 0, transport.calls())
}

func TestPlugTurnOnOff(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(0, 0))
	ctx := context.Background()

	require.NoError(t, plug.TurnOn(ctx))
	require.NoError(t, plug.TurnOff(ctx))
	require.Len(t, transport.commands, 2)
	assert.Equal(t, map[string]interface{}{"state": 1}, transport.commands[0].params)
	assert.Equal(t, map[string]interface{}{"state": 0}, transport.commands[1].params)
}

func TestPlugIsOn(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(0, 0))
	ctx := context.Background()

	on, err := plug.IsOn(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	// Any non zero relay value reads as on, even when the state is unknown.
	transport.record["relay_state"] = 2
	on, err = plug.IsOn(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestPlugNegativeRelay(t *testing.T) {
	plug, _ := newTestPlug(t, plugRecord(-1, 0))
	ctx := context.Background()

	state, err := plug.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, SwitchStateUnknown, state)
	on, err := plug.IsOn(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestPlugOddRelayValues(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(0, 0))
	ctx := context.Background()

	for _, relay := range []interface{}{1.5, "garbage", true, "1", nil} {
		transport.record["relay_state"] = relay
		state, err := plug.State(ctx)
		require.NoError(t, err, "relay %v", relay)
		assert.Equal(t, SwitchStateUnknown, state, "relay %v", relay)
	}

	transport.record["relay_state"] = 1.0
	state, err := plug.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, SwitchStateOn, state)

	transport.record["relay_state"] = "garbage"
	on, err := plug.IsOn(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestPlugLED(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(0, 0))
	ctx := context.Background()

	led, err := plug.LED(ctx)
	require.NoError(t, err)
	assert.True(t, led)

	transport.record["led_off"] = 1
	led, err = plug.LED(ctx)
	require.NoError(t, err)
	assert.False(t, led)

	require.NoError(t, plug.SetLED(ctx, false))
	require.NoError(t, plug.SetLED(ctx, true))
	require.Len(t, transport.commands, 2)
	assert.Equal(t, "set_led_off", transport.commands[0].action)
	assert.Equal(t, map[string]interface{}{"off": 1}, transport.commands[0].params)
	assert.Equal(t, map[string]interface{}{"off": 0}, transport.commands[1].params)
}

func TestPlugCapabilities(t *testing.T) {
	plug, _ := newTestPlug(t, plugRecord(0, 0))
	assert.False(t, plug.HasEnergyMeter())
	assert.False(t, plug.SupportsDimming())

	record := plugRecord(0, 0)
	record["feature"] = "TIM:ENE"
	plug, transport := newTestPlug(t, record)
	assert.True(t, plug.HasEnergyMeter())

	brightness, ok, err := plug.Brightness(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, brightness)

	require.NoError(t, plug.SetBrightness(context.Background(), 50))
	assert.Equal(t, 0, transport.calls())
}

func TestPlugOnSince(t *testing.T) {
	plug, _ := newTestPlug(t, plugRecord(1, 3600))

	before := time.Now()
	since, err := plug.OnSince(context.Background(), 0)
	after := time.Now()
	require.NoError(t, err)

	assert.False(t, since.Before(before.Add(-time.Hour)))
	assert.False(t, since.After(after.Add(-time.Hour)))
}

func TestPlugOnSinceUnknownChild(t *testing.T) {
	plug, _ := newTestPlug(t, plugRecord(1, 3600))

	_, err := plug.OnSince(context.Background(), 1)
	var notFound *ChildNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, 1, notFound.Index)
}

func TestPlugStateInformation(t *testing.T) {
	plug, _ := newTestPlug(t, plugRecord(1, 60))

	info, err := plug.StateInformation(context.Background())
	require.NoError(t, err)
	assert.Len(t, info, 2)
	assert.Equal(t, true, info[InfoLedState])
	assert.WithinDuration(t, time.Now().Add(-time.Minute), info[InfoOnSince].(time.Time), time.Second)
}

func TestPlugTransportErrorIsPropagated(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(1, 0))
	transport.err = errUnreachable
	ctx := context.Background()

	_, err := plug.State(ctx)
	assert.ErrorIs(t, err, errUnreachable)
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))

	err = plug.TurnOn(ctx)
	assert.ErrorIs(t, err, errUnreachable)
	// A single attempt, no retry.
	assert.Len(t, transport.commands, 1)
}

func TestPlugInfo(t *testing.T) {
	plug, _ := newTestPlug(t, plugRecord(1, 0))

	info, err := plug.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.105", info.Host)
	assert.Equal(t, "Desk", info.Alias)
	assert.Equal(t, "HS107(EU)", info.Model)
	assert.Equal(t, []string{"TIM"}, info.Features)
	assert.Equal(t, []OutletInfo{{Id: "8006ABCDEF00", Alias: "Outlet 00"}}, info.Outlets)
}

func TestPlugEnergyRealtime(t *testing.T) {
	record := plugRecord(1, 0)
	record["feature"] = "TIM:ENE"
	plug, transport := newTestPlug(t, record)
	transport.result = RawResult{"power_mw": 12500, "voltage_mv": 230100, "current_ma": 54, "total_wh": 1500, "err_code": 0}

	reading, ok, err := plug.EnergyRealtime(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 12.5, reading.Power, 0.0001)
	assert.InDelta(t, 230.1, reading.Voltage, 0.0001)
	assert.InDelta(t, 0.054, reading.Current, 0.0001)
	assert.InDelta(t, 1.5, reading.Total, 0.0001)

	transport.result = RawResult{"power": 3.2, "voltage": 229.5, "current": 0.02, "total": 0.7}
	reading, ok, err = plug.EnergyRealtime(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, EnergyReading{Power: 3.2, Voltage: 229.5, Current: 0.02, Total: 0.7}, reading)
}

func TestPlugEnergyRealtimeUnavailable(t *testing.T) {
	plug, transport := newTestPlug(t, plugRecord(1, 0))

	_, ok, err := plug.EnergyRealtime(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, transport.calls())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	device, err := Open(ctx, NewIdentity("plug", &fakeTransport{record: plugRecord(1, 0)}))
	require.NoError(t, err)
	assert.IsType(t, &Plug{}, device)

	device, err = Open(ctx, NewIdentity("strip", &fakeTransport{record: stripRecord("TIM",
		child("8006ABCDEF00", 1, 10),
		child("8006ABCDEF01", 0, 0),
	)}))
	require.NoError(t, err)
	strip, ok := device.(*Strip)
	require.True(t, ok)
	assert.Equal(t, 2, strip.NumOutlets())
}
