package smartdevice

import (
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

type SwitchState string

const (
	SwitchStateOn      SwitchState = "ON"
	SwitchStateOff     SwitchState = "OFF"
	SwitchStateUnknown SwitchState = "UNKNOWN"
)

const (
	relayOff int = 0
	relayOn  int = 1
)

func (s SwitchState) String() string {
	return string(s)
}

// DecodeState maps the raw relay value reported by the device to a switch
// state. Values other than 0 and 1 are reported as UNKNOWN.
func DecodeState(relay int) SwitchState {
	return decodeRelay(relay)
}

// decodeRelay maps a raw relay field to a switch state. Only the whole
// numbers 0 and 1 are known states, anything else, missing included, is
// UNKNOWN.
func decodeRelay(raw interface{}) SwitchState {
	if value, ok := relayNumber(raw); ok && value == math.Trunc(value) {
		switch value {
		case float64(relayOff):
			return SwitchStateOff
		case float64(relayOn):
			return SwitchStateOn
		}
	}
	log.Warn().Interface("relay_state", raw).Msg("Unknown state returned.")
	return SwitchStateUnknown
}

// relayIsOn returns true for any non zero numeric relay value.
func relayIsOn(raw interface{}) bool {
	value, ok := relayNumber(raw)
	return ok && value != 0
}

// relayNumber returns the numeric value of a raw relay field. The boolean is
// false when the field is missing or not a number.
func relayNumber(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// EncodeState parses a user given state. Only "ON" and "OFF" are accepted,
// case-insensitive.
func EncodeState(value interface{}) (SwitchState, error) {
	s, ok := value.(string)
	if !ok {
		return "", &InvalidStateError{Value: value}
	}
	switch SwitchState(strings.ToUpper(s)) {
	case SwitchStateOn:
		return SwitchStateOn, nil
	case SwitchStateOff:
		return SwitchStateOff, nil
	}
	return "", &InvalidStateError{Value: value}
}

func (s SwitchState) relay() int {
	if s == SwitchStateOn {
		return relayOn
	}
	return relayOff
}
