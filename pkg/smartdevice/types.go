package smartdevice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Feature markers found in the colon separated `feature` field.
const (
	FeatureEnergyMeter string = "ENE"
	FeatureTimer       string = "TIM"
)

// RawStatusRecord is the unprocessed snapshot of the device fields as returned
// by the transport.
type RawStatusRecord = map[string]interface{}

// RawResult is the unprocessed answer to a command.
type RawResult = map[string]interface{}

// Transport is the collaborator talking to the physical device. An empty
// childId addresses the whole device, otherwise the call is scoped to the
// given outlet.
type Transport interface {
	QueryDeviceInfo(ctx context.Context, childId string) (RawStatusRecord, error)
	SendCommand(ctx context.Context, childId string, module string, action string, params map[string]interface{}) (RawResult, error)
}

// Identity is the network identity of a device. It is shared by reference
// between a strip and all its outlets.
type Identity struct {
	Host      string
	Transport Transport
}

func NewIdentity(host string, transport Transport) *Identity {
	return &Identity{Host: host, Transport: transport}
}

// SysInfo is the decoded status record of a device.
type SysInfo struct {
	Alias      string      `mapstructure:"alias"`
	Model      string      `mapstructure:"model"`
	Mac        string      `mapstructure:"mac"`
	DeviceId   string      `mapstructure:"deviceId"`
	HwVersion  string      `mapstructure:"hw_ver"`
	SwVersion  string      `mapstructure:"sw_ver"`
	Rssi       int         `mapstructure:"rssi"`
	Feature    string      `mapstructure:"feature"`
	RelayState interface{} `mapstructure:"relay_state"`
	LedOff     int         `mapstructure:"led_off"`
	OnTime     int64       `mapstructure:"on_time"`
	Brightness int         `mapstructure:"brightness"`
	Children   []Child     `mapstructure:"children"`
}

// Child is the status of one outlet as embedded in the record of its parent.
type Child struct {
	Id         string      `mapstructure:"id"`
	Alias      string      `mapstructure:"alias"`
	State      interface{} `mapstructure:"state"`
	RelayState interface{} `mapstructure:"relay_state"`
	OnTime     int64       `mapstructure:"on_time"`
}

// Features returns the capability markers of the device.
func (s *SysInfo) Features() []string {
	return splitFeatures(s.Feature)
}

// relay returns the raw relay value of the child, nil when missing. Strips
// report it as `state`, some firmwares as `relay_state`.
func (c *Child) relay() interface{} {
	if c.State != nil {
		return c.State
	}
	return c.RelayState
}

// ChildIndex derives the numeric index of a child from its id. The id is the
// device id followed by the index on two characters.
func ChildIndex(id string) (int, error) {
	if len(id) < 2 {
		return 0, fmt.Errorf("child id %q is too short to hold an index", id)
	}
	index, err := strconv.Atoi(id[len(id)-2:])
	if err != nil {
		return 0, fmt.Errorf("child id %q does not end with an index: %w", id, err)
	}
	return index, nil
}

func findChild(children []Child, index int) (*Child, error) {
	for i := range children {
		childIndex, err := ChildIndex(children[i].Id)
		if err != nil {
			continue
		}
		if childIndex == index {
			return &children[i], nil
		}
	}
	return nil, &ChildNotFoundError{Index: index}
}

func splitFeatures(feature string) []string {
	if feature == "" {
		return nil
	}
	return strings.Split(feature, ":")
}

// decodeSysInfo maps a raw record into a SysInfo. Relay fields are kept raw
// and only interpreted by decodeRelay and relayIsOn.
func decodeSysInfo(record RawStatusRecord) (*SysInfo, error) {
	info := &SysInfo{}
	if err := decodeInto(record, info); err != nil {
		return nil, err
	}
	return info, nil
}

// decodeRecord takes a generic record and maps it to the given structure.
func decodeRecord[T any](record interface{}) (*T, error) {
	res := new(T)
	if err := decodeInto(record, res); err != nil {
		return nil, err
	}
	return res, nil
}

func decodeInto(record interface{}, result interface{}) error {
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		WeaklyTypedInput: true,
		ErrorUnset:       false,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return fmt.Errorf("error building decoder: %w", err)
	}
	if err = decoder.Decode(record); err != nil {
		return fmt.Errorf("error decoding record: %w", err)
	}
	return nil
}
