package mqtt

import (
	"path"
	"strconv"
	"strings"
)

// Leaf topics.
const (
	State   string = "state"
	Command string = "command"
)

// Measurements published for every metered outlet.
const (
	Power  string = "power"
	Energy string = "energy"
)

const (
	outlets    string = "outlets"
	allOutlets string = "all"
	led        string = "led"
	meterings  string = "meterings"
)

// DeviceTopics builds the topics of one device, relative to the topic prefix:
//
//	<device>/outlets/<n>/state|command
//	<device>/all/command
//	<device>/led/state|command
//	<device>/meterings/<n>/power|energy
type DeviceTopics struct {
	device string
}

// NewDeviceTopics returns the topics of the device, its name being used as
// given.
func NewDeviceTopics(device string) DeviceTopics {
	return DeviceTopics{device: device}
}

// Device returns the name of the device as used in its topics.
func (t DeviceTopics) Device() string {
	return t.device
}

// Outlet returns the state or command topic of the outlet at index.
func (t DeviceTopics) Outlet(index int, leaf string) string {
	return path.Join(t.device, outlets, strconv.Itoa(index), leaf)
}

// AllOutlets returns the topic addressing every outlet at once.
func (t DeviceTopics) AllOutlets(leaf string) string {
	return path.Join(t.device, allOutlets, leaf)
}

func (t DeviceTopics) Led(leaf string) string {
	return path.Join(t.device, led, leaf)
}

// Metering returns the topic of a measurement of the outlet at index.
func (t DeviceTopics) Metering(index int, measurement string) string {
	return path.Join(t.device, meterings, strconv.Itoa(index), measurement)
}

// normalizeForTopicName keeps letters, digits, '_' and '-'. Spaces and slashes
// become '_', anything else is dropped.
func normalizeForTopicName(item string) string {
	var output strings.Builder
	for i := 0; i < len(item); i++ {
		c := item[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			output.WriteByte(c)
		} else if c == ' ' || c == '/' {
			output.WriteByte('_')
		}
	}
	return output.String()
}
