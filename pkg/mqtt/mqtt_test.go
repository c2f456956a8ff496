package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "test", normalizeForTopicName("test"))
	assert.Equal(t, "test_test-test", normalizeForTopicName("test_test-test"))
	assert.Equal(t, "TeSt", normalizeForTopicName("TeSt"))
	assert.Equal(t, "test_test", normalizeForTopicName("test test"))
	assert.Equal(t, "test_test", normalizeForTopicName("test/test"))
	assert.Equal(t, "tst", normalizeForTopicName("t√©$`^'st"))
	assert.Equal(t, "test123", normalizeForTopicName("test123"))
}

func TestDeviceTopics(t *testing.T) {
	c := NewClient(NewClientOptions().SetTopicPrefix("plugs"))
	topics := c.DeviceTopics("Living room")

	assert.Equal(t, "Living_room", topics.Device())
	assert.Equal(t, "Living_room/outlets/2/state", topics.Outlet(2, State))
	assert.Equal(t, "Living_room/outlets/0/command", topics.Outlet(0, Command))
	assert.Equal(t, "Living_room/all/command", topics.AllOutlets(Command))
	assert.Equal(t, "Living_room/led/state", topics.Led(State))
	assert.Equal(t, "Living_room/meterings/1/energy", topics.Metering(1, Energy))
	assert.Equal(t, "plugs/Living_room/meterings/1/power", c.GetFullTopic(topics.Metering(1, Power)))
	assert.Equal(t, "plugs/server/status", c.ServerStatusTopic())

	raw := NewClient(NewClientOptions().SetNormalizeDeviceName(false))
	assert.Equal(t, "Living room/led/command", raw.DeviceTopics("Living room").Led(Command))
}

func TestSubscriptionsReplay(t *testing.T) {
	subs := &subscriptions{}
	assert.Equal(t, 1, subs.add(SubscriptionHandler{Topic: "a"}))
	assert.Equal(t, 2, subs.add(SubscriptionHandler{Topic: "b"}))

	// Nothing to replay on the first connection.
	assert.Empty(t, subs.pending())

	subs.markReconnecting()
	pending := subs.pending()
	assert.Len(t, pending, 2)
	assert.Equal(t, "b", pending[1].Topic)
	assert.Empty(t, subs.pending())
}
