package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveRegexp(t *testing.T) {
	assert.Equal(t, "Location", RemoveRegexp("Outlet Location", "outlet"))
	assert.Equal(t, "location", RemoveRegexp("outlet location", "outlet"))
	assert.Equal(t, "location", RemoveRegexp("location outlet", "outlet"))
	assert.Equal(t, "Location", RemoveRegexp("Location Outlet", "outlet"))
	assert.Equal(t, "Location Outlet", RemoveRegexp("Location Outlet", ""))
	assert.Equal(t, "Location", RemoveRegexp("Location Outlet", "(outlet|plug)"))
	assert.Equal(t, "Location", RemoveRegexp("Location Plug", "(outlet|plug)"))
	assert.Equal(t, "location", RemoveRegexp("outlet_location", "(outlet|plug)_"))
	assert.Equal(t, "location", RemoveRegexp("plug_location", "(outlet|plug)_"))
}

func TestPrettyPrint(t *testing.T) {
	assert.Equal(t, `{"alias":"Desk"}`, PrettyPrint(map[string]string{"alias": "Desk"}))
}
