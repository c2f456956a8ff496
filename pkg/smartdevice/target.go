package smartdevice

import (
	"math"
	"strconv"
	"strings"
)

// allIndex is the legacy integer used to address every outlet.
const allIndex int = -1

// Target selects on which outlets a strip operation applies: either all of
// them or exactly one.
type Target struct {
	all   bool
	index int
}

// All addresses every outlet of a strip.
var All = Target{all: true}

// One addresses the outlet at the given index.
func One(index int) Target {
	return Target{index: index}
}

// IsAll returns true when the target addresses every outlet.
func (t Target) IsAll() bool {
	return t.all
}

// Index returns the outlet index. The boolean is false for the All target.
func (t Target) Index() (int, bool) {
	return t.index, !t.all
}

func (t Target) String() string {
	if t.all {
		return "all"
	}
	return strconv.Itoa(t.index)
}

// ParseTarget converts a loosely typed outlet index into a Target. The value -1
// and the string "all" map to All. Values that are not integers are rejected
// with an OutletRangeError.
func ParseTarget(value interface{}) (Target, error) {
	var index int
	switch v := value.(type) {
	case int:
		index = v
	case int32:
		index = int(v)
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return Target{}, &OutletRangeError{Value: value}
		}
		index = int(v)
	case string:
		if strings.EqualFold(v, All.String()) {
			return All, nil
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Target{}, &OutletRangeError{Value: value}
		}
		index = parsed
	default:
		return Target{}, &OutletRangeError{Value: value}
	}
	if index == allIndex {
		return All, nil
	}
	return One(index), nil
}
