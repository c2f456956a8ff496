package smartdevice

import (
	"context"
	"errors"
	"sync"
)

type sentCommand struct {
	childId string
	module  string
	action  string
	params  map[string]interface{}
}

// fakeTransport serves a fixed record and records every call.
type fakeTransport struct {
	mu sync.Mutex

	record   RawStatusRecord
	scoped   map[string]RawStatusRecord
	result   RawResult
	err      error
	queries  []string
	commands []sentCommand
}

func (f *fakeTransport) QueryDeviceInfo(ctx context.Context, childId string) (RawStatusRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, childId)
	if f.err != nil {
		return nil, f.err
	}
	if record, ok := f.scoped[childId]; ok {
		return record, nil
	}
	return f.record, nil
}

func (f *fakeTransport) SendCommand(ctx context.Context, childId string, module string, action string, params map[string]interface{}) (RawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, sentCommand{childId: childId, module: module, action: action, params: params})
	if f.err != nil {
		return nil, f.err
	}
	if action == actionSetRelay && childId == "" && f.record != nil {
		f.record["relay_state"] = params["state"]
	}
	if f.result != nil {
		return f.result, nil
	}
	return RawResult{"err_code": 0}, nil
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries) + len(f.commands)
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = nil
	f.commands = nil
}

var errUnreachable = errors.New("host unreachable")

func child(id string, state int, onTime int) map[string]interface{} {
	return map[string]interface{}{
		"id":      id,
		"alias":   "Outlet " + id[len(id)-2:],
		"state":   state,
		"on_time": onTime,
	}
}

func plugRecord(relay int, onTime int) RawStatusRecord {
	return RawStatusRecord{
		"alias":       "Desk",
		"model":       "HS107(EU)",
		"deviceId":    "8006ABCDEF",
		"mac":         "50:C7:BF:00:00:01",
		"feature":     "TIM",
		"relay_state": relay,
		"led_off":     0,
		"children": []interface{}{
			child("8006ABCDEF00", relay, onTime),
		},
	}
}

func stripRecord(feature string, children ...map[string]interface{}) RawStatusRecord {
	raw := make([]interface{}, len(children))
	for i, c := range children {
		raw[i] = c
	}
	return RawStatusRecord{
		"alias":       "Living room",
		"model":       "HS300(EU)",
		"deviceId":    "8006ABCDEF",
		"feature":     feature,
		"relay_state": 1,
		"led_off":     1,
		"children":    raw,
	}
}
