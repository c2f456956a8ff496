package protocol

import (
	"errors"
	"fmt"
)

const errCodeKey string = "err_code"

// Request is the JSON object sent to the device, for instance
//
//	{"context":{"child_ids":["...01"]},"system":{"set_relay_state":{"state":1}}}
type Request map[string]interface{}

// Response is the JSON object returned by the device. It mirrors the request
// with the result in place of the parameters.
type Response map[string]interface{}

// ErrMalformedResponse is returned when the device answer does not hold the
// expected module and action.
var ErrMalformedResponse = errors.New("malformed response")

// DeviceError is returned when the device answers with a non zero error code.
type DeviceError struct {
	Module  string
	Action  string
	Code    int
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("error on %s.%s: code=%d, message=%s", e.Module, e.Action, e.Code, e.Message)
}

func NewRequest(childId string, module string, action string, params map[string]interface{}) Request {
	if params == nil {
		params = map[string]interface{}{}
	}
	request := Request{
		module: map[string]interface{}{
			action: params,
		},
	}
	if childId != "" {
		request["context"] = map[string]interface{}{
			"child_ids": []string{childId},
		}
	}
	return request
}

// Result extracts the result of the given module and action from the response
// and checks its error code.
func (r Response) Result(module string, action string) (map[string]interface{}, error) {
	moduleResult, ok := r[module].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no module %s", ErrMalformedResponse, module)
	}
	result, ok := moduleResult[action].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no action %s.%s", ErrMalformedResponse, module, action)
	}
	if code, ok := result[errCodeKey]; ok {
		if c := toInt(code); c != 0 {
			message, _ := result["err_msg"].(string)
			return nil, &DeviceError{Module: module, Action: action, Code: c, Message: message}
		}
	}
	return result, nil
}

func toInt(value interface{}) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

// parseRequest splits a request into its context and its single command.
func parseRequest(request Request) (childIds []string, module string, action string, params map[string]interface{}, err error) {
	for key, value := range request {
		if key == "context" {
			ctx, _ := value.(map[string]interface{})
			switch ids := ctx["child_ids"].(type) {
			case []string:
				childIds = ids
			case []interface{}:
				for _, id := range ids {
					if s, ok := id.(string); ok {
						childIds = append(childIds, s)
					}
				}
			}
			continue
		}
		actions, ok := value.(map[string]interface{})
		if !ok || len(actions) != 1 {
			return nil, "", "", nil, fmt.Errorf("invalid command for module %s", key)
		}
		module = key
		for name, p := range actions {
			action = name
			params, _ = p.(map[string]interface{})
		}
	}
	if module == "" {
		return nil, "", "", nil, errors.New("no command in request")
	}
	return childIds, module, action, params, nil
}
