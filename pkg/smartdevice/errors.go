package smartdevice

import "fmt"

// InvalidStateError is returned when a switch state other than ON or OFF is
// given as input.
type InvalidStateError struct {
	Value interface{}
}

func (e *InvalidStateError) Error() string {
	if s, ok := e.Value.(string); ok {
		return fmt.Sprintf("state %q is not valid", s)
	}
	return fmt.Sprintf("state must be a string, not %T", e.Value)
}

// OutletRangeError is returned when an outlet index does not address any
// outlet of the strip.
type OutletRangeError struct {
	Value interface{}
	Count int
}

func (e *OutletRangeError) Error() string {
	if i, ok := e.Value.(int); ok {
		return fmt.Sprintf("outlet index of %d is out of bounds (%d outlets)", i, e.Count)
	}
	return fmt.Sprintf("outlet index %v is not an integer", e.Value)
}

// ChildNotFoundError is returned when no child record matches the requested
// index.
type ChildNotFoundError struct {
	Index int
}

func (e *ChildNotFoundError) Error() string {
	return fmt.Sprintf("no child found with index %d", e.Index)
}

// TransportError wraps any failure coming from the transport. The underlying
// error is available through errors.Unwrap.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
