package display

import "fmt"

// InvalidArgumentError is returned when an operation is refused before
// any I/O: guest 0 used as a hotplug target, an unknown port, or a
// guest with no instantiated instance.
type InvalidArgumentError struct {
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return e.Reason
}

// NotAppliedError is returned when a write succeeded but re-reading
// the attribute shows the control interface has not applied it yet.
// The interface is asynchronous; retrying is the caller's call.
type NotAppliedError struct {
	Attribute string
	Want      int
	Got       int
}

func (e NotAppliedError) Error() string {
	return fmt.Sprintf("%s not applied: wrote %d, read back %d", e.Attribute, e.Want, e.Got)
}

// UnavailableError is returned when a control file cannot be opened:
// driver not loaded, permissions, or guest not instantiated.
type UnavailableError struct {
	Path string
	Err  error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("control interface unavailable at %s: %v", e.Path, e.Err)
}

func (e UnavailableError) Unwrap() error {
	return e.Err
}
