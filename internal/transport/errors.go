package transport

import "fmt"

// UnsupportedKindError is returned by Dial for an unrecognised Config.Kind.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("transport: unsupported kind %q (use serial or tcp)", e.Kind)
}

// WaitTimeoutError is returned by WaitForPath when the device path never
// appears within the bound (spec §2.1's SERIAL_PATH_WAIT_TIMEOUT_MS).
type WaitTimeoutError struct {
	Path    string
	Timeout string
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("transport: %q did not appear within %s", e.Path, e.Timeout)
}
