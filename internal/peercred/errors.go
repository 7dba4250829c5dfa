package peercred

import "errors"

// ErrUnsupported is returned when peer-credential resolution is not
// available for the connection's transport or platform.
var ErrUnsupported = errors.New("peercred: unsupported on this connection or platform")
