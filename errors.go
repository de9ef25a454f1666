package mmc

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("serial device not found")
	ErrPermissionDenied = errors.New("permission denied accessing serial device")
	ErrInvalidBaudRate  = errors.New("invalid baud rate")
	ErrInvalidConfig    = errors.New("invalid serial configuration")
	ErrPortClosed       = errors.New("serial port is closed")

	// ErrTransportUnavailable is reported when a port could not be opened
	// within the retry budget, or when a closed transport is used.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// TransportError describes a failed transport operation on a port.
// It always matches ErrTransportUnavailable with errors.Is.
type TransportError struct {
	// Op is the operation that failed ("open", "write", "read", "transact", "close")
	Op string
	// Path is the port identifier
	Path string
	// Err is the underlying error, if any
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s %q", ErrTransportUnavailable, e.Op, e.Path)
	}
	return fmt.Sprintf("%s %s %q: %v", ErrTransportUnavailable, e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransportUnavailable
}
