package inels

import "errors"

// Domain errors for the inels package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, inels.ErrDeviceDisconnected) {
//	    // wait for the connected topic to flip, then retry
//	}
var (
	// ErrInvalidAddress is returned when a node or device identifier is malformed.
	ErrInvalidAddress = errors.New("inels: invalid address")

	// ErrUnknownDeviceType is returned for a type tag with no registered codec.
	ErrUnknownDeviceType = errors.New("inels: unknown device type")

	// ErrStatusUnknown is returned when status is read before any status message arrived.
	ErrStatusUnknown = errors.New("inels: status unknown")

	// ErrStatusNotSupported is returned when the device type does not report status.
	ErrStatusNotSupported = errors.New("inels: status not supported by device type")

	// ErrDeviceDisconnected is returned when a command is issued while the device is offline.
	ErrDeviceDisconnected = errors.New("inels: device disconnected")

	// ErrCommandNotSupported is returned for a command the device type does not accept.
	ErrCommandNotSupported = errors.New("inels: command not supported by device type")

	// ErrInvalidArgument is returned when a command argument is outside its legal domain.
	ErrInvalidArgument = errors.New("inels: invalid argument")

	// ErrDecode is returned when a status payload does not match the device type layout.
	ErrDecode = errors.New("inels: decode failed")

	// ErrAlreadyStarted is returned by Start on a device whose listeners are running.
	ErrAlreadyStarted = errors.New("inels: device already started")

	// ErrNotStarted is returned by Stop on a device whose listeners are not running.
	ErrNotStarted = errors.New("inels: device not started")
)
