package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device id is not in the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrTransportFailure is returned by a transport when streaming to a
	// device fails. Sync catches it per device so one failure does not
	// abort the other devices' results.
	ErrTransportFailure = errors.New("device: transport failure")
)
