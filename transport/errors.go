package transport

import "errors"

var (
	// ErrNotFound is returned when a scan ends without seeing the target device.
	ErrNotFound = errors.New("device not found")

	// ErrServiceNotFound is returned when the EPD service is missing from the peripheral.
	ErrServiceNotFound = errors.New("EPD service not found")

	// ErrCharacteristicNotFound is returned when a required characteristic is missing.
	ErrCharacteristicNotFound = errors.New("characteristic not found")
)
