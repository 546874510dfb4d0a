//go:build !darwin && !windows

package tinyble

import (
	"errors"

	"tinygo.org/x/bluetooth"
)

// ErrAckedWriteUnsupported is returned by acknowledged writes on backends
// where tinygo bluetooth only offers write-without-response. On Linux use the
// bluez transport, which sends WriteValue with type=request.
var ErrAckedWriteUnsupported = errors.New("tinyble: acknowledged writes are not supported on this platform")

func writeWithResponse(bluetooth.DeviceCharacteristic, []byte) error {
	return ErrAckedWriteUnsupported
}
