//go:build darwin || windows

package tinyble

import "tinygo.org/x/bluetooth"

func writeWithResponse(char bluetooth.DeviceCharacteristic, p []byte) error {
	_, err := char.Write(p)
	return err
}
