// Package bluez implements link.Adapter directly against the BlueZ daemon
// over the system D-Bus, without cgo or a bluetooth library.
//
// Writes use GattCharacteristic1.WriteValue with "type" set to "request"
// for acknowledged writes and "command" otherwise. Notifications and link
// loss both arrive as PropertiesChanged signals, dispatched on one
// goroutine in bus order.
//
//	adapter, err := bluez.Dial(bluez.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Close()
package bluez
