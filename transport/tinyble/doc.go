// Package tinyble implements link.Adapter on tinygo.org/x/bluetooth, which
// runs on Linux (BlueZ), macOS (CoreBluetooth) and Windows (WinRT).
//
//	adapter, err := tinyble.New(tinyble.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	l := link.New(adapter)
//	err = l.Connect(ctx, link.DeviceHandle{Address: "AA:BB:CC:DD:EE:FF"})
//
// Addresses are platform specific. On macOS they are CoreBluetooth UUIDs,
// so a device must be seen by Scan before it can be connected; Connect
// scans on its own if needed.
//
// Acknowledged writes need a write-with-response primitive, which tinygo
// bluetooth provides only on macOS and Windows. Elsewhere they fail with
// ErrAckedWriteUnsupported; on Linux use the bluez package instead.
package tinyble
