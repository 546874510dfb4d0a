// Package protocol implements the command and notification framing used by
// the BLE e-paper display firmware.
//
// This package has no state and performs no I/O. It builds command frames,
// decodes notifications into typed telemetry events and carries the opcode
// table shared by the link and transfer layers.
//
// # Protocol Overview
//
// Every host write to the control characteristic is one command frame:
//
//	Command: [OPCODE][PAYLOAD...]
//
// There is no length prefix and no checksum; the BLE transport delivers each
// write atomically. Image data travels as WRITE_IMG frames:
//
//	Image chunk: [0x30][TAG][DATA...]
//
// Where TAG is the plane bits (0x0F black/white, 0x00 color) OR'ed with the
// continuation bits (0x00 first chunk, 0xF0 every later chunk).
//
// # Command Builders
//
// Use EncodeCommand for any opcode, or the Build* functions for validated
// payloads:
//
//	frame := protocol.EncodeCommand(protocol.CmdRefresh, nil)
//	frame, err := protocol.BuildSetTimeCmd(time.Now(), protocol.ClockModeCalendar)
//	frame, err := protocol.BuildByteCmd(protocol.CmdSetRotation, 1)
//
// # Notifications
//
// The first notification of a connection (index 0) is a binary configuration
// blob. Every later one is a UTF-8 key=value line:
//
//	mtu=247
//	device=6,250,122
//	firmware_version=3
//
// DecodeNotification classifies both kinds and never fails; anything it cannot
// parse comes back as Unrecognized:
//
//	switch ev := protocol.DecodeNotification(data, index).(type) {
//	case protocol.MTUUpdate:
//	    mtu = ev.MTU
//	case protocol.DeviceInfo:
//	    fmt.Printf("%dx%d\n", ev.Width, ev.Height)
//	}
//
// # Hex Helpers
//
// HexToBytes and BytesToHex convert between byte slices and the hex strings
// used for pin assignments, driver IDs and raw commands. HexToBytes rejects
// odd-length and non-hex input rather than truncating it.
package protocol
