// Package transport holds what the BLE bindings share: the fixed GATT
// identifiers of the EPD firmware, scan results and lookup errors.
//
// The bindings themselves live in subpackages. tinyble works on every
// platform supported by tinygo.org/x/bluetooth; bluez talks to the BlueZ
// daemon over D-Bus and is Linux only. Both implement link.Adapter and
// Scanner.
package transport
