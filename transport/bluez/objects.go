package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/transport"
)

const (
	busName = "org.bluez"

	adapterInterface        = "org.bluez.Adapter1"
	deviceInterface         = "org.bluez.Device1"
	serviceInterface        = "org.bluez.GattService1"
	characteristicInterface = "org.bluez.GattCharacteristic1"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"
	getManagedObjects   = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// managedObjects is the reply of ObjectManager.GetManagedObjects.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func stringProp(props map[string]dbus.Variant, name string) string {
	if v, ok := props[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func pathProp(props map[string]dbus.Variant, name string) dbus.ObjectPath {
	if v, ok := props[name]; ok {
		if p, ok := v.Value().(dbus.ObjectPath); ok {
			return p
		}
	}
	return ""
}

func boolProp(props map[string]dbus.Variant, name string) (value, ok bool) {
	if v, found := props[name]; found {
		value, ok = v.Value().(bool)
	}
	return value, ok
}

// findAdapter returns the first adapter, or the one named by want (e.g. "hci1").
func (objs managedObjects) findAdapter(want string) (dbus.ObjectPath, error) {
	var first dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[adapterInterface]; !ok {
			continue
		}
		if want != "" && strings.HasSuffix(string(path), "/"+want) {
			return path, nil
		}
		if first == "" || path < first {
			first = path
		}
	}
	if want != "" {
		return "", fmt.Errorf("bluetooth adapter %q not found", want)
	}
	if first == "" {
		return "", fmt.Errorf("bluetooth adapter not found")
	}
	return first, nil
}

type deviceEntry struct {
	path dbus.ObjectPath
	adv  transport.Advertisement
}

// devices lists the devices known to the given adapter.
func (objs managedObjects) devices(adapter dbus.ObjectPath) []deviceEntry {
	var out []deviceEntry
	for path, ifaces := range objs {
		props, ok := ifaces[deviceInterface]
		if !ok || pathProp(props, "Adapter") != adapter {
			continue
		}

		name := stringProp(props, "Name")
		if name == "" {
			name = stringProp(props, "Alias")
		}
		var rssi int16
		if v, ok := props["RSSI"]; ok {
			rssi, _ = v.Value().(int16)
		}

		out = append(out, deviceEntry{
			path: path,
			adv: transport.Advertisement{
				Handle: link.DeviceHandle{Address: stringProp(props, "Address"), Name: name},
				RSSI:   rssi,
			},
		})
	}
	return out
}

// findDevice returns the object path of the device with the given address.
func (objs managedObjects) findDevice(adapter dbus.ObjectPath, address string) (dbus.ObjectPath, bool) {
	for _, d := range objs.devices(adapter) {
		if strings.EqualFold(d.adv.Handle.Address, address) {
			return d.path, true
		}
	}
	return "", false
}

// findGatt resolves the control and version characteristics below device.
func (objs managedObjects) findGatt(device dbus.ObjectPath, ids transport.Identifiers) (control, version dbus.ObjectPath, err error) {
	var service dbus.ObjectPath
	for path, ifaces := range objs {
		props, ok := ifaces[serviceInterface]
		if ok && pathProp(props, "Device") == device && transport.Equal(stringProp(props, "UUID"), ids.Service) {
			service = path
			break
		}
	}
	if service == "" {
		return "", "", transport.ErrServiceNotFound
	}

	for path, ifaces := range objs {
		props, ok := ifaces[characteristicInterface]
		if !ok || pathProp(props, "Service") != service {
			continue
		}
		switch uuid := stringProp(props, "UUID"); {
		case transport.Equal(uuid, ids.Control):
			control = path
		case transport.Equal(uuid, ids.Version):
			version = path
		}
	}
	if control == "" {
		return "", "", fmt.Errorf("control %s: %w", ids.Control, transport.ErrCharacteristicNotFound)
	}
	return control, version, nil
}

// parsePropertiesChanged unpacks a PropertiesChanged signal.
func parsePropertiesChanged(sig *dbus.Signal) (iface string, changed map[string]dbus.Variant, ok bool) {
	if sig == nil || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return "", nil, false
	}
	iface, ok = sig.Body[0].(string)
	if !ok {
		return "", nil, false
	}
	changed, ok = sig.Body[1].(map[string]dbus.Variant)
	return iface, changed, ok
}
