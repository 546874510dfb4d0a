package protocol

import (
	"strconv"
	"strings"
)

// NotificationFrame is a raw device notification together with its position
// in the connection's notification sequence.
type NotificationFrame struct {
	// Index is the zero-based position within the current connection
	Index int

	// Data is a private copy of the notification bytes
	Data []byte
}

// IsConfig reports whether the frame occupies the reserved configuration slot.
func (f NotificationFrame) IsConfig() bool {
	return f.Index == 0
}

// Text returns the frame decoded as UTF-8 with trailing NUL padding, line
// endings and blanks removed. Leading bytes are kept so prefixes match exactly.
// Invalid sequences are replaced with U+FFFD.
func (f NotificationFrame) Text() string {
	s := strings.ToValidUTF8(string(f.Data), "�")
	return strings.TrimRight(s, " \t\r\n\x00")
}

// ParseNotificationFrame wraps a notification for demultiplexing. The bytes are
// copied because transports commonly reuse their receive buffers.
func ParseNotificationFrame(data []byte, index int) NotificationFrame {
	buf := make([]byte, len(data))
	copy(buf, data)
	return NotificationFrame{Index: index, Data: buf}
}

// DecodeNotification classifies a notification into a TelemetryEvent.
// It never fails: content that cannot be decoded becomes Unrecognized.
func DecodeNotification(data []byte, index int) TelemetryEvent {
	return Demultiplex(ParseNotificationFrame(data, index))
}

// Demultiplex turns a notification frame into a typed event.
//
// Index 0 is always the binary configuration blob. Every later frame is a
// key=value text line matched against the known prefixes in order.
func Demultiplex(f NotificationFrame) TelemetryEvent {
	if f.IsConfig() {
		return parseConfigBlob(f.Data)
	}

	text := f.Text()
	for _, p := range textParsers {
		if !strings.HasPrefix(text, p.prefix) {
			continue
		}
		if ev, ok := p.parse(text[len(p.prefix):]); ok {
			return ev
		}
		// First matching prefix wins even when its value is malformed.
		return Unrecognized{Text: text}
	}

	return Unrecognized{Text: text}
}

func parseConfigBlob(data []byte) ConfigBlob {
	blob := ConfigBlob{}

	n := len(data)
	if n > ConfigPinCount {
		n = ConfigPinCount
	}
	blob.Pins = make([]byte, n, ConfigPinCount+1)
	copy(blob.Pins, data[:n])

	if len(data) <= ConfigDriverOffset {
		blob.Truncated = true
		return blob
	}
	blob.DriverID = data[ConfigDriverOffset]

	if len(data) > ConfigExtraPinOffset {
		blob.Pins = append(blob.Pins, data[ConfigExtraPinOffset])
	}

	return blob
}

type textParser struct {
	prefix string
	parse  func(value string) (TelemetryEvent, bool)
}

var textParsers = []textParser{
	{PrefixMTU, intEvent(func(v int) TelemetryEvent { return MTUUpdate{MTU: v} })},
	{PrefixTime, parseRemoteTime},
	{PrefixDevice, parseDeviceInfo},
	{PrefixLED, intEvent(func(v int) TelemetryEvent { return LEDMode{Mode: v} })},
	{PrefixShowDeviceID, parseShowDeviceID},
	{PrefixBLEMode, parseBLEMode},
	{PrefixCalendarTheme, intEvent(func(v int) TelemetryEvent { return CalendarTheme{Theme: v} })},
	{PrefixClockTheme, intEvent(func(v int) TelemetryEvent { return ClockTheme{Theme: v} })},
	{PrefixFirmwareMinor, intEvent(func(v int) TelemetryEvent { return FirmwareMinor{Version: v} })},
}

func intEvent(build func(int) TelemetryEvent) func(string) (TelemetryEvent, bool) {
	return func(value string) (TelemetryEvent, bool) {
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, false
		}
		return build(v), true
	}
}

func parseRemoteTime(value string) (TelemetryEvent, bool) {
	secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return nil, false
	}
	return RemoteTime{Seconds: secs}, true
}

func parseDeviceInfo(value string) (TelemetryEvent, bool) {
	fields := strings.Split(value, ",")
	if len(fields) < 3 {
		return nil, false
	}

	var vals [3]int
	for i := range vals {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}

	return DeviceInfo{ModelID: vals[0], Width: vals[1], Height: vals[2]}, true
}

func parseShowDeviceID(value string) (TelemetryEvent, bool) {
	switch strings.TrimSpace(value) {
	case "0":
		return ShowDeviceID{Show: false}, true
	case "1":
		return ShowDeviceID{Show: true}, true
	default:
		return nil, false
	}
}

func parseBLEMode(value string) (TelemetryEvent, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v < 0 || v > BLEModeMax {
		return nil, false
	}
	return BLEMode{Mode: v}, true
}
