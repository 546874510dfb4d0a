package protocol

import "time"

// ColorMode names the layout of a processed image buffer, as produced by the
// external image processor.
type ColorMode string

const (
	// ColorModeFourColor is a single color plane
	ColorModeFourColor ColorMode = "fourColor"

	// ColorModeThreeColor is a black/white plane followed by a red plane of equal size
	ColorModeThreeColor ColorMode = "threeColor"

	// ColorModeBlackWhite is a single black/white plane
	ColorModeBlackWhite ColorMode = "blackWhiteColor"

	// ColorModeSixColor is produced by the image processor but not accepted by the firmware upload path
	ColorModeSixColor ColorMode = "sixColor"
)

// HeaderCode returns the numeric colorMode value used in exported C headers.
func (m ColorMode) HeaderCode() int {
	switch m {
	case ColorModeSixColor:
		return 0
	case ColorModeFourColor:
		return 1
	case ColorModeBlackWhite:
		return 2
	default:
		return 3
	}
}

// ColorModeFromHeaderCode is the inverse of HeaderCode. Code 3 maps to threeColor.
func ColorModeFromHeaderCode(code int) ColorMode {
	switch code {
	case 0:
		return ColorModeSixColor
	case 1:
		return ColorModeFourColor
	case 2:
		return ColorModeBlackWhite
	default:
		return ColorModeThreeColor
	}
}

// ClockMode is the display mode carried in the last byte of SET_TIME.
type ClockMode byte

const (
	ClockModeNormal   ClockMode = 0
	ClockModeCalendar ClockMode = 1
	ClockModeClock    ClockMode = 2
)

func (m ClockMode) String() string {
	switch m {
	case ClockModeNormal:
		return "normal"
	case ClockModeCalendar:
		return "calendar"
	case ClockModeClock:
		return "clock"
	default:
		return "unknown"
	}
}

// EventKind identifies a TelemetryEvent variant.
type EventKind string

const (
	KindMTU           EventKind = "mtu"
	KindRemoteTime    EventKind = "time"
	KindDeviceInfo    EventKind = "device"
	KindLEDMode       EventKind = "led"
	KindShowDeviceID  EventKind = "show_device_id"
	KindBLEMode       EventKind = "ble_mode"
	KindCalendarTheme EventKind = "calendar_theme"
	KindClockTheme    EventKind = "clock_theme"
	KindFirmwareMinor EventKind = "firmware_version"
	KindConfig        EventKind = "config"
	KindUnrecognized  EventKind = "unrecognized"
)

// TelemetryEvent is one decoded device notification. The concrete type is one
// of the variants below.
type TelemetryEvent interface {
	Kind() EventKind
}

// MTUUpdate reports the negotiated MTU.
type MTUUpdate struct {
	MTU int `json:"mtu"`
}

// RemoteTime reports the device clock. Seconds counts the device's local wall
// clock as if it were UTC.
type RemoteTime struct {
	Seconds int64 `json:"seconds"`
}

// In re-interprets the device wall clock in loc.
func (e RemoteTime) In(loc *time.Location) time.Time {
	wall := time.Unix(e.Seconds, 0).UTC()
	return time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}

// DeviceInfo reports the panel model and resolution.
type DeviceInfo struct {
	ModelID int `json:"model_id"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// LEDMode reports the status LED mode.
type LEDMode struct {
	Mode int `json:"mode"`
}

// ShowDeviceID reports whether the device ID overlay is enabled.
type ShowDeviceID struct {
	Show bool `json:"show"`
}

// BLEMode reports the BLE mode (0..3).
type BLEMode struct {
	Mode int `json:"mode"`
}

// CalendarTheme reports the selected calendar theme.
type CalendarTheme struct {
	Theme int `json:"theme"`
}

// ClockTheme reports the selected clock theme.
type ClockTheme struct {
	Theme int `json:"theme"`
}

// FirmwareMinor reports the firmware minor version.
type FirmwareMinor struct {
	Version int `json:"version"`
}

// ConfigBlob is the binary configuration sent as the first notification of a
// connection.
type ConfigBlob struct {
	// Pins holds the pin assignment: 7 bytes, plus the extra pin when present
	Pins []byte `json:"pins"`

	// DriverID is the panel driver identifier
	DriverID byte `json:"driver_id"`

	// Truncated is set when the blob was too short to carry a driver ID
	Truncated bool `json:"truncated,omitempty"`
}

// Unrecognized carries a text notification that matched no known prefix or
// whose value did not parse.
type Unrecognized struct {
	Text string `json:"text"`
}

func (MTUUpdate) Kind() EventKind     { return KindMTU }
func (RemoteTime) Kind() EventKind    { return KindRemoteTime }
func (DeviceInfo) Kind() EventKind    { return KindDeviceInfo }
func (LEDMode) Kind() EventKind       { return KindLEDMode }
func (ShowDeviceID) Kind() EventKind  { return KindShowDeviceID }
func (BLEMode) Kind() EventKind       { return KindBLEMode }
func (CalendarTheme) Kind() EventKind { return KindCalendarTheme }
func (ClockTheme) Kind() EventKind    { return KindClockTheme }
func (FirmwareMinor) Kind() EventKind { return KindFirmwareMinor }
func (ConfigBlob) Kind() EventKind    { return KindConfig }
func (Unrecognized) Kind() EventKind  { return KindUnrecognized }
