package protocol

// Command opcodes understood by the display firmware.
// Every command is sent as [OPCODE][PAYLOAD...] in a single write.
const (
	// CmdSetPins assigns the panel's SPI/GPIO pins
	CmdSetPins = 0x00

	// CmdInit initializes the panel driver, optionally selecting a driver ID
	CmdInit = 0x01

	// CmdClear clears the panel
	CmdClear = 0x02

	// CmdSendCmd passes a raw command byte through to the panel controller
	CmdSendCmd = 0x03

	// CmdSendData passes raw data bytes through to the panel controller
	CmdSendData = 0x04

	// CmdRefresh displays the buffered image
	CmdRefresh = 0x05

	// CmdSleep puts the panel into deep sleep
	CmdSleep = 0x06

	// CmdSetTime sets the device clock and display mode
	CmdSetTime = 0x20

	// CmdSetWeekStart sets the first day of the week for calendar mode
	CmdSetWeekStart = 0x21

	// CmdSetRotation sets the screen rotation in quarter turns
	CmdSetRotation = 0x22

	// CmdLEDControl sets the status LED mode
	CmdLEDControl = 0x23

	// CmdSetShowDeviceID toggles the device ID overlay
	CmdSetShowDeviceID = 0x24

	// CmdSetBLEMode sets the advertising/connection mode (0..3)
	CmdSetBLEMode = 0x25

	// CmdSetCalendarTheme selects the calendar theme
	CmdSetCalendarTheme = 0x26

	// CmdSetClockTheme selects the clock theme
	CmdSetClockTheme = 0x27

	// CmdWriteImage writes one tagged chunk of image data
	CmdWriteImage = 0x30

	// CmdSetConfig stores the configuration
	CmdSetConfig = 0x90

	// CmdSysReset resets the device
	CmdSysReset = 0x91

	// CmdSysSleep puts the whole system to sleep
	CmdSysSleep = 0x92

	// CmdCfgErase erases the stored configuration
	CmdCfgErase = 0x99
)

// Image chunk tag bits. The first payload byte of every WRITE_IMG command is
// the plane bits OR'ed with the continuation bits.
const (
	// TagPlaneBW marks a black/white plane chunk
	TagPlaneBW = 0x0F

	// TagPlaneColor marks a secondary color plane chunk
	TagPlaneColor = 0x00

	// TagFirstChunk marks the chunk at plane offset 0
	TagFirstChunk = 0x00

	// TagContinuation marks every chunk after the first in a plane
	TagContinuation = 0xF0
)

// Framing constants.
const (
	// DefaultMTU is the link MTU assumed until the device reports one
	DefaultMTU = 20

	// ImageFrameOverhead is the number of bytes an image chunk frame spends
	// on framing: opcode(1) + tag(1)
	ImageFrameOverhead = 2

	// MinImageMTU is the smallest MTU that still carries one data byte per chunk
	MinImageMTU = ImageFrameOverhead + 1
)

// Firmware version constants.
const (
	// FallbackFirmwareVersion is assumed when the version characteristic cannot be read
	FallbackFirmwareVersion = 0x15

	// MinFirmwareVersion is the oldest firmware major version fully supported
	MinFirmwareVersion = 0x16
)

// Configuration blob layout (notification index 0).
const (
	// ConfigPinCount is the number of pin bytes at the start of the blob
	ConfigPinCount = 7

	// ConfigDriverOffset is the offset of the driver ID byte
	ConfigDriverOffset = 7

	// ConfigExtraPinOffset is the offset of the optional extra pin byte
	ConfigExtraPinOffset = 10
)

// Notification text prefixes, in match order.
const (
	PrefixMTU           = "mtu="
	PrefixTime          = "t="
	PrefixDevice        = "device="
	PrefixLED           = "led="
	PrefixShowDeviceID  = "show_device_id="
	PrefixBLEMode       = "ble_mode="
	PrefixCalendarTheme = "calendar_theme="
	PrefixClockTheme    = "clock_theme="
	PrefixFirmwareMinor = "firmware_version="
)

// SetTimePayloadSize is the payload size of a SET_TIME command:
// timestamp(4) + utc offset(1) + mode(1)
const SetTimePayloadSize = 6

// BLEModeMax is the largest valid BLE mode value.
const BLEModeMax = 3

// RotationMax is the largest rotation in quarter turns.
const RotationMax = 3
