package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrOddHexLength is returned when a hex string has an odd number of digits
	ErrOddHexLength = errors.New("hex string has odd length")

	// ErrInvalidHex is returned when a hex string contains a non-hex character
	ErrInvalidHex = errors.New("invalid hex character")
)

// CommandError reports a command payload that failed validation before
// anything was written to the device.
type CommandError struct {
	// Opcode is the command being built
	Opcode byte

	// Reason describes what was wrong with the payload
	Reason string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s (0x%02X): %s", CommandName(e.Opcode), e.Opcode, e.Reason)
}

// IsCommandError returns true if the error is a CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

// CommandName returns a human-readable name for an opcode.
func CommandName(opcode byte) string {
	switch opcode {
	case CmdSetPins:
		return "SET_PINS"
	case CmdInit:
		return "INIT"
	case CmdClear:
		return "CLEAR"
	case CmdSendCmd:
		return "SEND_CMD"
	case CmdSendData:
		return "SEND_DATA"
	case CmdRefresh:
		return "REFRESH"
	case CmdSleep:
		return "SLEEP"
	case CmdSetTime:
		return "SET_TIME"
	case CmdSetWeekStart:
		return "SET_WEEK_START"
	case CmdSetRotation:
		return "SET_ROTATION"
	case CmdLEDControl:
		return "LED_CTRL"
	case CmdSetShowDeviceID:
		return "SET_SHOW_DEVICE_ID"
	case CmdSetBLEMode:
		return "SET_BLE_MODE"
	case CmdSetCalendarTheme:
		return "SET_CALENDAR_THEME"
	case CmdSetClockTheme:
		return "SET_CLOCK_THEME"
	case CmdWriteImage:
		return "WRITE_IMG"
	case CmdSetConfig:
		return "SET_CONFIG"
	case CmdSysReset:
		return "SYS_RESET"
	case CmdSysSleep:
		return "SYS_SLEEP"
	case CmdCfgErase:
		return "CFG_ERASE"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", opcode)
	}
}
