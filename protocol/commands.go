package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

// EncodeCommand constructs a command frame.
//
// Frame structure:
//
//	[OPCODE][PAYLOAD...]
//
// There is no length prefix and no checksum; the transport delivers each
// write as one frame. The payload may be empty.
func EncodeCommand(opcode byte, payload []byte) []byte {
	frame := make([]byte, 0, 1+len(payload))
	frame = append(frame, opcode)
	frame = append(frame, payload...)
	return frame
}

// DecodeCommand splits a command frame into its opcode and payload.
// The returned payload aliases frame.
func DecodeCommand(frame []byte) (opcode byte, payload []byte, err error) {
	if len(frame) == 0 {
		return 0, nil, fmt.Errorf("empty command frame")
	}
	return frame[0], frame[1:], nil
}

// ImageTag returns the tag byte for an image chunk.
// bw selects the black/white plane bits; first marks the chunk at plane offset 0.
func ImageTag(bw bool, first bool) byte {
	tag := byte(TagPlaneColor)
	if bw {
		tag = TagPlaneBW
	}
	if first {
		return tag | TagFirstChunk
	}
	return tag | TagContinuation
}

// BuildImageChunkCmd constructs a WRITE_IMG command frame.
//
// Frame structure:
//
//	[0x30][TAG][DATA...]
func BuildImageChunkCmd(tag byte, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &CommandError{Opcode: CmdWriteImage, Reason: "chunk data cannot be empty"}
	}

	frame := make([]byte, 0, ImageFrameOverhead+len(data))
	frame = append(frame, CmdWriteImage, tag)
	frame = append(frame, data...)

	return frame, nil
}

// SetTimePayload builds the SET_TIME payload for t.
//
// Payload structure:
//
//	[TS_3][TS_2][TS_1][TS_0][UTC_OFFSET_HOURS][MODE]
//
// The timestamp is big-endian unix seconds. The offset is t's zone offset in
// whole hours, truncated toward zero and sent as a signed byte.
func SetTimePayload(t time.Time, mode ClockMode) ([]byte, error) {
	if mode > ClockModeClock {
		return nil, &CommandError{Opcode: CmdSetTime, Reason: fmt.Sprintf("invalid clock mode %d", mode)}
	}

	unix := t.Unix()
	if unix < 0 || unix > 0xFFFFFFFF {
		return nil, &CommandError{Opcode: CmdSetTime, Reason: fmt.Sprintf("timestamp %d does not fit in 32 bits", unix)}
	}

	_, offset := t.Zone()
	hours := offset / 3600

	payload := make([]byte, SetTimePayloadSize)
	binary.BigEndian.PutUint32(payload[0:4], uint32(unix))
	payload[4] = byte(int8(hours))
	payload[5] = byte(mode)

	return payload, nil
}

// ParseSetTimePayload is the inverse of SetTimePayload.
func ParseSetTimePayload(payload []byte) (unix int64, offsetHours int, mode ClockMode, err error) {
	if len(payload) != SetTimePayloadSize {
		return 0, 0, 0, fmt.Errorf("invalid SET_TIME payload length: got %d bytes, expected %d", len(payload), SetTimePayloadSize)
	}
	unix = int64(binary.BigEndian.Uint32(payload[0:4]))
	offsetHours = int(int8(payload[4]))
	mode = ClockMode(payload[5])
	return unix, offsetHours, mode, nil
}

// BuildSetTimeCmd constructs a SET_TIME command frame.
func BuildSetTimeCmd(t time.Time, mode ClockMode) ([]byte, error) {
	payload, err := SetTimePayload(t, mode)
	if err != nil {
		return nil, err
	}
	return EncodeCommand(CmdSetTime, payload), nil
}

// BuildSetPinsCmd constructs a SET_PINS command frame.
func BuildSetPinsCmd(pins []byte) ([]byte, error) {
	if len(pins) < ConfigPinCount {
		return nil, &CommandError{
			Opcode: CmdSetPins,
			Reason: fmt.Sprintf("need at least %d pin bytes, got %d", ConfigPinCount, len(pins)),
		}
	}
	return EncodeCommand(CmdSetPins, pins), nil
}

// BuildInitCmd constructs an INIT command frame. The driver ID is optional;
// without it the firmware keeps its stored driver.
func BuildInitCmd(driver ...byte) []byte {
	return EncodeCommand(CmdInit, driver)
}

// BuildByteCmd constructs a command frame carrying a single value byte,
// validating the value range for opcodes that restrict it.
func BuildByteCmd(opcode byte, value byte) ([]byte, error) {
	switch opcode {
	case CmdSetRotation:
		if value > RotationMax {
			return nil, &CommandError{Opcode: opcode, Reason: fmt.Sprintf("rotation %d out of range 0-%d", value, RotationMax)}
		}
	case CmdSetBLEMode:
		if value > BLEModeMax {
			return nil, &CommandError{Opcode: opcode, Reason: fmt.Sprintf("BLE mode %d out of range 0-%d", value, BLEModeMax)}
		}
	case CmdSetShowDeviceID:
		if value > 1 {
			return nil, &CommandError{Opcode: opcode, Reason: fmt.Sprintf("boolean value must be 0 or 1, got %d", value)}
		}
	case CmdSetWeekStart, CmdLEDControl, CmdSetCalendarTheme, CmdSetClockTheme:
	default:
		return nil, &CommandError{Opcode: opcode, Reason: "command does not take a single value byte"}
	}
	return EncodeCommand(opcode, []byte{value}), nil
}

// ParseRawCommand decodes a hex command string such as "0501" into an opcode
// and payload. The first byte is the opcode.
func ParseRawCommand(hexCmd string) (opcode byte, payload []byte, err error) {
	data, err := HexToBytes(hexCmd)
	if err != nil {
		return 0, nil, err
	}
	return DecodeCommand(data)
}
