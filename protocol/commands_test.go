package protocol

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name    string
		opcode  byte
		payload []byte
		want    []byte
	}{
		{
			name:   "no payload",
			opcode: CmdRefresh,
			want:   []byte{0x05},
		},
		{
			name:    "single byte payload",
			opcode:  CmdSetRotation,
			payload: []byte{0x02},
			want:    []byte{0x22, 0x02},
		},
		{
			name:    "multi byte payload",
			opcode:  CmdSetPins,
			payload: []byte{1, 2, 3, 4, 5, 6, 7},
			want:    []byte{0x00, 1, 2, 3, 4, 5, 6, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeCommand(tt.opcode, tt.payload)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeCommand() = % X, want % X", got, tt.want)
			}

			op, payload, err := DecodeCommand(got)
			if err != nil {
				t.Fatalf("DecodeCommand() error: %v", err)
			}
			if op != tt.opcode {
				t.Errorf("opcode = 0x%02X, want 0x%02X", op, tt.opcode)
			}
			if !bytes.Equal(payload, tt.payload) {
				t.Errorf("payload = % X, want % X", payload, tt.payload)
			}
		})
	}
}

func TestEncodeCommandDoesNotAliasPayload(t *testing.T) {
	payload := []byte{0xAA}
	frame := EncodeCommand(CmdLEDControl, payload)
	payload[0] = 0xBB

	if frame[1] != 0xAA {
		t.Errorf("frame changed with payload: % X", frame)
	}
}

func TestDecodeCommandEmpty(t *testing.T) {
	if _, _, err := DecodeCommand(nil); err == nil {
		t.Error("expected error for empty frame")
	}
}

func TestImageTag(t *testing.T) {
	tests := []struct {
		name  string
		bw    bool
		first bool
		want  byte
	}{
		{"first bw chunk", true, true, 0x0F},
		{"later bw chunk", true, false, 0xFF},
		{"first color chunk", false, true, 0x00},
		{"later color chunk", false, false, 0xF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageTag(tt.bw, tt.first); got != tt.want {
				t.Errorf("ImageTag() = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}

func TestBuildImageChunkCmd(t *testing.T) {
	frame, err := BuildImageChunkCmd(0xFF, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{CmdWriteImage, 0xFF, 1, 2, 3}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = % X, want % X", frame, want)
	}

	if _, err := BuildImageChunkCmd(0x0F, nil); err == nil {
		t.Error("expected error for empty chunk")
	} else if !IsCommandError(err) {
		t.Errorf("expected CommandError, got %T", err)
	}
}

func TestSetTimePayload(t *testing.T) {
	tests := []struct {
		name    string
		time    time.Time
		mode    ClockMode
		want    []byte
		wantErr bool
		errMsg  string
	}{
		{
			name: "utc normal",
			time: time.Unix(0x01020304, 0).UTC(),
			mode: ClockModeNormal,
			want: []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x00},
		},
		{
			name: "positive offset calendar",
			time: time.Unix(0x65000000, 0).In(time.FixedZone("UTC+8", 8*3600)),
			mode: ClockModeCalendar,
			want: []byte{0x65, 0x00, 0x00, 0x00, 0x08, 0x01},
		},
		{
			name: "negative offset clock",
			time: time.Unix(0x65000000, 0).In(time.FixedZone("UTC-5", -5*3600)),
			mode: ClockModeClock,
			want: []byte{0x65, 0x00, 0x00, 0x00, 0xFB, 0x02},
		},
		{
			name: "half hour offset truncates",
			time: time.Unix(0x65000000, 0).In(time.FixedZone("UTC+5:30", 5*3600+1800)),
			mode: ClockModeNormal,
			want: []byte{0x65, 0x00, 0x00, 0x00, 0x05, 0x00},
		},
		{
			name: "negative half hour offset truncates toward zero",
			time: time.Unix(0x65000000, 0).In(time.FixedZone("UTC-3:30", -(3*3600 + 1800))),
			mode: ClockModeNormal,
			want: []byte{0x65, 0x00, 0x00, 0x00, 0xFD, 0x00},
		},
		{
			name:    "invalid mode",
			time:    time.Unix(0, 0),
			mode:    ClockMode(3),
			wantErr: true,
			errMsg:  "invalid clock mode",
		},
		{
			name:    "before epoch",
			time:    time.Unix(-1, 0),
			mode:    ClockModeNormal,
			wantErr: true,
			errMsg:  "does not fit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SetTimePayload(tt.time, tt.mode)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("payload = % X, want % X", got, tt.want)
			}

			unix, offset, mode, err := ParseSetTimePayload(got)
			if err != nil {
				t.Fatalf("ParseSetTimePayload() error: %v", err)
			}
			if unix != tt.time.Unix() {
				t.Errorf("unix = %d, want %d", unix, tt.time.Unix())
			}
			if offset != int(int8(tt.want[4])) {
				t.Errorf("offset = %d, want %d", offset, int8(tt.want[4]))
			}
			if mode != tt.mode {
				t.Errorf("mode = %v, want %v", mode, tt.mode)
			}
		})
	}
}

func TestBuildSetTimeCmd(t *testing.T) {
	frame, err := BuildSetTimeCmd(time.Unix(1, 0).UTC(), ClockModeCalendar)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{CmdSetTime, 0, 0, 0, 1, 0, 1}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame = % X, want % X", frame, want)
	}
}

func TestBuildSetPinsCmd(t *testing.T) {
	if _, err := BuildSetPinsCmd([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short pin list")
	}

	pins := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame, err := BuildSetPinsCmd(pins)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame[0] != CmdSetPins || !bytes.Equal(frame[1:], pins) {
		t.Errorf("frame = % X", frame)
	}
}

func TestBuildInitCmd(t *testing.T) {
	if got := BuildInitCmd(); !bytes.Equal(got, []byte{CmdInit}) {
		t.Errorf("BuildInitCmd() = % X", got)
	}
	if got := BuildInitCmd(0x12); !bytes.Equal(got, []byte{CmdInit, 0x12}) {
		t.Errorf("BuildInitCmd(0x12) = % X", got)
	}
}

func TestBuildByteCmd(t *testing.T) {
	tests := []struct {
		name    string
		opcode  byte
		value   byte
		wantErr bool
		errMsg  string
	}{
		{name: "rotation in range", opcode: CmdSetRotation, value: 3},
		{name: "rotation out of range", opcode: CmdSetRotation, value: 4, wantErr: true, errMsg: "rotation 4 out of range"},
		{name: "ble mode in range", opcode: CmdSetBLEMode, value: 0},
		{name: "ble mode out of range", opcode: CmdSetBLEMode, value: 9, wantErr: true, errMsg: "BLE mode 9 out of range"},
		{name: "show device id", opcode: CmdSetShowDeviceID, value: 1},
		{name: "show device id not bool", opcode: CmdSetShowDeviceID, value: 2, wantErr: true, errMsg: "must be 0 or 1"},
		{name: "led any value", opcode: CmdLEDControl, value: 200},
		{name: "week start", opcode: CmdSetWeekStart, value: 1},
		{name: "calendar theme", opcode: CmdSetCalendarTheme, value: 5},
		{name: "clock theme", opcode: CmdSetClockTheme, value: 5},
		{name: "refresh takes no value", opcode: CmdRefresh, value: 1, wantErr: true, errMsg: "REFRESH (0x05)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildByteCmd(tt.opcode, tt.value)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(frame, []byte{tt.opcode, tt.value}) {
				t.Errorf("frame = % X", frame)
			}
		})
	}
}

func TestParseRawCommand(t *testing.T) {
	op, payload, err := ParseRawCommand("22 01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != CmdSetRotation || !bytes.Equal(payload, []byte{0x01}) {
		t.Errorf("got op=0x%02X payload=% X", op, payload)
	}

	if _, _, err := ParseRawCommand(""); err == nil {
		t.Error("expected error for empty command")
	}
	if _, _, err := ParseRawCommand("221"); err == nil {
		t.Error("expected error for odd-length command")
	}
}

func TestCommandName(t *testing.T) {
	if got := CommandName(CmdWriteImage); got != "WRITE_IMG" {
		t.Errorf("CommandName(0x30) = %q", got)
	}
	if got := CommandName(0x7E); got != "UNKNOWN_0x7E" {
		t.Errorf("CommandName(0x7E) = %q", got)
	}
}
