package link

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-epdble/protocol"
)

// SetDriver assigns the panel pins and driver: SET_PINS followed by INIT with
// the driver ID.
//
// Example:
//
//	pins, _ := protocol.HexToBytes("1a1b1c1d1e1f20")
//	err := l.SetDriver(ctx, pins, 0x01)
func (l *Link) SetDriver(ctx context.Context, pins []byte, driver byte) error {
	frame, err := protocol.BuildSetPinsCmd(pins)
	if err != nil {
		return err
	}
	if err := l.sendFrame(ctx, frame); err != nil {
		return fmt.Errorf("set pins: %w", err)
	}

	if err := l.sendFrame(ctx, protocol.BuildInitCmd(driver)); err != nil {
		return fmt.Errorf("init driver: %w", err)
	}

	l.logInfo("driver set", "pins", protocol.BytesToHex(pins), "driver", fmt.Sprintf("0x%02X", driver))
	return nil
}

// Init re-initialises the panel with its stored driver.
func (l *Link) Init(ctx context.Context) error {
	return l.sendFrame(ctx, protocol.BuildInitCmd())
}

// Clear clears the panel.
func (l *Link) Clear(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdClear, nil)
}

// Refresh displays the buffered image.
func (l *Link) Refresh(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdRefresh, nil)
}

// Sleep puts the panel into deep sleep.
func (l *Link) Sleep(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdSleep, nil)
}

// SyncTime sets the device clock to t, with t's zone offset in whole hours,
// and selects the display mode.
func (l *Link) SyncTime(ctx context.Context, t time.Time, mode protocol.ClockMode) error {
	frame, err := protocol.BuildSetTimeCmd(t, mode)
	if err != nil {
		return err
	}

	l.logInfo("syncing time", "time", t.Format(time.RFC3339), "mode", mode.String())
	return l.sendFrame(ctx, frame)
}

// SyncDate shows date in calendar mode. The time of day is the current wall
// clock in date's location.
func (l *Link) SyncDate(ctx context.Context, date time.Time) error {
	now := l.now().In(date.Location())
	t := time.Date(date.Year(), date.Month(), date.Day(),
		now.Hour(), now.Minute(), now.Second(), 0, date.Location())
	return l.SyncTime(ctx, t, protocol.ClockModeCalendar)
}

// SetRotation sets the screen rotation in quarter turns (0-3).
func (l *Link) SetRotation(ctx context.Context, quarterTurns byte) error {
	return l.sendByte(ctx, protocol.CmdSetRotation, quarterTurns)
}

// SetWeekStart sets the first day of the week shown in calendar mode.
func (l *Link) SetWeekStart(ctx context.Context, day byte) error {
	return l.sendByte(ctx, protocol.CmdSetWeekStart, day)
}

// SetLEDMode sets the status LED mode.
func (l *Link) SetLEDMode(ctx context.Context, mode byte) error {
	return l.sendByte(ctx, protocol.CmdLEDControl, mode)
}

// SetShowDeviceID toggles the device ID overlay.
func (l *Link) SetShowDeviceID(ctx context.Context, show bool) error {
	var v byte
	if show {
		v = 1
	}
	return l.sendByte(ctx, protocol.CmdSetShowDeviceID, v)
}

// SetBLEMode sets the BLE mode (0-3).
func (l *Link) SetBLEMode(ctx context.Context, mode byte) error {
	return l.sendByte(ctx, protocol.CmdSetBLEMode, mode)
}

// SetCalendarTheme selects the calendar theme.
func (l *Link) SetCalendarTheme(ctx context.Context, theme byte) error {
	return l.sendByte(ctx, protocol.CmdSetCalendarTheme, theme)
}

// SetClockTheme selects the clock theme.
func (l *Link) SetClockTheme(ctx context.Context, theme byte) error {
	return l.sendByte(ctx, protocol.CmdSetClockTheme, theme)
}

// SaveConfig asks the firmware to store its configuration.
func (l *Link) SaveConfig(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdSetConfig, nil)
}

// SystemReset resets the device. The connection normally drops afterwards.
func (l *Link) SystemReset(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdSysReset, nil)
}

// SystemSleep puts the whole device to sleep.
func (l *Link) SystemSleep(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdSysSleep, nil)
}

// EraseConfig erases the stored configuration.
func (l *Link) EraseConfig(ctx context.Context) error {
	return l.SendCommand(ctx, protocol.CmdCfgErase, nil)
}

// SendPanelCommand passes a raw command byte to the panel controller.
func (l *Link) SendPanelCommand(ctx context.Context, cmd byte) error {
	return l.SendCommand(ctx, protocol.CmdSendCmd, []byte{cmd})
}

// SendPanelData passes raw data bytes to the panel controller.
func (l *Link) SendPanelData(ctx context.Context, data []byte) error {
	return l.SendCommand(ctx, protocol.CmdSendData, data)
}

// SendRaw sends a command given as hex, e.g. "0501". The first byte is the
// opcode and the rest the payload. Malformed hex is rejected before anything
// is written.
func (l *Link) SendRaw(ctx context.Context, hexCmd string) error {
	opcode, payload, err := protocol.ParseRawCommand(hexCmd)
	if err != nil {
		return fmt.Errorf("parse raw command: %w", err)
	}
	return l.SendCommand(ctx, opcode, payload)
}

func (l *Link) sendByte(ctx context.Context, opcode byte, value byte) error {
	frame, err := protocol.BuildByteCmd(opcode, value)
	if err != nil {
		return err
	}
	return l.sendFrame(ctx, frame)
}
