package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/protocol"
)

// parseColorMode accepts the buffer layout names and a few short aliases.
func parseColorMode(s string) (protocol.ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fourcolor", "four", "color":
		return protocol.ColorModeFourColor, nil
	case "threecolor", "three", "red":
		return protocol.ColorModeThreeColor, nil
	case "blackwhitecolor", "blackwhite", "bw":
		return protocol.ColorModeBlackWhite, nil
	case "sixcolor", "six":
		return protocol.ColorModeSixColor, nil
	case "":
		return "", fmt.Errorf("missing color mode")
	default:
		return "", fmt.Errorf("unknown color mode %q", s)
	}
}

func parseClockMode(s string) (protocol.ClockMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "0":
		return protocol.ClockModeNormal, nil
	case "calendar", "1":
		return protocol.ClockModeCalendar, nil
	case "clock", "2":
		return protocol.ClockModeClock, nil
	default:
		return 0, fmt.Errorf("unknown clock mode %q (want normal, calendar or clock)", s)
	}
}

// parseByte accepts decimal, 0x hex, 0o octal and 0b binary.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func progressLine(p link.Progress) string {
	switch p.Phase {
	case link.PhaseRefreshing:
		return fmt.Sprintf("refreshing after %d bytes in %s", p.TotalBytes, p.ElapsedTime.Round(time.Millisecond))
	case link.PhaseComplete:
		return fmt.Sprintf("done in %.3fs", p.ElapsedTime.Seconds())
	default:
		return fmt.Sprintf("[%s] %5.1f%% %d/%d chunks %d/%d bytes %s",
			p.PlaneName, p.Percentage, p.Chunk, p.TotalChunks,
			p.BytesWritten, p.TotalBytes, p.ElapsedTime.Round(time.Millisecond))
	}
}

// describe renders a telemetry event for the console.
func describe(ev protocol.TelemetryEvent) string {
	switch e := ev.(type) {
	case protocol.MTUUpdate:
		return fmt.Sprintf("MTU: %d", e.MTU)
	case protocol.RemoteTime:
		return fmt.Sprintf("device time: %s", e.In(time.Local).Format("2006-01-02 15:04:05"))
	case protocol.DeviceInfo:
		return fmt.Sprintf("device: model %d, %dx%d", e.ModelID, e.Width, e.Height)
	case protocol.FirmwareMinor:
		return fmt.Sprintf("firmware minor version: %d", e.Version)
	case protocol.ConfigBlob:
		if e.Truncated {
			return fmt.Sprintf("config: pins % X (no driver)", e.Pins)
		}
		return fmt.Sprintf("config: pins % X, driver 0x%02X", e.Pins, e.DriverID)
	case protocol.Unrecognized:
		return fmt.Sprintf("unrecognized: %q", e.Text)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%s: %+v", ev.Kind(), ev)
	}
}
