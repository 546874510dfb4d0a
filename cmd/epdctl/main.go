// Command epdctl drives a BLE e-paper display from the command line: scan
// for devices, upload processed image buffers, sync the clock and send raw
// commands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "send":
		err = runSend(os.Args[2:])
	case "cmd":
		err = runCmd(os.Args[2:])
	case "time":
		err = runTime(os.Args[2:])
	case "clear":
		err = runClear(os.Args[2:])
	case "driver":
		err = runDriver(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "monitor":
		err = runMonitor(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "epdctl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `epdctl - BLE e-paper display controller

Usage:
  epdctl scan    [flags]
  epdctl send    [flags] -file imagedata.h
  epdctl cmd     [flags] HEX...
  epdctl time    [flags]
  epdctl clear   [flags]
  epdctl driver  [flags] -pins HEX -driver BYTE
  epdctl export  -file buffer.bin -mode MODE -width W -height H
  epdctl monitor [flags] -listen :8080

Common flags:
  -device      Address or advertised name (or set EPD_DEVICE)
  -transport   tinyble|bluez (or set EPD_TRANSPORT; default bluez on Linux, else tinyble)
  -hci         BlueZ controller, e.g. hci1 (bluez only)
  -timeout     Connect and scan timeout (default 20s)
  -debug       Verbose logging

Send flags:
  -file        .h header, .hex/.txt hex text, or raw binary
  -mode        fourColor|threeColor|blackWhiteColor (required unless the header sets colorMode)
  -interleave  Unacknowledged chunks between acknowledged ones (default 50)

Time flags:
  -mode        normal|calendar|clock (default calendar)
  -date        YYYY-MM-DD to show on the calendar instead of today

Driver flags:
  -pins        Pin assignment as hex, at least 7 bytes
  -driver      Panel driver ID, e.g. 0x01
  -save        Persist the configuration afterwards

Notes:
  - cmd sends each HEX argument as one frame: the first byte is the opcode.
  - Do not operate the display until the refresh has completed.
`)
}
