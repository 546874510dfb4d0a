// Package link drives one BLE e-paper display: the connection state machine,
// the command set and the chunked image upload.
//
// # Overview
//
// A Link moves through these states:
//
//	DISCONNECTED -> CONNECTING -> DISCOVERING_SERVICE -> READING_VERSION -> SUBSCRIBING -> READY
//
// and back to DISCONNECTED on link loss, Disconnect or Reconnect. A failure
// before READY returns to DISCONNECTED with a *ConnectError. Nothing retries
// automatically.
//
// # Basic Usage
//
//	adapter, err := tinyble.New(transport.DefaultIdentifiers)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l := link.New(adapter)
//	if err := l.Connect(ctx, link.DeviceHandle{Address: "AA:BB:CC:DD:EE:FF"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Disconnect()
//
//	job, err := link.NewJob(protocol.ColorModeThreeColor, processed)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.SendImage(ctx, job); err != nil {
//	    log.Fatal(err)
//	}
//
// # Image Transfers
//
// Each plane is split into chunks of MTU-2 bytes and sent as WRITE_IMG
// commands. The interleave count N bounds flow control: N chunks are written
// without acknowledgment, then one with, and so on; the counter restarts at
// every plane. REFRESH follows the last plane. Engine and Plan expose the
// algorithm over any FrameWriter.
//
// A failed write aborts the transfer with a *TransferError. The device image
// buffer is then undefined and the whole job must be resent.
//
// # Telemetry
//
// Register one handler to receive decoded notifications in arrival order:
//
//	l.OnTelemetry(func(ev protocol.TelemetryEvent) {
//	    if d, ok := ev.(protocol.DeviceInfo); ok {
//	        fmt.Printf("panel %dx%d\n", d.Width, d.Height)
//	    }
//	})
//
// MTU, device info, firmware minor version and the configuration blob are
// also folded into the link and visible through Info.
//
// # Configuration Options
//
//	l := link.New(adapter,
//	    link.WithLogger(myLogger),
//	    link.WithProgressCallback(progressFunc),
//	    link.WithStateCallback(stateFunc),
//	    link.WithWarningCallback(warnFunc),
//	    link.WithWriteTimeout(5*time.Second),
//	    link.WithInterleaveCount(50),
//	)
//
// # Error Handling
//
// Caller mistakes are rejected before any I/O: ErrNotReady, ErrBusy,
// ErrUnsupportedColorMode, ErrOddLength, ErrEmptyImage and
// *protocol.CommandError. Transport failures surface as *WriteError or wrap
// ErrLinkLost. *VersionTooOldError is only ever a warning.
//
// # Hardware Independence
//
// This package does NOT implement Bluetooth. It talks to an Adapter; the
// transport/tinyble and transport/bluez packages provide real ones and tests
// use in-memory fakes.
package link
