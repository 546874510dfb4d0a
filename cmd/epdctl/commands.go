package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-epdble/imagefile"
	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/monitor"
	"github.com/moffa90/go-epdble/protocol"
	"github.com/moffa90/go-epdble/transport"
)

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	c := addCommonFlags(fs)
	prefix := fs.String("prefix", "", "Only list devices whose name starts with this")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger(*c.debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	b, err := openBinding(*c.transport, *c.hci, log)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *c.timeout)
	defer cancel()

	fmt.Printf("Scanning for %s...\n", *c.timeout)
	seen := make(map[string]bool)
	return b.scanner.Scan(ctx, transport.NameFilter(*prefix, func(adv transport.Advertisement) {
		if seen[adv.Handle.Address] {
			return
		}
		seen[adv.Handle.Address] = true
		fmt.Printf("%-20s %4d dBm  %s\n", adv.Handle.Address, adv.RSSI, adv.Handle.Name)
	}))
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	c := addCommonFlags(fs)
	file := fs.String("file", "", "Image buffer file (required)")
	mode := fs.String("mode", "", "fourColor|threeColor|blackWhiteColor")
	interleave := fs.Int("interleave", link.DefaultInterleaveCount, "Unacknowledged chunks between acknowledged ones")
	writeTimeout := fs.Duration("write-timeout", link.DefaultWriteTimeout, "Bound on each acknowledged write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return errors.New("-file is required")
	}
	if *interleave < 0 {
		return errors.New("-interleave must not be negative")
	}

	img, err := imagefile.Load(*file)
	if err != nil {
		return err
	}
	if *mode != "" {
		if img.Mode, err = parseColorMode(*mode); err != nil {
			return err
		}
	}
	if img.Mode == "" {
		return errors.New("-mode is required for files without a colorMode")
	}

	// Reject bad buffers before touching the radio.
	job, err := link.NewJob(img.Mode, img.Data)
	if err != nil {
		return err
	}

	s, err := openSession(c, nil,
		link.WithInterleaveCount(*interleave),
		link.WithWriteTimeout(*writeTimeout),
		link.WithProgressCallback(func(p link.Progress) {
			fmt.Printf("\r%-72s", progressLine(p))
			if p.Phase == link.PhaseComplete {
				fmt.Println()
			}
		}),
	)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Printf("Sending %d bytes (%s, %d plane(s)) at MTU %d\n", job.Size(), job.Mode, len(job.Planes), s.link.MTU())
	if err := s.link.SendImage(s.ctx, job); err != nil {
		fmt.Println()
		return err
	}
	fmt.Println("Do not operate the display until the refresh has completed.")
	return nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("cmd", flag.ContinueOnError)
	c := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("at least one hex command is required, e.g. epdctl cmd 05")
	}

	// Validate everything first so a typo does not leave a half-sent sequence.
	for _, arg := range fs.Args() {
		if _, _, err := protocol.ParseRawCommand(arg); err != nil {
			return fmt.Errorf("%q: %w", arg, err)
		}
	}

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.close()

	for _, arg := range fs.Args() {
		if err := s.link.SendRaw(s.ctx, arg); err != nil {
			return err
		}
		fmt.Printf("Sent %s\n", strings.ToLower(strings.Join(strings.Fields(arg), "")))
	}
	return nil
}

func runTime(args []string) error {
	fs := flag.NewFlagSet("time", flag.ContinueOnError)
	c := addCommonFlags(fs)
	mode := fs.String("mode", "calendar", "normal|calendar|clock")
	date := fs.String("date", "", "Calendar date YYYY-MM-DD (calendar mode only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	clockMode, err := parseClockMode(*mode)
	if err != nil {
		return err
	}
	var day time.Time
	if *date != "" {
		if clockMode != protocol.ClockModeCalendar {
			return errors.New("-date only applies to calendar mode")
		}
		if day, err = parseDate(*date, time.Local); err != nil {
			return err
		}
	}
	if clockMode == protocol.ClockModeClock {
		fmt.Println("Note: clock mode uses full refreshes and is not recommended for long-term use.")
	}

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if !day.IsZero() {
		err = s.link.SyncDate(s.ctx, day)
	} else {
		err = s.link.SyncTime(s.ctx, time.Now(), clockMode)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Time synced (%s mode)\n", clockMode)
	return nil
}

func runClear(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	c := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.link.Clear(s.ctx); err != nil {
		return err
	}
	fmt.Println("Clear sent. Do not operate the display until the refresh has completed.")
	return nil
}

func runDriver(args []string) error {
	fs := flag.NewFlagSet("driver", flag.ContinueOnError)
	c := addCommonFlags(fs)
	pinsHex := fs.String("pins", "", "Pin assignment as hex (required)")
	driverFlag := fs.String("driver", "", "Panel driver ID (required)")
	save := fs.Bool("save", false, "Persist the configuration afterwards")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pins, err := protocol.HexToBytes(*pinsHex)
	if err != nil {
		return fmt.Errorf("-pins: %w", err)
	}
	if len(pins) < protocol.ConfigPinCount {
		return fmt.Errorf("-pins needs at least %d bytes, got %d", protocol.ConfigPinCount, len(pins))
	}
	driver, err := parseByte(*driverFlag)
	if err != nil {
		return fmt.Errorf("-driver: %w", err)
	}

	s, err := openSession(c, nil)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.link.SetDriver(s.ctx, pins, driver); err != nil {
		return err
	}
	if *save {
		if err := s.link.SaveConfig(s.ctx); err != nil {
			return err
		}
	}
	fmt.Printf("Driver 0x%02X set with pins % X\n", driver, pins)
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	file := fs.String("file", "", "Image buffer file (required)")
	out := fs.String("out", imagefile.DefaultHeaderName, "Output header path")
	mode := fs.String("mode", "", "Color mode of the buffer")
	width := fs.Int("width", 0, "Image width in pixels")
	height := fs.Int("height", 0, "Image height in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*file) == "" {
		return errors.New("-file is required")
	}

	img, err := imagefile.Load(*file)
	if err != nil {
		return err
	}
	if *mode != "" {
		if img.Mode, err = parseColorMode(*mode); err != nil {
			return err
		}
	}
	if *width > 0 {
		img.Width = *width
	}
	if *height > 0 {
		img.Height = *height
	}

	if err := imagefile.SaveHeader(*out, img); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d bytes, %dx%d, colorMode %d)\n", *out, img.Size(), img.Width, img.Height, img.Mode.HeaderCode())
	return nil
}

func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	c := addCommonFlags(fs)
	listen := fs.String("listen", "127.0.0.1:8080", "WebSocket listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log, err := newLogger(*c.debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	hub := monitor.NewHub(log.Named("monitor"))

	attach := func(l *link.Link) {
		hub.Attach(l, func(ev protocol.TelemetryEvent) {
			fmt.Println(describe(ev))
		})
	}
	s, err := openSession(c, attach, hub.LinkOptions()...)
	if err != nil {
		return err
	}
	defer s.close()

	srv := &http.Server{Addr: *listen, Handler: hub.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Printf("Streaming events on ws://%s/ws (Ctrl-C to stop)\n", *listen)

	select {
	case <-s.ctx.Done():
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("monitor shutdown", zap.Error(err))
	}
	return nil
}
