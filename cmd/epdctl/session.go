package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/transport"
	"github.com/moffa90/go-epdble/transport/bluez"
	"github.com/moffa90/go-epdble/transport/tinyble"
)

const (
	transportTinyBLE = "tinyble"
	transportBlueZ   = "bluez"
)

type commonFlags struct {
	device    *string
	transport *string
	hci       *string
	timeout   *time.Duration
	debug     *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	def := os.Getenv("EPD_TRANSPORT")
	if def == "" {
		def = defaultTransport(runtime.GOOS)
	}
	return &commonFlags{
		device:    fs.String("device", os.Getenv("EPD_DEVICE"), "Device address or name; or set EPD_DEVICE"),
		transport: fs.String("transport", def, "tinyble|bluez; or set EPD_TRANSPORT"),
		hci:       fs.String("hci", "", "BlueZ controller name (bluez only)"),
		timeout:   fs.Duration("timeout", link.DefaultConnectTimeout, "Connect and scan timeout"),
		debug:     fs.Bool("debug", false, "Verbose logging"),
	}
}

// defaultTransport picks bluez on Linux, where tinygo bluetooth has no
// write-with-response.
func defaultTransport(goos string) string {
	if goos == "linux" {
		return transportBlueZ
	}
	return transportTinyBLE
}

// binding is an opened transport.
type binding struct {
	adapter link.Adapter
	scanner transport.Scanner
	close   func()
}

func openBinding(name, hci string, log *zap.Logger) (*binding, error) {
	switch strings.ToLower(name) {
	case transportTinyBLE:
		a, err := tinyble.New(tinyble.WithLogger(log.Named("tinyble")))
		if err != nil {
			return nil, err
		}
		return &binding{adapter: a, scanner: a, close: func() {}}, nil
	case transportBlueZ:
		a, err := bluez.Dial(bluez.WithLogger(log.Named("bluez")), bluez.WithHCI(hci))
		if err != nil {
			return nil, err
		}
		return &binding{adapter: a, scanner: a, close: func() { _ = a.Close() }}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %s or %s)", name, transportTinyBLE, transportBlueZ)
	}
}

// session is a connected link plus everything needed to tear it down.
type session struct {
	log     *zap.Logger
	link    *link.Link
	binding *binding
	ctx     context.Context
	stop    context.CancelFunc
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// openSession resolves the device, connects and waits for READY. setup, if
// set, runs on the new link before it connects.
func openSession(c *commonFlags, setup func(*link.Link), opts ...link.Option) (*session, error) {
	if strings.TrimSpace(*c.device) == "" {
		return nil, errors.New("missing device (use -device or EPD_DEVICE)")
	}

	log, err := newLogger(*c.debug)
	if err != nil {
		return nil, err
	}

	b, err := openBinding(*c.transport, *c.hci, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	ctx, stop := signalContext()
	s := &session{log: log, binding: b, ctx: ctx, stop: stop}

	findCtx, cancel := context.WithTimeout(ctx, *c.timeout)
	handle, err := transport.Find(findCtx, b.scanner, *c.device)
	cancel()
	if err != nil {
		s.close()
		return nil, fmt.Errorf("find %s: %w", *c.device, err)
	}

	opts = append([]link.Option{
		link.WithLogger(linkLogger{s: log.Sugar().Named("link")}),
		link.WithConnectTimeout(*c.timeout),
		link.WithWarningCallback(func(err error) {
			log.Warn("device warning", zap.Error(err))
		}),
	}, opts...)
	s.link = link.New(b.adapter, opts...)
	if setup != nil {
		setup(s.link)
	}

	if err := s.link.Connect(ctx, handle); err != nil {
		s.close()
		return nil, err
	}
	fmt.Printf("Connected to %s\n", handle)
	return s, nil
}

func (s *session) close() {
	if s.link != nil {
		if err := s.link.Disconnect(); err != nil {
			s.log.Debug("disconnect", zap.Error(err))
		}
	}
	s.binding.close()
	s.stop()
	_ = s.log.Sync()
}
