package tinyble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/transport"
)

// Adapter binds link.Adapter to a tinygo bluetooth adapter.
type Adapter struct {
	radio *bluetooth.Adapter
	ids   transport.Identifiers
	log   *zap.Logger

	uuids uuids

	enableOnce sync.Once
	enableErr  error

	mu    sync.Mutex
	seen  map[string]bluetooth.Address
	conns map[string]*peripheral
}

var (
	_ link.Adapter      = (*Adapter)(nil)
	_ transport.Scanner = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithRadio selects the bluetooth adapter. The default is bluetooth.DefaultAdapter.
func WithRadio(radio *bluetooth.Adapter) Option {
	return func(a *Adapter) {
		if radio != nil {
			a.radio = radio
		}
	}
}

// WithIdentifiers overrides the GATT identifiers.
func WithIdentifiers(ids transport.Identifiers) Option {
	return func(a *Adapter) {
		a.ids = ids
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an Adapter. The radio is enabled lazily on first use.
func New(opts ...Option) (*Adapter, error) {
	a := &Adapter{
		radio: bluetooth.DefaultAdapter,
		ids:   transport.DefaultIdentifiers(),
		log:   zap.NewNop(),
		seen:  make(map[string]bluetooth.Address),
		conns: make(map[string]*peripheral),
	}
	for _, opt := range opts {
		opt(a)
	}

	u, err := parseUUIDs(a.ids)
	if err != nil {
		return nil, err
	}
	a.uuids = u
	return a, nil
}

// Enable powers up the radio and installs the connection handler.
func (a *Adapter) Enable() error {
	a.enableOnce.Do(func() {
		if err := a.radio.Enable(); err != nil {
			a.enableErr = fmt.Errorf("enable bluetooth: %w", err)
			return
		}
		a.radio.SetConnectHandler(a.onConnectEvent)
		a.log.Debug("bluetooth enabled")
	})
	return a.enableErr
}

func (a *Adapter) onConnectEvent(device bluetooth.Device, connected bool) {
	if connected {
		return
	}

	key := addressKey(device.Address.String())
	a.mu.Lock()
	p := a.conns[key]
	delete(a.conns, key)
	a.mu.Unlock()

	if p != nil {
		a.log.Info("device disconnected", zap.String("address", key))
		p.markLost()
	}
}

// Scan reports advertisements until ctx is done.
func (a *Adapter) Scan(ctx context.Context, fn func(transport.Advertisement)) error {
	if err := a.Enable(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := a.radio.StopScan(); err != nil {
				a.log.Warn("stop scan failed", zap.Error(err))
			}
		case <-done:
		}
	}()

	a.log.Debug("scan started")
	err := a.radio.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		a.mu.Lock()
		a.seen[addressKey(addr)] = result.Address
		a.mu.Unlock()

		fn(transport.Advertisement{
			Handle: link.DeviceHandle{Address: addr, Name: result.LocalName()},
			RSSI:   result.RSSI,
		})
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// Connect opens a connection to a device. Devices not seen by a previous
// Scan are looked up by scanning first.
func (a *Adapter) Connect(ctx context.Context, handle link.DeviceHandle) (link.Peripheral, error) {
	if err := a.Enable(); err != nil {
		return nil, err
	}

	key := addressKey(handle.Address)
	addr, ok := a.lookup(key)
	if !ok {
		a.log.Debug("device not cached, scanning", zap.String("address", handle.Address))
		if _, err := transport.Find(ctx, a, handle.Address); err != nil {
			return nil, err
		}
		if addr, ok = a.lookup(key); !ok {
			return nil, transport.ErrNotFound
		}
	}

	var device bluetooth.Device
	err := await(ctx, func() error {
		var err error
		device, err = a.radio.Connect(addr, bluetooth.ConnectionParams{})
		return err
	}, func() {
		_ = device.Disconnect()
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", handle.Address, err)
	}

	p := &peripheral{
		adapter: a,
		device:  device,
		key:     key,
		lost:    make(chan struct{}),
	}
	a.mu.Lock()
	a.conns[key] = p
	a.mu.Unlock()

	a.log.Info("device connected", zap.String("address", handle.Address), zap.String("name", handle.Name))
	return p, nil
}

func (a *Adapter) lookup(key string) (bluetooth.Address, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	addr, ok := a.seen[key]
	return addr, ok
}

func (a *Adapter) forget(p *peripheral) {
	a.mu.Lock()
	if a.conns[p.key] == p {
		delete(a.conns, p.key)
	}
	a.mu.Unlock()
}

func addressKey(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}

// await runs fn on its own goroutine and waits for it or ctx. If ctx wins,
// cleanup runs once fn eventually succeeds.
func await(ctx context.Context, fn func() error, cleanup func()) error {
	errc := make(chan error, 1)
	go func() {
		errc <- fn()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if cleanup != nil {
			go func() {
				if err := <-errc; err == nil {
					cleanup()
				}
			}()
		}
		return ctx.Err()
	}
}
