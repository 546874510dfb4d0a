package bluez

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/transport"
)

// DefaultPollInterval is how often discovery results and ServicesResolved are polled.
const DefaultPollInterval = 250 * time.Millisecond

// Adapter implements link.Adapter against the BlueZ daemon.
type Adapter struct {
	conn         *dbus.Conn
	ids          transport.Identifiers
	log          *zap.Logger
	hci          string
	pollInterval time.Duration

	signalOnce sync.Once
	signalErr  error

	mu      sync.Mutex
	devices map[dbus.ObjectPath]*peripheral
	chars   map[dbus.ObjectPath]*characteristic
}

var (
	_ link.Adapter      = (*Adapter)(nil)
	_ transport.Scanner = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithIdentifiers overrides the GATT identifiers.
func WithIdentifiers(ids transport.Identifiers) Option {
	return func(a *Adapter) { a.ids = ids }
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithHCI selects the controller by name, e.g. "hci1".
func WithHCI(name string) Option {
	return func(a *Adapter) { a.hci = name }
}

// WithPollInterval sets the discovery poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// Dial connects to the system bus and returns an Adapter on it.
func Dial(opts ...Option) (*Adapter, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	a, err := New(conn, opts...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

// New creates an Adapter on an existing bus connection.
func New(conn *dbus.Conn, opts ...Option) (*Adapter, error) {
	if conn == nil {
		return nil, fmt.Errorf("bluez: nil bus connection")
	}

	a := &Adapter{
		conn:         conn,
		ids:          transport.DefaultIdentifiers(),
		log:          zap.NewNop(),
		pollInterval: DefaultPollInterval,
		devices:      make(map[dbus.ObjectPath]*peripheral),
		chars:        make(map[dbus.ObjectPath]*characteristic),
	}
	for _, opt := range opts {
		opt(a)
	}

	ids, err := a.ids.Normalize()
	if err != nil {
		return nil, err
	}
	a.ids = ids
	return a, nil
}

// Close releases the bus connection.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

func (a *Adapter) objects(ctx context.Context) (managedObjects, error) {
	var objs managedObjects
	err := a.conn.Object(busName, "/").CallWithContext(ctx, getManagedObjects, 0).Store(&objs)
	if err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objs, nil
}

func (a *Adapter) adapterPath(ctx context.Context) (dbus.ObjectPath, managedObjects, error) {
	objs, err := a.objects(ctx)
	if err != nil {
		return "", nil, err
	}
	path, err := objs.findAdapter(a.hci)
	if err != nil {
		return "", nil, err
	}
	return path, objs, nil
}

// Scan runs LE discovery and reports every device once, until ctx is done.
func (a *Adapter) Scan(ctx context.Context, fn func(transport.Advertisement)) error {
	path, objs, err := a.adapterPath(ctx)
	if err != nil {
		return err
	}

	radio := a.conn.Object(busName, path)
	filter := map[string]interface{}{"Transport": "le"}
	if err := radio.CallWithContext(ctx, adapterInterface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		a.log.Warn("set discovery filter failed", zap.Error(err))
	}
	if err := radio.CallWithContext(ctx, adapterInterface+".StartDiscovery", 0).Err; err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	a.log.Debug("discovery started", zap.String("adapter", string(path)))
	defer func() {
		if err := radio.Call(adapterInterface+".StopDiscovery", 0).Err; err != nil {
			a.log.Debug("stop discovery failed", zap.Error(err))
		}
	}()

	reported := make(map[dbus.ObjectPath]bool)
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		for _, d := range objs.devices(path) {
			if reported[d.path] || d.adv.Handle.Address == "" {
				continue
			}
			reported[d.path] = true
			fn(d.adv)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if objs, err = a.objects(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Connect calls Device1.Connect on a known device. Unknown devices are
// discovered first.
func (a *Adapter) Connect(ctx context.Context, handle link.DeviceHandle) (link.Peripheral, error) {
	if err := a.watchSignals(); err != nil {
		return nil, err
	}

	adapter, objs, err := a.adapterPath(ctx)
	if err != nil {
		return nil, err
	}
	path, ok := objs.findDevice(adapter, handle.Address)
	if !ok {
		a.log.Debug("device unknown to bluez, scanning", zap.String("address", handle.Address))
		if _, err := transport.Find(ctx, a, handle.Address); err != nil {
			return nil, err
		}
		if objs, err = a.objects(ctx); err != nil {
			return nil, err
		}
		if path, ok = objs.findDevice(adapter, handle.Address); !ok {
			return nil, transport.ErrNotFound
		}
	}

	p := &peripheral{
		adapter: a,
		path:    path,
		object:  a.conn.Object(busName, path),
		lost:    make(chan struct{}),
	}
	a.mu.Lock()
	a.devices[path] = p
	a.mu.Unlock()

	if err := p.object.CallWithContext(ctx, deviceInterface+".Connect", 0).Err; err != nil {
		a.forget(p)
		return nil, fmt.Errorf("connect %s: %w", handle.Address, err)
	}

	a.log.Info("device connected", zap.String("address", handle.Address), zap.String("path", string(path)))
	return p, nil
}

// watchSignals subscribes once to PropertiesChanged and dispatches them.
func (a *Adapter) watchSignals() error {
	a.signalOnce.Do(func() {
		err := a.conn.AddMatchSignal(
			dbus.WithMatchInterface(propertiesInterface),
			dbus.WithMatchMember("PropertiesChanged"),
		)
		if err != nil {
			a.signalErr = fmt.Errorf("add match signal: %w", err)
			return
		}

		signals := make(chan *dbus.Signal, 64)
		a.conn.Signal(signals)
		go a.dispatch(signals)
	})
	return a.signalErr
}

// dispatch runs on a single goroutine so notifications keep device order.
func (a *Adapter) dispatch(signals <-chan *dbus.Signal) {
	for sig := range signals {
		iface, changed, ok := parsePropertiesChanged(sig)
		if !ok {
			continue
		}

		switch iface {
		case characteristicInterface:
			v, ok := changed["Value"]
			if !ok {
				continue
			}
			value, ok := v.Value().([]byte)
			if !ok {
				continue
			}
			a.mu.Lock()
			c := a.chars[sig.Path]
			a.mu.Unlock()
			if c != nil {
				c.deliver(value)
			}

		case deviceInterface:
			if connected, ok := boolProp(changed, "Connected"); ok && !connected {
				a.mu.Lock()
				p := a.devices[sig.Path]
				a.mu.Unlock()
				if p != nil {
					a.log.Info("device disconnected", zap.String("path", string(sig.Path)))
					p.markLost()
				}
			}
		}
	}
}

func (a *Adapter) forget(p *peripheral) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.devices[p.path] == p {
		delete(a.devices, p.path)
	}
	for path, c := range a.chars {
		if c.owner == p {
			delete(a.chars, path)
		}
	}
}
