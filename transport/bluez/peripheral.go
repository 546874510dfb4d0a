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

// disconnectTimeout bounds Device1.Disconnect.
const disconnectTimeout = 5 * time.Second

type peripheral struct {
	adapter *Adapter
	path    dbus.ObjectPath
	object  dbus.BusObject

	mu      sync.Mutex
	control *characteristic
	version dbus.ObjectPath

	lost     chan struct{}
	lostOnce sync.Once
}

var _ link.Peripheral = (*peripheral)(nil)

// waitResolved polls ServicesResolved until BlueZ has finished GATT discovery.
func (p *peripheral) waitResolved(ctx context.Context) error {
	ticker := time.NewTicker(p.adapter.pollInterval)
	defer ticker.Stop()

	for {
		v, err := p.object.GetProperty(deviceInterface + ".ServicesResolved")
		if err != nil {
			return fmt.Errorf("read ServicesResolved: %w", err)
		}
		if resolved, _ := v.Value().(bool); resolved {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.lost:
			return fmt.Errorf("device disconnected during service discovery")
		case <-ticker.C:
		}
	}
}

func (p *peripheral) DiscoverControl(ctx context.Context) (link.Characteristic, error) {
	if err := p.waitResolved(ctx); err != nil {
		return nil, err
	}

	objs, err := p.adapter.objects(ctx)
	if err != nil {
		return nil, err
	}
	controlPath, versionPath, err := objs.findGatt(p.path, p.adapter.ids)
	if err != nil {
		return nil, err
	}

	c := &characteristic{
		owner:  p,
		path:   controlPath,
		object: p.adapter.conn.Object(busName, controlPath),
		log:    p.adapter.log,
	}

	p.mu.Lock()
	p.control = c
	p.version = versionPath
	p.mu.Unlock()

	p.adapter.log.Debug("gatt resolved",
		zap.String("control", string(controlPath)),
		zap.String("version", string(versionPath)))
	return c, nil
}

func (p *peripheral) ReadVersion(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	path := p.version
	p.mu.Unlock()

	if path == "" {
		return nil, fmt.Errorf("version: %w", transport.ErrCharacteristicNotFound)
	}

	var value []byte
	err := p.adapter.conn.Object(busName, path).
		CallWithContext(ctx, characteristicInterface+".ReadValue", 0, map[string]interface{}{}).
		Store(&value)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	return value, nil
}

func (p *peripheral) Disconnected() <-chan struct{} {
	return p.lost
}

func (p *peripheral) Disconnect() error {
	defer p.markLost()
	defer p.adapter.forget(p)

	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	p.mu.Lock()
	control := p.control
	p.mu.Unlock()
	if control != nil && control.subscribed() {
		if err := control.object.CallWithContext(ctx, characteristicInterface+".StopNotify", 0).Err; err != nil {
			p.adapter.log.Debug("stop notify failed", zap.Error(err))
		}
	}

	if err := p.object.CallWithContext(ctx, deviceInterface+".Disconnect", 0).Err; err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

func (p *peripheral) markLost() {
	p.lostOnce.Do(func() { close(p.lost) })
}

type characteristic struct {
	owner  *peripheral
	path   dbus.ObjectPath
	object dbus.BusObject
	log    *zap.Logger

	mu     sync.Mutex
	notify func([]byte)
}

var _ link.Characteristic = (*characteristic)(nil)

// writeOptions builds the WriteValue options dict. "request" waits for the
// ATT write response, "command" is a write without response.
func writeOptions(ack bool) map[string]interface{} {
	if ack {
		return map[string]interface{}{"type": "request"}
	}
	return map[string]interface{}{"type": "command"}
}

func (c *characteristic) Write(ctx context.Context, p []byte) error {
	return c.object.CallWithContext(ctx, characteristicInterface+".WriteValue", 0, p, writeOptions(true)).Err
}

// WriteWithoutResponse still waits for the D-Bus reply, which BlueZ sends
// once the packet is queued. That keeps submission order on the bus.
func (c *characteristic) WriteWithoutResponse(p []byte) error {
	return c.object.Call(characteristicInterface+".WriteValue", 0, p, writeOptions(false)).Err
}

func (c *characteristic) EnableNotifications(fn func([]byte)) error {
	c.mu.Lock()
	c.notify = fn
	c.mu.Unlock()

	a := c.owner.adapter
	a.mu.Lock()
	a.chars[c.path] = c
	a.mu.Unlock()

	if err := c.object.Call(characteristicInterface+".StartNotify", 0).Err; err != nil {
		a.mu.Lock()
		delete(a.chars, c.path)
		a.mu.Unlock()
		c.mu.Lock()
		c.notify = nil
		c.mu.Unlock()
		return fmt.Errorf("start notify: %w", err)
	}
	c.log.Debug("notifications enabled", zap.String("path", string(c.path)))
	return nil
}

func (c *characteristic) subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify != nil
}

func (c *characteristic) deliver(value []byte) {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn == nil {
		return
	}
	data := make([]byte, len(value))
	copy(data, value)
	fn(data)
}
