package tinyble

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/transport"
)

// versionReadSize is large enough for any version characteristic value.
const versionReadSize = 20

type uuids struct {
	service bluetooth.UUID
	control bluetooth.UUID
	version bluetooth.UUID
}

func parseUUIDs(ids transport.Identifiers) (uuids, error) {
	ids, err := ids.Normalize()
	if err != nil {
		return uuids{}, err
	}

	var u uuids
	for _, f := range []struct {
		in  string
		out *bluetooth.UUID
	}{
		{ids.Service, &u.service},
		{ids.Control, &u.control},
		{ids.Version, &u.version},
	} {
		parsed, err := bluetooth.ParseUUID(f.in)
		if err != nil {
			return uuids{}, fmt.Errorf("parse UUID %q: %w", f.in, err)
		}
		*f.out = parsed
	}
	return u, nil
}

type peripheral struct {
	adapter *Adapter
	device  bluetooth.Device
	key     string

	mu      sync.Mutex
	version *bluetooth.DeviceCharacteristic

	lost     chan struct{}
	lostOnce sync.Once
}

var _ link.Peripheral = (*peripheral)(nil)

func (p *peripheral) DiscoverControl(ctx context.Context) (link.Characteristic, error) {
	u := p.adapter.uuids

	var chars []bluetooth.DeviceCharacteristic
	err := await(ctx, func() error {
		services, err := p.device.DiscoverServices([]bluetooth.UUID{u.service})
		if err != nil {
			return err
		}
		if len(services) == 0 {
			return transport.ErrServiceNotFound
		}
		chars, err = services[0].DiscoverCharacteristics([]bluetooth.UUID{u.control, u.version})
		return err
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	var control *bluetooth.DeviceCharacteristic
	for i := range chars {
		switch chars[i].UUID() {
		case u.control:
			control = &chars[i]
		case u.version:
			p.mu.Lock()
			p.version = &chars[i]
			p.mu.Unlock()
		}
	}
	if control == nil {
		return nil, fmt.Errorf("control %s: %w", u.control, transport.ErrCharacteristicNotFound)
	}

	return &characteristic{char: *control, log: p.adapter.log}, nil
}

func (p *peripheral) ReadVersion(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	version := p.version
	p.mu.Unlock()

	if version == nil {
		return nil, fmt.Errorf("version: %w", transport.ErrCharacteristicNotFound)
	}

	buf := make([]byte, versionReadSize)
	var n int
	err := await(ctx, func() error {
		var err error
		n, err = version.Read(buf)
		return err
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	return buf[:n], nil
}

func (p *peripheral) Disconnected() <-chan struct{} {
	return p.lost
}

func (p *peripheral) Disconnect() error {
	defer p.markLost()
	p.adapter.forget(p)
	if err := p.device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

func (p *peripheral) markLost() {
	p.lostOnce.Do(func() { close(p.lost) })
}

type characteristic struct {
	char bluetooth.DeviceCharacteristic
	log  *zap.Logger

	// serialises writes so an unacknowledged write never overtakes an
	// acknowledged one still in flight
	mu sync.Mutex
}

var _ link.Characteristic = (*characteristic)(nil)

func (c *characteristic) Write(ctx context.Context, p []byte) error {
	return await(ctx, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return writeWithResponse(c.char, p)
	}, nil)
}

func (c *characteristic) WriteWithoutResponse(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.char.WriteWithoutResponse(p)
	return err
}

func (c *characteristic) EnableNotifications(fn func([]byte)) error {
	err := c.char.EnableNotifications(func(buf []byte) {
		data := make([]byte, len(buf))
		copy(data, buf)
		fn(data)
	})
	if err != nil {
		return fmt.Errorf("enable notifications: %w", err)
	}
	c.log.Debug("notifications enabled", zap.String("characteristic", c.char.UUID().String()))
	return nil
}
