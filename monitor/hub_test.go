package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/protocol"
)

func TestHubPublishOrder(t *testing.T) {
	hub := NewHub(zap.NewNop())
	events, unsub := hub.Subscribe()
	defer unsub()

	hub.PublishState(link.StateConnecting)
	hub.PublishTelemetry(protocol.MTUUpdate{MTU: 247})
	hub.PublishWarning(errors.New("old firmware"))

	want := []EventType{EventState, EventTelemetry, EventWarning}
	for i, typ := range want {
		e := <-events
		if e.Type != typ {
			t.Fatalf("event %d type = %s, want %s", i, e.Type, typ)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}
}

func TestHubPayloads(t *testing.T) {
	hub := NewHub(nil)
	events, unsub := hub.Subscribe()
	defer unsub()

	hub.PublishTelemetry(protocol.DeviceInfo{ModelID: 6, Width: 250, Height: 122})
	td := (<-events).Data.(TelemetryData)
	if td.Kind != protocol.KindDeviceInfo || td.Value.(protocol.DeviceInfo).Width != 250 {
		t.Errorf("telemetry data = %+v", td)
	}

	hub.PublishProgress(link.Progress{Phase: link.PhaseUploading, PlaneName: "bw", Chunk: 3, TotalChunks: 6, ElapsedTime: 1500 * time.Millisecond})
	pd := (<-events).Data.(ProgressData)
	if pd.Plane != "bw" || pd.Chunk != 3 || pd.ElapsedMS != 1500 {
		t.Errorf("progress data = %+v", pd)
	}

	if sd := func() StateData { hub.PublishState(link.StateReady); return (<-events).Data.(StateData) }(); sd.State != "READY" {
		t.Errorf("state data = %+v", sd)
	}
}

func TestHubIgnoresNil(t *testing.T) {
	hub := NewHub(nil)
	events, unsub := hub.Subscribe()
	defer unsub()

	hub.PublishTelemetry(nil)
	hub.PublishWarning(nil)

	select {
	case e := <-events:
		t.Errorf("unexpected event %+v", e)
	default:
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	hub.bufferSize = 2
	events, unsub := hub.Subscribe()
	defer unsub()

	for i := 0; i < 5; i++ {
		hub.PublishState(link.StateReady)
	}
	if len(events) != 2 {
		t.Errorf("queued = %d, want 2", len(events))
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	events, unsub := hub.Subscribe()
	if hub.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", hub.Len())
	}

	unsub()
	unsub()

	if hub.Len() != 0 {
		t.Errorf("Len() = %d after unsubscribe", hub.Len())
	}
	if _, ok := <-events; ok {
		t.Error("channel still open")
	}
	hub.PublishState(link.StateReady)
}

func TestHubTimestampClock(t *testing.T) {
	hub := NewHub(nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	hub.now = func() time.Time { return fixed }

	events, unsub := hub.Subscribe()
	defer unsub()
	hub.PublishState(link.StateReady)

	if got := (<-events).Timestamp; !got.Equal(fixed) || got.Location() != time.UTC {
		t.Errorf("timestamp = %v, want %v in UTC", got, fixed)
	}
}

// fakeChar and friends give the link a device that is always ready.
type fakeChar struct {
	mu     sync.Mutex
	notify func([]byte)
}

func (c *fakeChar) Write(context.Context, []byte) error { return nil }
func (c *fakeChar) WriteWithoutResponse([]byte) error   { return nil }

func (c *fakeChar) EnableNotifications(fn func([]byte)) error {
	c.mu.Lock()
	c.notify = fn
	c.mu.Unlock()
	return nil
}

func (c *fakeChar) send(data []byte) {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	fn(data)
}

type fakePeripheral struct {
	char *fakeChar
	lost chan struct{}
	once sync.Once
}

func (p *fakePeripheral) DiscoverControl(context.Context) (link.Characteristic, error) {
	return p.char, nil
}

func (p *fakePeripheral) ReadVersion(context.Context) ([]byte, error) {
	return []byte{protocol.MinFirmwareVersion}, nil
}

func (p *fakePeripheral) Disconnected() <-chan struct{} { return p.lost }

func (p *fakePeripheral) Disconnect() error {
	p.once.Do(func() { close(p.lost) })
	return nil
}

type fakeAdapter struct {
	periph *fakePeripheral
}

func (a *fakeAdapter) Connect(context.Context, link.DeviceHandle) (link.Peripheral, error) {
	return a.periph, nil
}

func TestAttach(t *testing.T) {
	hub := NewHub(nil)
	events, unsub := hub.Subscribe()
	defer unsub()

	char := &fakeChar{}
	adapter := &fakeAdapter{periph: &fakePeripheral{char: char, lost: make(chan struct{})}}
	l := link.New(adapter, hub.LinkOptions()...)

	var forwarded []protocol.TelemetryEvent
	hub.Attach(l, func(ev protocol.TelemetryEvent) { forwarded = append(forwarded, ev) })

	if err := l.Connect(context.Background(), link.DeviceHandle{Address: "AA:BB:CC:DD:EE:FF"}); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer func() { _ = l.Disconnect() }()

	var states []string
	for len(states) < 5 {
		e := <-events
		if e.Type == EventState {
			states = append(states, e.Data.(StateData).State)
		}
	}
	if states[0] != "CONNECTING" || states[4] != "READY" {
		t.Errorf("states = %v", states)
	}

	char.send([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	char.send([]byte("mtu=128"))

	var kinds []protocol.EventKind
	for len(kinds) < 2 {
		e := <-events
		if e.Type == EventTelemetry {
			kinds = append(kinds, e.Data.(TelemetryData).Kind)
		}
	}
	if kinds[0] != protocol.KindConfig || kinds[1] != protocol.KindMTU {
		t.Errorf("telemetry kinds = %v", kinds)
	}
	if len(forwarded) != 2 {
		t.Errorf("forwarded %d events, want 2", len(forwarded))
	}
	if l.MTU() != 128 {
		t.Errorf("MTU() = %d, want 128", l.MTU())
	}
}
