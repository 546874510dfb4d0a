package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moffa90/go-epdble/protocol"
)

type mockWrite struct {
	frame []byte
	ack   bool
}

// MockCharacteristic records every write attempt.
type MockCharacteristic struct {
	mu        sync.Mutex
	writes    []mockWrite
	notify    func([]byte)
	notifyErr error
	block     bool
	failOn    func(n int, frame []byte, ack bool) error
}

func (c *MockCharacteristic) record(p []byte, ack bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := make([]byte, len(p))
	copy(frame, p)
	c.writes = append(c.writes, mockWrite{frame: frame, ack: ack})

	var err error
	if c.failOn != nil {
		err = c.failOn(len(c.writes)-1, frame, ack)
	}
	return c.block && ack, err
}

func (c *MockCharacteristic) Write(ctx context.Context, p []byte) error {
	block, err := c.record(p, true)
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (c *MockCharacteristic) WriteWithoutResponse(p []byte) error {
	_, err := c.record(p, false)
	return err
}

func (c *MockCharacteristic) EnableNotifications(fn func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifyErr != nil {
		return c.notifyErr
	}
	c.notify = fn
	return nil
}

// Notify delivers a notification as the device would.
func (c *MockCharacteristic) Notify(data []byte) {
	c.mu.Lock()
	fn := c.notify
	c.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (c *MockCharacteristic) Writes() []mockWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mockWrite, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *MockCharacteristic) SetBlock(block bool) {
	c.mu.Lock()
	c.block = block
	c.mu.Unlock()
}

func (c *MockCharacteristic) SetFailOn(fn func(n int, frame []byte, ack bool) error) {
	c.mu.Lock()
	c.failOn = fn
	c.mu.Unlock()
}

// MockPeripheral simulates one connection.
type MockPeripheral struct {
	char        *MockCharacteristic
	discoverErr error
	version     []byte
	versionErr  error

	mu          sync.Mutex
	lost        chan struct{}
	closed      bool
	disconnects int
}

func NewMockPeripheral() *MockPeripheral {
	return &MockPeripheral{
		char:    &MockCharacteristic{},
		version: []byte{0x16},
		lost:    make(chan struct{}),
	}
}

func (p *MockPeripheral) DiscoverControl(ctx context.Context) (Characteristic, error) {
	if p.discoverErr != nil {
		return nil, p.discoverErr
	}
	return p.char, nil
}

func (p *MockPeripheral) ReadVersion(ctx context.Context) ([]byte, error) {
	return p.version, p.versionErr
}

func (p *MockPeripheral) Disconnected() <-chan struct{} {
	return p.lost
}

func (p *MockPeripheral) Disconnect() error {
	p.mu.Lock()
	p.disconnects++
	p.mu.Unlock()
	p.Lose()
	return nil
}

// Lose simulates the transport reporting link loss.
func (p *MockPeripheral) Lose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.lost)
	}
}

func (p *MockPeripheral) Disconnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

// MockAdapter hands out a fresh MockPeripheral per connection.
type MockAdapter struct {
	mu          sync.Mutex
	connectErr  error
	setup       func(*MockPeripheral)
	peripherals []*MockPeripheral
	handles     []DeviceHandle
}

func (a *MockAdapter) Connect(ctx context.Context, handle DeviceHandle) (Peripheral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.handles = append(a.handles, handle)
	if a.connectErr != nil {
		return nil, a.connectErr
	}

	p := NewMockPeripheral()
	if a.setup != nil {
		a.setup(p)
	}
	a.peripherals = append(a.peripherals, p)
	return p, nil
}

func (a *MockAdapter) Connects() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.handles)
}

func (a *MockAdapter) Last() *MockPeripheral {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.peripherals) == 0 {
		return nil
	}
	return a.peripherals[len(a.peripherals)-1]
}

// Mock logger for testing
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.mu.Lock()
	l.debugMsgs = append(l.debugMsgs, msg)
	l.mu.Unlock()
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	l.infoMsgs = append(l.infoMsgs, msg)
	l.mu.Unlock()
}

func (l *MockLogger) Warn(msg string, kv ...interface{}) {
	l.mu.Lock()
	l.warnMsgs = append(l.warnMsgs, msg)
	l.mu.Unlock()
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.mu.Lock()
	l.errorMsgs = append(l.errorMsgs, msg)
	l.mu.Unlock()
}

func (l *MockLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errorMsgs...)
}

// stateRecorder collects StateCallback invocations.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

var testDevice = DeviceHandle{Address: "AA:BB:CC:DD:EE:FF", Name: "NRF_EPD_1234"}

// newReadyLink returns a link connected to a fresh MockAdapter.
func newReadyLink(t *testing.T, opts ...Option) (*Link, *MockAdapter) {
	t.Helper()

	adapter := &MockAdapter{}
	l := New(adapter, opts...)
	if err := l.Connect(context.Background(), testDevice); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = l.Disconnect() })

	return l, adapter
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// imageWrites filters WRITE_IMG frames.
func imageWrites(writes []mockWrite) []mockWrite {
	var out []mockWrite
	for _, w := range writes {
		if w.frame[0] == protocol.CmdWriteImage {
			out = append(out, w)
		}
	}
	return out
}
