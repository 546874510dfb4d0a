package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-epdble/protocol"
)

// Link owns the connection to one display: its state machine, the negotiated
// MTU and the firmware facts learned while connecting. Commands and image
// transfers are issued through it.
//
// Link is safe for concurrent use. Writes are serialised in call order and at
// most one image transfer runs at a time.
type Link struct {
	logs
	adapter Adapter
	config  Config
	now     func() time.Time

	mu          sync.Mutex
	state       State
	handle      DeviceHandle
	gen         uint64
	conn        context.Context
	connCancel  context.CancelFunc
	peripheral  Peripheral
	char        Characteristic
	mtu         int
	interleave  int
	fwMajor     byte
	fwMinor     *int
	device      *protocol.DeviceInfo
	configBlob  *protocol.ConfigBlob
	notifyIndex int
	busy        bool
	pending     *Reconnect
	handler     TelemetryHandler

	// writeMu serialises frames on the control characteristic.
	writeMu sync.Mutex

	// notifyMu keeps telemetry delivery in arrival order.
	notifyMu sync.Mutex
}

// Info is a snapshot of the link's fields.
type Info struct {
	State           State
	Device          DeviceHandle
	MTU             int
	InterleaveCount int
	Busy            bool

	// FirmwareMajor is set in READING_VERSION; zero before that
	FirmwareMajor byte

	// The fields below are nil until the device reports them
	FirmwareMinor *int
	DeviceInfo    *protocol.DeviceInfo
	Config        *protocol.ConfigBlob
}

// New creates a Link that connects through adapter.
//
// Example:
//
//	adapter, _ := tinyble.New()
//	l := link.New(adapter,
//	    link.WithLogger(myLogger),
//	    link.WithInterleaveCount(50),
//	)
func New(adapter Adapter, opts ...Option) *Link {
	if adapter == nil {
		panic("adapter cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Link{
		logs:       logs{cfg.Logger},
		adapter:    adapter,
		config:     cfg,
		now:        time.Now,
		mtu:        cfg.InitialMTU,
		interleave: cfg.InterleaveCount,
	}
}

// Connect runs the connect sequence against handle:
//  1. CONNECTING: low-level connect
//  2. DISCOVERING_SERVICE: resolve the control characteristic
//  3. READING_VERSION: read the firmware major version (best effort)
//  4. SUBSCRIBING: enable notifications (best effort)
//  5. READY: send INIT
//
// A zero handle reuses the previously selected device. Any failure up to
// SUBSCRIBING returns a *ConnectError and leaves the link DISCONNECTED; there
// is no automatic retry. A pending Reconnect is cancelled.
func (l *Link) Connect(ctx context.Context, handle DeviceHandle) error {
	l.mu.Lock()
	if handle.IsZero() {
		handle = l.handle
	}
	if handle.IsZero() {
		l.mu.Unlock()
		return ErrNoDevice
	}
	if l.state.connected() {
		l.mu.Unlock()
		return ErrAlreadyConnected
	}
	l.cancelPendingLocked()
	gen := l.beginLocked(handle)
	l.mu.Unlock()

	l.stateChanged(StateConnecting)
	return l.connect(ctx, gen, handle)
}

// beginLocked starts a new connection attempt in CONNECTING with fresh
// per-connection fields. The interleave count is a user setting and survives.
func (l *Link) beginLocked(handle DeviceHandle) uint64 {
	l.gen++
	l.handle = handle
	l.state = StateConnecting
	l.conn, l.connCancel = context.WithCancel(context.Background())
	l.resetFieldsLocked()

	return l.gen
}

// resetFieldsLocked clears everything learned from the last connection.
func (l *Link) resetFieldsLocked() {
	l.notifyIndex = 0
	l.mtu = l.config.InitialMTU
	l.fwMajor = 0
	l.fwMinor = nil
	l.device = nil
	l.configBlob = nil
	l.busy = false
}

func (l *Link) connect(ctx context.Context, gen uint64, handle DeviceHandle) error {
	cctx, cancel := context.WithTimeout(ctx, l.config.ConnectTimeout)
	defer cancel()

	l.logDebug("connecting", "device", handle.String())

	periph, err := l.adapter.Connect(cctx, handle)
	if err != nil {
		return l.fail(gen, StateConnecting, err)
	}

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		_ = periph.Disconnect()
		return l.fail(gen, StateConnecting, ErrLinkLost)
	}
	l.peripheral = periph
	conn := l.conn
	l.mu.Unlock()

	go l.watch(gen, conn, periph.Disconnected())

	if !l.advance(gen, StateDiscoveringService, nil) {
		return l.fail(gen, StateConnecting, ErrLinkLost)
	}

	char, err := periph.DiscoverControl(cctx)
	if err != nil {
		return l.fail(gen, StateDiscoveringService, err)
	}
	if !l.advance(gen, StateReadingVersion, func() { l.char = char }) {
		return l.fail(gen, StateDiscoveringService, ErrLinkLost)
	}

	major := l.readVersion(cctx, periph)
	if !l.advance(gen, StateSubscribing, func() { l.fwMajor = major }) {
		return l.fail(gen, StateReadingVersion, ErrLinkLost)
	}

	if err := char.EnableNotifications(l.notificationHandler(gen)); err != nil {
		l.logError("enable notifications failed, telemetry will not arrive", "error", err)
	}
	if !l.advance(gen, StateReady, nil) {
		return l.fail(gen, StateSubscribing, ErrLinkLost)
	}

	l.logInfo("link ready", "device", handle.String(), "firmware", fmt.Sprintf("0x%02X", major))

	if err := l.writeFrame(ctx, gen, protocol.BuildInitCmd(), true); err != nil {
		l.logError("init failed", "error", err)
	}

	return nil
}

// readVersion reads the firmware major version, falling back to
// protocol.FallbackFirmwareVersion when the read fails.
func (l *Link) readVersion(ctx context.Context, periph Peripheral) byte {
	major := byte(protocol.FallbackFirmwareVersion)

	data, err := periph.ReadVersion(ctx)
	switch {
	case err != nil:
		l.logWarn("version read failed, using fallback",
			"error", err,
			"fallback", fmt.Sprintf("0x%02X", major),
		)
	case len(data) == 0:
		l.logWarn("version read returned no data, using fallback",
			"fallback", fmt.Sprintf("0x%02X", major),
		)
	default:
		major = data[0]
	}

	l.logInfo("firmware version", "major", fmt.Sprintf("0x%02X", major))

	if major < protocol.MinFirmwareVersion {
		l.warn(&VersionTooOldError{Version: major, Minimum: protocol.MinFirmwareVersion})
	}

	return major
}

// advance moves the attempt identified by gen to next, applying fn under the
// lock. It returns false if the attempt has been superseded.
func (l *Link) advance(gen uint64, next State, fn func()) bool {
	l.mu.Lock()
	if l.gen != gen || !l.state.connected() {
		l.mu.Unlock()
		return false
	}
	if fn != nil {
		fn()
	}
	l.state = next
	l.mu.Unlock()

	l.stateChanged(next)
	return true
}

// fail ends the attempt identified by gen and returns the *ConnectError for it.
func (l *Link) fail(gen uint64, at State, err error) error {
	l.mu.Lock()
	var periph Peripheral
	changed := false
	if l.gen == gen {
		periph, changed = l.teardownLocked()
	}
	l.mu.Unlock()

	if periph != nil {
		_ = periph.Disconnect()
	}
	if changed {
		l.stateChanged(StateDisconnected)
	}

	l.logError("connect failed", "state", at.String(), "error", err)
	return &ConnectError{State: at, Err: err}
}

// teardownLocked moves to DISCONNECTED and invalidates every callback bound to
// the current connection. It returns the peripheral to disconnect, if any, and
// whether the state changed.
func (l *Link) teardownLocked() (Peripheral, bool) {
	if !l.state.connected() {
		return nil, false
	}

	l.gen++
	if l.connCancel != nil {
		l.connCancel()
		l.connCancel = nil
	}

	periph := l.peripheral
	l.peripheral = nil
	l.char = nil
	l.state = StateDisconnected
	l.busy = false

	return periph, true
}

// watch waits for the transport to report link loss.
func (l *Link) watch(gen uint64, conn context.Context, lost <-chan struct{}) {
	if lost == nil {
		return
	}

	select {
	case <-conn.Done():
		return
	case <-lost:
	}

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return
	}
	handle := l.handle
	l.teardownLocked()
	l.mu.Unlock()

	l.logInfo("link lost", "device", handle.String())
	l.stateChanged(StateDisconnected)
}

// Disconnect tears down the connection, if any, and cancels a pending
// Reconnect. A transfer in flight fails with ErrLinkLost.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	l.cancelPendingLocked()
	periph, changed := l.teardownLocked()
	handle := l.handle
	l.mu.Unlock()

	var err error
	if periph != nil {
		err = periph.Disconnect()
	}
	if changed {
		l.logInfo("disconnected", "device", handle.String())
		l.stateChanged(StateDisconnected)
	}

	return err
}

// SendCommand sends one command as an acknowledged write.
// It fails with ErrNotReady outside StateReady and with ErrBusy while an
// image transfer is running.
func (l *Link) SendCommand(ctx context.Context, opcode byte, payload []byte) error {
	return l.sendFrame(ctx, protocol.EncodeCommand(opcode, payload))
}

func (l *Link) sendFrame(ctx context.Context, frame []byte) error {
	l.mu.Lock()
	if l.state != StateReady {
		l.mu.Unlock()
		return ErrNotReady
	}
	if l.busy {
		l.mu.Unlock()
		return ErrBusy
	}
	gen := l.gen
	l.mu.Unlock()

	l.logDebug("command",
		"opcode", protocol.CommandName(frame[0]),
		"payload", protocol.BytesToHex(frame[1:]),
	)

	return l.writeFrame(ctx, gen, frame, true)
}

// SendImage uploads job and then issues REFRESH.
//
// MTU and interleave count are read once at the start. On failure the error
// is a *TransferError and the device image buffer is undefined; reconnect if
// needed and resend the whole job.
func (l *Link) SendImage(ctx context.Context, job *Job) error {
	if job == nil {
		return ErrEmptyImage
	}

	l.mu.Lock()
	if l.state != StateReady {
		l.mu.Unlock()
		return ErrNotReady
	}
	if l.busy {
		l.mu.Unlock()
		return ErrBusy
	}
	l.busy = true
	gen := l.gen
	params := Params{MTU: l.mtu, InterleaveCount: l.interleave}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.gen == gen {
			l.busy = false
		}
		l.mu.Unlock()
	}()

	return newEngine(&connWriter{link: l, gen: gen}, l.config).Send(ctx, job, params)
}

// SendBuffer builds a Job from a processed image buffer and sends it.
func (l *Link) SendBuffer(ctx context.Context, mode protocol.ColorMode, buf []byte) error {
	job, err := NewJob(mode, buf)
	if err != nil {
		return err
	}
	return l.SendImage(ctx, job)
}

// connWriter binds engine writes to one connection.
type connWriter struct {
	link *Link
	gen  uint64
}

func (w *connWriter) WriteFrame(ctx context.Context, frame []byte, ack bool) error {
	return w.link.writeFrame(ctx, w.gen, frame, ack)
}

// writeFrame writes frame on the connection identified by gen.
func (l *Link) writeFrame(ctx context.Context, gen uint64, frame []byte, ack bool) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	char, conn := l.char, l.conn
	live := l.gen == gen && l.state.connected() && char != nil
	l.mu.Unlock()
	if !live {
		return ErrLinkLost
	}

	var err error
	if ack {
		wctx, cancel := l.writeContext(ctx, conn)
		err = char.Write(wctx, frame)
		cancel()
	} else {
		err = char.WriteWithoutResponse(frame)
	}
	if err == nil {
		return nil
	}

	if !l.live(gen) {
		return fmt.Errorf("%w: %v", ErrLinkLost, err)
	}
	return &WriteError{Opcode: frame[0], Acked: ack, Err: err}
}

// writeContext derives the context for one acknowledged write: bounded by
// WriteTimeout and cancelled when the connection goes away.
func (l *Link) writeContext(ctx, conn context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if l.config.WriteTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, l.config.WriteTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	stop := context.AfterFunc(conn, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (l *Link) live(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen && l.state.connected()
}

// State returns the current connection state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Device returns the selected device handle.
func (l *Link) Device() DeviceHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle
}

// MTU returns the current MTU.
func (l *Link) MTU() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mtu
}

// SetInterleaveCount sets the number of unacknowledged chunk writes sent
// before each acknowledged one. It takes effect at the next SendImage.
func (l *Link) SetInterleaveCount(n int) error {
	if n < 0 {
		return fmt.Errorf("interleave count must be >= 0, got %d", n)
	}

	l.mu.Lock()
	l.interleave = n
	l.mu.Unlock()

	l.logDebug("interleave count set", "count", n)
	return nil
}

// Info returns a consistent snapshot of the link fields.
func (l *Link) Info() Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	info := Info{
		State:           l.state,
		Device:          l.handle,
		MTU:             l.mtu,
		InterleaveCount: l.interleave,
		Busy:            l.busy,
		FirmwareMajor:   l.fwMajor,
	}
	if l.fwMinor != nil {
		v := *l.fwMinor
		info.FirmwareMinor = &v
	}
	if l.device != nil {
		d := *l.device
		info.DeviceInfo = &d
	}
	if l.configBlob != nil {
		c := *l.configBlob
		c.Pins = append([]byte(nil), l.configBlob.Pins...)
		info.Config = &c
	}

	return info
}

func (l *Link) stateChanged(s State) {
	l.logDebug("state", "state", s.String())
	if l.config.StateCallback != nil {
		l.config.StateCallback(s)
	}
}

func (l *Link) warn(err error) {
	l.logWarn("compatibility warning", "warning", err.Error())
	if l.config.WarningCallback != nil {
		l.config.WarningCallback(err)
	}
}
