package link

import "context"

// DeviceHandle identifies a previously discovered display.
type DeviceHandle struct {
	// Address is the platform address (MAC on Linux, UUID on macOS)
	Address string

	// Name is the advertised local name, if known
	Name string
}

// IsZero reports whether no device has been selected.
func (h DeviceHandle) IsZero() bool {
	return h.Address == ""
}

func (h DeviceHandle) String() string {
	if h.Name == "" {
		return h.Address
	}
	return h.Name + " (" + h.Address + ")"
}

// Adapter opens BLE connections. Implementations live in the transport
// packages; tests use an in-memory fake.
type Adapter interface {
	// Connect establishes the low-level connection to the device.
	Connect(ctx context.Context, handle DeviceHandle) (Peripheral, error)
}

// Peripheral is one live connection.
type Peripheral interface {
	// DiscoverControl resolves the control service and its write/notify characteristic.
	DiscoverControl(ctx context.Context) (Characteristic, error)

	// ReadVersion reads the version characteristic once.
	ReadVersion(ctx context.Context) ([]byte, error)

	// Disconnected is closed when the transport reports the connection gone.
	// It may return nil if the transport cannot report link loss.
	Disconnected() <-chan struct{}

	// Disconnect tears the connection down.
	Disconnect() error
}

// Characteristic is the control characteristic of the display service.
//
// Implementations must preserve submission order between Write and
// WriteWithoutResponse calls.
type Characteristic interface {
	// Write sends p and blocks until the device acknowledges delivery.
	Write(ctx context.Context, p []byte) error

	// WriteWithoutResponse queues p without waiting for an acknowledgment.
	WriteWithoutResponse(p []byte) error

	// EnableNotifications subscribes fn to notifications. fn is called for
	// each notification, in the order the device sent them.
	EnableNotifications(fn func([]byte)) error
}
