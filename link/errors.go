package link

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-epdble/protocol"
)

var (
	// ErrNotReady is returned when a command is attempted outside StateReady
	ErrNotReady = errors.New("link not ready")

	// ErrLinkLost is returned when the transport reports a disconnection
	ErrLinkLost = errors.New("link lost")

	// ErrBusy is returned when an image transfer is already in progress
	ErrBusy = errors.New("transfer in progress")

	// ErrNoDevice is returned when connecting without a selected device
	ErrNoDevice = errors.New("no device selected")

	// ErrAlreadyConnected is returned by Connect when a connection exists or is being set up
	ErrAlreadyConnected = errors.New("already connected")

	// ErrUnsupportedColorMode is returned when a job is built for a color mode the device cannot take
	ErrUnsupportedColorMode = errors.New("unsupported color mode")

	// ErrOddLength is returned when a threeColor buffer cannot be split into equal planes
	ErrOddLength = errors.New("threeColor buffer has odd length")

	// ErrEmptyImage is returned when a job has no image bytes
	ErrEmptyImage = errors.New("image buffer is empty")

	// ErrMTUTooSmall is returned when the MTU leaves no room for chunk data
	ErrMTUTooSmall = errors.New("mtu too small for image chunks")
)

// WriteError indicates that the transport rejected or timed out a write.
type WriteError struct {
	// Opcode is the command being written
	Opcode byte

	// Acked is true if the write waited for an acknowledgment
	Acked bool

	// Err is the transport error
	Err error
}

func (e *WriteError) Error() string {
	kind := "unacknowledged"
	if e.Acked {
		kind = "acknowledged"
	}
	return fmt.Sprintf("write %s failed (%s write): %v", protocol.CommandName(e.Opcode), kind, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ConnectError indicates that the connect sequence failed. The link is back
// in StateDisconnected.
type ConnectError struct {
	// State is the state the sequence was in when it failed
	State State

	// Err is the underlying error
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed during %s: %v", e.State, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// TransferError indicates that an image transfer was aborted. Chunks already
// written are not rolled back, so the device image buffer is left in an
// undefined state and the whole job must be resent.
type TransferError struct {
	// Plane is the index of the plane being sent
	Plane int

	// Chunk is the index of the chunk within the plane
	Chunk int

	// Refresh is true if every chunk was written and only REFRESH failed
	Refresh bool

	// Err is the underlying error
	Err error
}

func (e *TransferError) Error() string {
	if e.Refresh {
		return fmt.Sprintf("transfer aborted at refresh, device image buffer undefined: %v", e.Err)
	}
	return fmt.Sprintf("transfer aborted at plane %d chunk %d, device image buffer undefined: %v",
		e.Plane, e.Chunk, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// VersionTooOldError is a non-fatal warning that the firmware major version is
// below the supported minimum. It is delivered to the WarningCallback; the
// connection proceeds.
type VersionTooOldError struct {
	Version byte
	Minimum byte
}

func (e *VersionTooOldError) Error() string {
	return fmt.Sprintf("firmware version 0x%02X is older than supported minimum 0x%02X",
		e.Version, e.Minimum)
}
