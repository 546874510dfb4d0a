package link

import (
	"context"
	"time"
)

// Reconnect is a scheduled reconnect attempt. It is superseded by any later
// Connect, Disconnect or Reconnect call.
type Reconnect struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Cancel stops the attempt. It is safe to call more than once and after the
// attempt has finished.
func (r *Reconnect) Cancel() {
	r.cancel()
}

// Done is closed when the attempt has finished, successfully or not.
func (r *Reconnect) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the attempt finishes and returns its result: nil once the
// link is READY, the *ConnectError of a failed attempt, or context.Canceled if
// it was cancelled or superseded before connecting.
func (r *Reconnect) Wait() error {
	<-r.done
	return r.err
}

// Reconnect disconnects if live, resets the link fields and, after the
// configured delay, runs the connect sequence against the same device.
//
// It returns immediately with a handle to the scheduled attempt. Image
// transfers are not resumed; the caller resends the whole job.
//
// Example:
//
//	r, err := l.Reconnect(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := r.Wait(); err != nil {
//	    return err
//	}
func (l *Link) Reconnect(ctx context.Context) (*Reconnect, error) {
	l.mu.Lock()
	handle := l.handle
	if handle.IsZero() {
		l.mu.Unlock()
		return nil, ErrNoDevice
	}
	l.cancelPendingLocked()
	periph, changed := l.teardownLocked()
	l.resetFieldsLocked()

	rctx, cancel := context.WithCancel(ctx)
	r := &Reconnect{cancel: cancel, done: make(chan struct{})}
	l.pending = r
	l.mu.Unlock()

	if periph != nil {
		_ = periph.Disconnect()
	}
	if changed {
		l.logInfo("disconnected for reconnect", "device", handle.String())
		l.stateChanged(StateDisconnected)
	}

	go l.runReconnect(rctx, r, handle)
	return r, nil
}

func (l *Link) runReconnect(ctx context.Context, r *Reconnect, handle DeviceHandle) {
	defer close(r.done)
	defer r.cancel()

	timer := time.NewTimer(l.config.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.err = ctx.Err()
		return
	case <-timer.C:
	}

	l.mu.Lock()
	if l.pending != r || l.state.connected() || ctx.Err() != nil {
		l.mu.Unlock()
		r.err = context.Canceled
		return
	}
	l.pending = nil
	gen := l.beginLocked(handle)
	l.mu.Unlock()

	l.logDebug("reconnecting", "device", handle.String())
	l.stateChanged(StateConnecting)
	r.err = l.connect(ctx, gen, handle)
}

// cancelPendingLocked cancels a scheduled reconnect, if any.
func (l *Link) cancelPendingLocked() {
	if l.pending != nil {
		l.pending.cancel()
		l.pending = nil
	}
}
