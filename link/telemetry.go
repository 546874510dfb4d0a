package link

import (
	"github.com/moffa90/go-epdble/protocol"
)

// OnTelemetry registers the single consumer of decoded notifications,
// replacing any previous one. A nil handler drops events after they are
// folded into the link.
//
// Events arrive in the order the device sent them. The handler runs on the
// transport's notification goroutine and must not block for long; it may call
// back into the Link.
func (l *Link) OnTelemetry(handler TelemetryHandler) {
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()
}

// notificationHandler returns the notification callback for the connection
// identified by gen. Once that connection is gone the callback is inert.
func (l *Link) notificationHandler(gen uint64) func([]byte) {
	return func(data []byte) {
		l.notifyMu.Lock()
		defer l.notifyMu.Unlock()

		l.mu.Lock()
		if l.gen != gen {
			l.mu.Unlock()
			return
		}
		index := l.notifyIndex
		l.notifyIndex++
		ev := protocol.DecodeNotification(data, index)
		l.foldLocked(ev)
		handler := l.handler
		l.mu.Unlock()

		if u, ok := ev.(protocol.Unrecognized); ok {
			l.logDebug("unrecognized notification", "index", index, "text", u.Text)
		} else {
			l.logDebug("notification", "index", index, "kind", string(ev.Kind()))
		}

		if handler != nil {
			handler(ev)
		}
	}
}

// foldLocked applies the events that update link fields.
func (l *Link) foldLocked(ev protocol.TelemetryEvent) {
	switch e := ev.(type) {
	case protocol.MTUUpdate:
		if e.MTU > 0 {
			l.mtu = e.MTU
		}
	case protocol.DeviceInfo:
		l.device = &e
	case protocol.FirmwareMinor:
		v := e.Version
		l.fwMinor = &v
	case protocol.ConfigBlob:
		l.configBlob = &e
	}
}
