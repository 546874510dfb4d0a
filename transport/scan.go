package transport

import (
	"context"
	"strings"
	"sync"

	"github.com/moffa90/go-epdble/link"
)

// Advertisement is one device seen during a scan.
type Advertisement struct {
	Handle link.DeviceHandle
	RSSI   int16
}

// Scanner is implemented by bindings that can discover nearby devices.
// Scan reports each advertisement to fn until ctx is done, then returns nil.
type Scanner interface {
	Scan(ctx context.Context, fn func(Advertisement)) error
}

// NameFilter returns fn wrapped so that it only sees advertisements whose
// name starts with prefix. An empty prefix passes everything.
func NameFilter(prefix string, fn func(Advertisement)) func(Advertisement) {
	if prefix == "" {
		return fn
	}
	return func(adv Advertisement) {
		if strings.HasPrefix(adv.Handle.Name, prefix) {
			fn(adv)
		}
	}
}

// Find scans until a device matching address or name appears, or ctx is done.
func Find(ctx context.Context, s Scanner, target string) (link.DeviceHandle, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		found link.DeviceHandle
	)
	err := s.Scan(ctx, func(adv Advertisement) {
		mu.Lock()
		defer mu.Unlock()
		if !found.IsZero() {
			return
		}
		if strings.EqualFold(adv.Handle.Address, target) || adv.Handle.Name == target {
			found = adv.Handle
			cancel()
		}
	})
	if err != nil {
		return link.DeviceHandle{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	if found.IsZero() {
		return link.DeviceHandle{}, ErrNotFound
	}
	return found, nil
}
