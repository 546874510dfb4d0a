package monitor

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/moffa90/go-epdble/link"
	"github.com/moffa90/go-epdble/protocol"
)

// EventType classifies an event for WebSocket clients.
type EventType string

const (
	EventTelemetry EventType = "telemetry"
	EventState     EventType = "state"
	EventProgress  EventType = "progress"
	EventWarning   EventType = "warning"
)

// Event is the JSON envelope sent to clients.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// TelemetryData is the payload of a telemetry event.
type TelemetryData struct {
	Kind  protocol.EventKind      `json:"kind"`
	Value protocol.TelemetryEvent `json:"value"`
}

// StateData is the payload of a state event.
type StateData struct {
	State string `json:"state"`
}

// ProgressData is the payload of a progress event.
type ProgressData struct {
	Phase        string  `json:"phase"`
	Plane        string  `json:"plane"`
	Chunk        int     `json:"chunk"`
	TotalChunks  int     `json:"total_chunks"`
	Percentage   float64 `json:"percentage"`
	BytesWritten int     `json:"bytes_written"`
	TotalBytes   int     `json:"total_bytes"`
	ElapsedMS    int64   `json:"elapsed_ms"`
}

// WarningData is the payload of a warning event.
type WarningData struct {
	Message string `json:"message"`
}

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 64

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// Hub fans link events out to subscribers. A subscriber whose queue is full
// misses events rather than stalling the link.
type Hub struct {
	log *zap.Logger
	now func() time.Time

	bufferSize int

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty Hub. A nil logger disables logging.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:        log,
		now:        time.Now,
		bufferSize: DefaultBufferSize,
		subs:       make(map[*subscriber]struct{}),
	}
}

// Subscribe registers a subscriber. The returned function unregisters it
// and closes the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, h.bufferSize)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		s.once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsub
}

// Publish sends e to every subscriber.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			h.log.Debug("monitor: subscriber queue full, event dropped", zap.String("type", string(e.Type)))
		}
	}
}

// PublishTelemetry publishes a decoded notification.
func (h *Hub) PublishTelemetry(ev protocol.TelemetryEvent) {
	if ev == nil {
		return
	}
	h.Publish(Event{Type: EventTelemetry, Data: TelemetryData{Kind: ev.Kind(), Value: ev}})
}

// PublishState publishes a link state transition.
func (h *Hub) PublishState(s link.State) {
	h.Publish(Event{Type: EventState, Data: StateData{State: s.String()}})
}

// PublishProgress publishes transfer progress.
func (h *Hub) PublishProgress(p link.Progress) {
	h.Publish(Event{Type: EventProgress, Data: ProgressData{
		Phase:        p.Phase,
		Plane:        p.PlaneName,
		Chunk:        p.Chunk,
		TotalChunks:  p.TotalChunks,
		Percentage:   p.Percentage,
		BytesWritten: p.BytesWritten,
		TotalBytes:   p.TotalBytes,
		ElapsedMS:    p.ElapsedTime.Milliseconds(),
	}})
}

// PublishWarning publishes a non-fatal link warning.
func (h *Hub) PublishWarning(err error) {
	if err == nil {
		return
	}
	h.Publish(Event{Type: EventWarning, Data: WarningData{Message: err.Error()}})
}

// LinkOptions returns link options that publish state, progress and warnings.
func (h *Hub) LinkOptions() []link.Option {
	return []link.Option{
		link.WithStateCallback(h.PublishState),
		link.WithProgressCallback(h.PublishProgress),
		link.WithWarningCallback(h.PublishWarning),
	}
}

// Attach registers the hub as the link's telemetry handler. Events are
// passed on to next, if set, after publishing.
func (h *Hub) Attach(l *link.Link, next link.TelemetryHandler) {
	l.OnTelemetry(func(ev protocol.TelemetryEvent) {
		h.PublishTelemetry(ev)
		if next != nil {
			next(ev)
		}
	})
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
