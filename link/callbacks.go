package link

import (
	"time"

	"github.com/moffa90/go-epdble/protocol"
)

// Transfer phases reported in Progress.Phase.
const (
	// PhaseUploading is reported after each image chunk is written
	PhaseUploading = "uploading"

	// PhaseRefreshing is reported just before REFRESH is sent
	PhaseRefreshing = "refreshing"

	// PhaseComplete is reported once REFRESH has been acknowledged
	PhaseComplete = "complete"
)

// Progress contains information about an image transfer.
// Passed to ProgressCallback during SendImage.
type Progress struct {
	// Phase is one of PhaseUploading, PhaseRefreshing or PhaseComplete
	Phase string

	// Plane is the index of the plane being sent (0-based)
	Plane int

	// PlaneName is the plane's name, e.g. "bw" or "red"
	PlaneName string

	// Chunk is the number of chunks written so far across the job
	Chunk int

	// TotalChunks is the number of chunks in the job
	TotalChunks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesWritten is the number of image bytes written so far
	BytesWritten int

	// TotalBytes is the number of image bytes in the job
	TotalBytes int

	// ElapsedTime is the time elapsed since the transfer started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every chunk to report progress.
// Implementations should return quickly; the next chunk is not sent until it returns.
//
// Example:
//
//	l := link.New(adapter,
//	    link.WithProgressCallback(func(p link.Progress) {
//	        fmt.Printf("[%s] %.1f%% - %d/%d\n",
//	            p.PlaneName, p.Percentage, p.Chunk, p.TotalChunks)
//	    }),
//	)
type ProgressCallback func(Progress)

// StateCallback is called after every connection state transition.
type StateCallback func(State)

// WarningCallback receives non-fatal conditions such as *VersionTooOldError.
type WarningCallback func(error)

// TelemetryHandler consumes decoded device notifications in arrival order.
type TelemetryHandler func(protocol.TelemetryEvent)

// Logger is an optional logging interface that can be provided to the link.
// This allows integration with any logging framework.
//
// Example with zap:
//
//	type zapLogger struct{ s *zap.SugaredLogger }
//	func (l zapLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
//	func (l zapLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
//	func (l zapLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
//	func (l zapLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
//
//	l := link.New(adapter, link.WithLogger(zapLogger{sugar}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

// logs wraps an optional Logger.
type logs struct {
	l Logger
}

func (g logs) logDebug(msg string, kv ...interface{}) {
	if g.l != nil {
		g.l.Debug(msg, kv...)
	}
}

func (g logs) logInfo(msg string, kv ...interface{}) {
	if g.l != nil {
		g.l.Info(msg, kv...)
	}
}

func (g logs) logWarn(msg string, kv ...interface{}) {
	if g.l != nil {
		g.l.Warn(msg, kv...)
	}
}

func (g logs) logError(msg string, kv ...interface{}) {
	if g.l != nil {
		g.l.Error(msg, kv...)
	}
}
