package link

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-epdble/protocol"
)

// FrameWriter writes one command frame to the device. ack selects an
// acknowledged write; otherwise the write must return without waiting while
// staying ordered with respect to every other write.
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame []byte, ack bool) error
}

// Params are the link values a transfer reads once, at its start.
type Params struct {
	MTU             int
	InterleaveCount int
}

// ChunkSize returns the number of data bytes per chunk.
func (p Params) ChunkSize() int {
	return p.MTU - protocol.ImageFrameOverhead
}

// Chunk is one planned WRITE_IMG command.
type Chunk struct {
	// Plane is the index of the plane this chunk belongs to
	Plane int

	// Index is the chunk's position within its plane
	Index int

	// Tag is the tag byte sent before Data
	Tag byte

	// Data aliases the plane bytes
	Data []byte

	// Acked is true if the chunk is sent as an acknowledged write
	Acked bool
}

// Plan splits every plane of job into tagged chunks and assigns the write
// kind of each according to the interleave counter. It performs no I/O.
func Plan(job *Job, p Params) ([]Chunk, error) {
	if job == nil || len(job.Planes) == 0 {
		return nil, ErrEmptyImage
	}

	size := p.ChunkSize()
	if size < 1 {
		return nil, fmt.Errorf("%w: mtu %d", ErrMTUTooSmall, p.MTU)
	}

	interleave := p.InterleaveCount
	if interleave < 0 {
		interleave = 0
	}

	var chunks []Chunk
	for pi, plane := range job.Planes {
		counter := interleave
		for off, ci := 0, 0; off < len(plane.Data); off, ci = off+size, ci+1 {
			end := off + size
			if end > len(plane.Data) {
				end = len(plane.Data)
			}

			acked := false
			if counter > 0 {
				counter--
			} else {
				acked = true
				counter = interleave
			}

			chunks = append(chunks, Chunk{
				Plane: pi,
				Index: ci,
				Tag:   protocol.ImageTag(plane.Tag == PlaneBW, off == 0),
				Data:  plane.Data[off:end],
				Acked: acked,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyImage
	}

	return chunks, nil
}

// Engine drives the chunked upload of a Job over a FrameWriter.
type Engine struct {
	logs
	writer FrameWriter
	config Config
}

// NewEngine creates an Engine writing through w. Only the progress callback
// and logger options apply.
//
// Example:
//
//	eng := link.NewEngine(writer, link.WithProgressCallback(progressFunc))
//	err := eng.Send(ctx, job, link.Params{MTU: 247, InterleaveCount: 50})
func NewEngine(w FrameWriter, opts ...Option) *Engine {
	if w == nil {
		panic("writer cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return newEngine(w, cfg)
}

func newEngine(w FrameWriter, cfg Config) *Engine {
	return &Engine{logs: logs{cfg.Logger}, writer: w, config: cfg}
}

// Send uploads every plane of job in order and then issues REFRESH.
//
// Any write failure aborts the job immediately with a *TransferError; chunks
// already written are not retried and REFRESH is not sent.
func (e *Engine) Send(ctx context.Context, job *Job, p Params) error {
	chunks, err := Plan(job, p)
	if err != nil {
		return err
	}

	startTime := time.Now()
	total := job.Size()
	written := 0

	e.logInfo("transfer started",
		"mode", string(job.Mode),
		"planes", len(job.Planes),
		"bytes", total,
		"chunks", len(chunks),
		"mtu", p.MTU,
		"interleave", p.InterleaveCount,
	)

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return &TransferError{Plane: c.Plane, Chunk: c.Index, Err: err}
		}

		frame, err := protocol.BuildImageChunkCmd(c.Tag, c.Data)
		if err != nil {
			return &TransferError{Plane: c.Plane, Chunk: c.Index, Err: err}
		}

		if err := e.writer.WriteFrame(ctx, frame, c.Acked); err != nil {
			e.logError("chunk write failed",
				"plane", c.Plane,
				"chunk", c.Index,
				"acked", c.Acked,
				"error", err,
			)
			return &TransferError{Plane: c.Plane, Chunk: c.Index, Err: err}
		}

		written += len(c.Data)
		e.reportProgress(Progress{
			Phase:        PhaseUploading,
			Plane:        c.Plane,
			PlaneName:    job.Planes[c.Plane].Name,
			Chunk:        i + 1,
			TotalChunks:  len(chunks),
			Percentage:   float64(written) / float64(total) * 100,
			BytesWritten: written,
			TotalBytes:   total,
			ElapsedTime:  time.Since(startTime),
		})
	}

	e.reportProgress(Progress{
		Phase:        PhaseRefreshing,
		Plane:        len(job.Planes) - 1,
		Chunk:        len(chunks),
		TotalChunks:  len(chunks),
		Percentage:   100,
		BytesWritten: written,
		TotalBytes:   total,
		ElapsedTime:  time.Since(startTime),
	})

	if err := e.writer.WriteFrame(ctx, protocol.EncodeCommand(protocol.CmdRefresh, nil), true); err != nil {
		e.logError("refresh failed", "error", err)
		return &TransferError{Plane: len(job.Planes) - 1, Refresh: true, Err: err}
	}

	e.reportProgress(Progress{
		Phase:        PhaseComplete,
		Plane:        len(job.Planes) - 1,
		Chunk:        len(chunks),
		TotalChunks:  len(chunks),
		Percentage:   100,
		BytesWritten: written,
		TotalBytes:   total,
		ElapsedTime:  time.Since(startTime),
	})

	e.logInfo("transfer complete",
		"bytes", written,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// reportProgress calls the progress callback if configured.
func (e *Engine) reportProgress(progress Progress) {
	if e.config.ProgressCallback != nil {
		e.config.ProgressCallback(progress)
	}
}
