package link

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/moffa90/go-epdble/protocol"
)

// MockWriter records frames written by the engine.
type MockWriter struct {
	writes []mockWrite
	failOn func(n int, frame []byte) error
}

func (w *MockWriter) WriteFrame(ctx context.Context, frame []byte, ack bool) error {
	f := make([]byte, len(frame))
	copy(f, frame)
	w.writes = append(w.writes, mockWrite{frame: f, ack: ack})
	if w.failOn != nil {
		return w.failOn(len(w.writes)-1, f)
	}
	return nil
}

func mustJob(t *testing.T, mode protocol.ColorMode, n int) *Job {
	t.Helper()
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	job, err := NewJob(mode, buf)
	if err != nil {
		t.Fatalf("NewJob() error: %v", err)
	}
	return job
}

func TestPlanScenario(t *testing.T) {
	job := mustJob(t, protocol.ColorModeBlackWhite, 50)

	chunks, err := Plan(job, Params{MTU: 20, InterleaveCount: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSizes := []int{18, 18, 14}
	wantTags := []byte{0x0F, 0xFF, 0xFF}
	wantAcked := []bool{false, false, true}

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Data) != wantSizes[i] {
			t.Errorf("chunk %d size = %d, want %d", i, len(c.Data), wantSizes[i])
		}
		if c.Tag != wantTags[i] {
			t.Errorf("chunk %d tag = 0x%02X, want 0x%02X", i, c.Tag, wantTags[i])
		}
		if c.Acked != wantAcked[i] {
			t.Errorf("chunk %d acked = %v, want %v", i, c.Acked, wantAcked[i])
		}
	}
}

func TestPlanChunkCountAndReassembly(t *testing.T) {
	for mtu := protocol.MinImageMTU; mtu <= 40; mtu++ {
		for n := 1; n <= 120; n++ {
			job := mustJob(t, protocol.ColorModeFourColor, n)
			chunks, err := Plan(job, Params{MTU: mtu, InterleaveCount: 3})
			if err != nil {
				t.Fatalf("mtu=%d len=%d: %v", mtu, n, err)
			}

			size := mtu - 2
			want := (n + size - 1) / size
			if len(chunks) != want {
				t.Fatalf("mtu=%d len=%d: chunks = %d, want %d", mtu, n, len(chunks), want)
			}

			var joined []byte
			for _, c := range chunks {
				joined = append(joined, c.Data...)
			}
			if !bytes.Equal(joined, job.Planes[0].Data) {
				t.Fatalf("mtu=%d len=%d: reassembled data mismatch", mtu, n)
			}
		}
	}
}

func TestPlanTags(t *testing.T) {
	job := mustJob(t, protocol.ColorModeThreeColor, 20)

	chunks, err := Plan(job, Params{MTU: 5, InterleaveCount: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, c := range chunks {
		var want byte
		switch {
		case c.Plane == 0 && c.Index == 0:
			want = 0x0F
		case c.Plane == 0:
			want = 0xFF
		case c.Index == 0:
			want = 0x00
		default:
			want = 0xF0
		}
		if c.Tag != want {
			t.Errorf("plane %d chunk %d tag = 0x%02X, want 0x%02X", c.Plane, c.Index, c.Tag, want)
		}
	}
}

func TestPlanInterleaveWindow(t *testing.T) {
	for n := 0; n <= 6; n++ {
		job := mustJob(t, protocol.ColorModeBlackWhite, 100)
		chunks, err := Plan(job, Params{MTU: 3, InterleaveCount: n})
		if err != nil {
			t.Fatalf("interleave=%d: %v", n, err)
		}

		for i, c := range chunks {
			want := (i+1)%(n+1) == 0
			if c.Acked != want {
				t.Fatalf("interleave=%d chunk %d acked = %v, want %v", n, i, c.Acked, want)
			}
		}

		// Every run of n+1 consecutive sends holds at most one acknowledged write.
		for start := 0; start+n+1 <= len(chunks); start++ {
			acked := 0
			for _, c := range chunks[start : start+n+1] {
				if c.Acked {
					acked++
				}
			}
			if acked != 1 {
				t.Fatalf("interleave=%d window at %d has %d acked writes", n, start, acked)
			}
		}
	}
}

func TestPlanCounterResetsPerPlane(t *testing.T) {
	// Two planes of 5 chunks each with interleave 2.
	job := mustJob(t, protocol.ColorModeThreeColor, 10)

	chunks, err := Plan(job, Params{MTU: 3, InterleaveCount: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []bool{false, false, true, false, false, false, false, true, false, false}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %d, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if c.Acked != want[i] {
			t.Errorf("chunk %d (plane %d) acked = %v, want %v", i, c.Plane, c.Acked, want[i])
		}
	}
}

func TestPlanErrors(t *testing.T) {
	job := mustJob(t, protocol.ColorModeBlackWhite, 10)

	if _, err := Plan(job, Params{MTU: 2}); !errors.Is(err, ErrMTUTooSmall) {
		t.Errorf("mtu 2: error = %v, want ErrMTUTooSmall", err)
	}
	if _, err := Plan(nil, Params{MTU: 20}); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("nil job: error = %v, want ErrEmptyImage", err)
	}
	if _, err := Plan(&Job{Planes: []Plane{{Tag: PlaneBW}}}, Params{MTU: 20}); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("empty plane: error = %v, want ErrEmptyImage", err)
	}
}

func TestEngineSend(t *testing.T) {
	w := &MockWriter{}
	eng := NewEngine(w)

	job := mustJob(t, protocol.ColorModeBlackWhite, 50)
	if err := eng.Send(context.Background(), job, Params{MTU: 20, InterleaveCount: 2}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if len(w.writes) != 4 {
		t.Fatalf("writes = %d, want 4", len(w.writes))
	}

	first := w.writes[0]
	if first.frame[0] != protocol.CmdWriteImage || first.frame[1] != 0x0F {
		t.Errorf("first frame header = % X", first.frame[:2])
	}
	if !bytes.Equal(first.frame[2:], job.Planes[0].Data[:18]) {
		t.Errorf("first frame data mismatch")
	}
	if len(first.frame) != 20 {
		t.Errorf("first frame length = %d, want mtu 20", len(first.frame))
	}

	last := w.writes[3]
	if !bytes.Equal(last.frame, []byte{protocol.CmdRefresh}) || !last.ack {
		t.Errorf("last write = % X ack=%v, want acknowledged REFRESH", last.frame, last.ack)
	}
}

func TestEngineWriteFailureAbortsJob(t *testing.T) {
	// Two planes of 3 chunks each; fail the second chunk of the second plane.
	failErr := errors.New("gatt write rejected")
	w := &MockWriter{
		failOn: func(n int, frame []byte) error {
			if n == 4 {
				return failErr
			}
			return nil
		},
	}

	eng := NewEngine(w)
	job := mustJob(t, protocol.ColorModeThreeColor, 12)
	err := eng.Send(context.Background(), job, Params{MTU: 4, InterleaveCount: 1})

	var te *TransferError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *TransferError", err)
	}
	if te.Plane != 1 || te.Chunk != 1 || te.Refresh {
		t.Errorf("TransferError = %+v, want plane 1 chunk 1", te)
	}
	if !errors.Is(err, failErr) {
		t.Errorf("error does not wrap the write error")
	}

	if len(w.writes) != 5 {
		t.Errorf("writes = %d, want 5 (nothing after the failure)", len(w.writes))
	}
	for _, wr := range w.writes {
		if wr.frame[0] == protocol.CmdRefresh {
			t.Error("REFRESH sent after a failed chunk")
		}
	}
}

func TestEngineRefreshFailure(t *testing.T) {
	w := &MockWriter{
		failOn: func(n int, frame []byte) error {
			if frame[0] == protocol.CmdRefresh {
				return errors.New("timeout")
			}
			return nil
		},
	}

	err := NewEngine(w).Send(context.Background(), mustJob(t, protocol.ColorModeBlackWhite, 4), Params{MTU: 20})

	var te *TransferError
	if !errors.As(err, &te) || !te.Refresh {
		t.Fatalf("error = %v, want refresh TransferError", err)
	}
}

func TestEngineCancelledContext(t *testing.T) {
	w := &MockWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewEngine(w).Send(ctx, mustJob(t, protocol.ColorModeBlackWhite, 40), Params{MTU: 20})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if len(w.writes) != 0 {
		t.Errorf("writes = %d, want 0", len(w.writes))
	}
}

func TestEngineProgress(t *testing.T) {
	var updates []Progress
	eng := NewEngine(&MockWriter{}, WithProgressCallback(func(p Progress) {
		updates = append(updates, p)
	}))

	job := mustJob(t, protocol.ColorModeThreeColor, 40)
	if err := eng.Send(context.Background(), job, Params{MTU: 12, InterleaveCount: 50}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	// 2 planes x 2 chunks, then refreshing and complete.
	if len(updates) != 6 {
		t.Fatalf("updates = %d, want 6", len(updates))
	}
	if updates[0].PlaneName != "bw" || updates[2].PlaneName != "red" {
		t.Errorf("plane names = %q, %q", updates[0].PlaneName, updates[2].PlaneName)
	}
	if updates[3].BytesWritten != 40 || updates[3].Percentage != 100 {
		t.Errorf("last chunk progress = %+v", updates[3])
	}
	if updates[4].Phase != PhaseRefreshing || updates[5].Phase != PhaseComplete {
		t.Errorf("final phases = %q, %q", updates[4].Phase, updates[5].Phase)
	}
	for i := 1; i < 4; i++ {
		if updates[i].BytesWritten <= updates[i-1].BytesWritten {
			t.Errorf("progress not increasing at %d", i)
		}
	}
}

func TestNewEnginePanicsOnNilWriter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewEngine(nil)
}
