package sink

import (
	"errors"
	"testing"

	"github.com/fenwicklabs/peripherycapture/capture"
	"github.com/fenwicklabs/peripherycapture/capturemodel"
)

// neverReadyReceiver always times out, exercising the bad_frame_budget
// exhaustion path without ever reaching the gocv encode path.
type neverReadyReceiver struct{}

func (neverReadyReceiver) Read(maxAttempts int) (capture.Tuple, error) {
	return nil, nil
}

// erroringReceiver always fails, exercising the propagate-and-abort path.
type erroringReceiver struct{ err error }

func (r erroringReceiver) Read(maxAttempts int) (capture.Tuple, error) {
	return nil, r.err
}

func testMediaSpec() capturemodel.MediaSpec {
	return capturemodel.MediaSpec{
		OutputDir: "/tmp/periphery-test", FileNameTemplate: "seg", Container: "mp4", Codec: "mp4v",
		FPS: 1, DurationSeconds: 1,
	}
}

func TestVideoSinkAbortsOnBadFrameBudgetExhaustion(t *testing.T) {
	s, err := NewVideoSink(neverReadyReceiver{}, testMediaSpec(), []string{"camA"}, nil)
	if err != nil {
		t.Fatalf("NewVideoSink: %v", err)
	}
	err = s.SaveSegment("seg-0", 2)
	if !errors.Is(err, capturemodel.ErrSegmentFailed) {
		t.Fatalf("expected ErrSegmentFailed, got %v", err)
	}
}

func TestVideoSinkPropagatesReceiverError(t *testing.T) {
	wantErr := errors.New("transport down")
	s, err := NewVideoSink(erroringReceiver{err: wantErr}, testMediaSpec(), []string{"camA"}, nil)
	if err != nil {
		t.Fatalf("NewVideoSink: %v", err)
	}
	err = s.SaveSegment("seg-0", 3)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestNewVideoSinkRejectsInvalidMediaSpec(t *testing.T) {
	bad := testMediaSpec()
	bad.FPS = 0
	_, err := NewVideoSink(neverReadyReceiver{}, bad, []string{"camA"}, nil)
	if err == nil {
		t.Fatal("expected validation error for fps=0")
	}
}
