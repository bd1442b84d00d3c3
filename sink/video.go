// Package sink implements the video and image sinks from spec.md
// §4.7–§4.8: consumers of the aggregating receiver's tuples that persist
// frames to disk, grounded on cvpipe's gocv.Mat conversion pattern for
// turning a raw byte buffer into an encodable frame.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/fenwicklabs/peripherycapture/capture"
	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/catalog"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// TupleReader is the subset of capture.Receiver the sinks depend on.
type TupleReader interface {
	Read(maxAttempts int) (capture.Tuple, error)
}

// videoJob is one aggregated tuple handed to the segment writer.
// SaveSegment's queue of them holds exactly one segment's worth
// (frames_needed), per spec.md §5's bounded video-sink queue requirement.
type videoJob struct {
	tuple capture.Tuple
}

// VideoSink consumes aggregated tuples and produces one fixed-length
// video segment per device per call to SaveSegment, per spec.md §4.7.
type VideoSink struct {
	receiver TupleReader
	spec     capturemodel.MediaSpec
	devices  []string
	cat      *catalog.Writer
	log      *logx.Logger

	maxAttempts int
}

// NewVideoSink builds a VideoSink over receiver, writing segments that
// satisfy spec for the named devices. cat may be nil to disable catalog
// recording.
func NewVideoSink(receiver TupleReader, spec capturemodel.MediaSpec, devices []string, cat *catalog.Writer) (*VideoSink, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("sink: output dir %s: %w", spec.OutputDir, err)
	}
	return &VideoSink{
		receiver:    receiver,
		spec:        spec,
		devices:     devices,
		cat:         cat,
		log:         logx.New("sink:video"),
		maxAttempts: 10,
	}, nil
}

// SaveSegment implements spec.md §4.7's contract. It collects
// frames_needed tuples, enqueues them onto a bounded per-segment queue,
// and drains that queue with a background writer that owns one encoder
// per device. If the receiver fails to produce a tuple bad_frame_budget
// consecutive times, the segment is aborted and
// capturemodel.ErrSegmentFailed is returned.
func (v *VideoSink) SaveSegment(segmentName string, badFrameBudget int) error {
	framesNeeded := v.spec.FramesNeeded()
	queue := make(chan videoJob, framesNeeded)

	writerErrCh := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writerErrCh <- v.writeSegment(segmentName, queue, framesNeeded)
	}()

	var misses int
	enqueued := 0
	for enqueued < framesNeeded {
		tuple, err := v.receiver.Read(v.maxAttempts)
		if err != nil {
			close(queue)
			wg.Wait()
			return fmt.Errorf("sink: video segment %q aborted: %w", segmentName, err)
		}
		if tuple == nil {
			misses++
			if misses >= badFrameBudget {
				close(queue)
				wg.Wait()
				return fmt.Errorf("%w: segment %q exhausted bad_frame_budget", capturemodel.ErrSegmentFailed, segmentName)
			}
			continue
		}
		misses = 0
		select {
		case queue <- videoJob{tuple: tuple}:
			enqueued++
		case <-time.After(2 * time.Second):
			close(queue)
			wg.Wait()
			return fmt.Errorf("%w: segment %q enqueue timed out", capturemodel.ErrSegmentFailed, segmentName)
		}
	}
	close(queue)
	wg.Wait()

	if err := <-writerErrCh; err != nil {
		return err
	}
	if v.cat != nil {
		if err := v.cat.RecordSegment(catalog.NewRecord{
			Name:       segmentName,
			Devices:    v.devices,
			FrameCount: framesNeeded,
			CreatedAt:  time.Now(),
		}); err != nil {
			v.log.Warn("catalog record failed", map[string]any{"err": err})
		}
	}
	return nil
}

// writeSegment drains queue in order, opening one encoder per device on
// the first dequeued tuple, writing frameCount frames in arrival order,
// and always releasing every encoder on exit.
func (v *VideoSink) writeSegment(segmentName string, queue chan videoJob, frameCount int) (err error) {
	writers := make(map[string]*gocv.VideoWriter)
	defer func() {
		for _, w := range writers {
			w.Close()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: writer panic: %v", capturemodel.ErrSegmentFailed, r)
		}
	}()

	written := 0
	for job := range queue {
		if len(writers) == 0 {
			for name, env := range job.tuple {
				path := filepath.Join(v.spec.OutputDir, name, fmt.Sprintf("%s.%s", segmentName, v.spec.Container))
				w, werr := gocv.VideoWriterFile(path, v.spec.Codec, float64(v.spec.FPS),
					env.Payload.Shape[1], env.Payload.Shape[0], true)
				if werr != nil {
					return fmt.Errorf("sink: open encoder for %s: %w", name, werr)
				}
				writers[name] = w
			}
		}

		for name, env := range job.tuple {
			w, ok := writers[name]
			if !ok {
				continue
			}
			mat, merr := gocv.NewMatFromBytes(env.Payload.Shape[0], env.Payload.Shape[1], gocv.MatTypeCV8UC3, env.Payload.Bytes)
			if merr != nil {
				return fmt.Errorf("sink: decode frame for %s: %w", name, merr)
			}
			werr := w.Write(mat)
			mat.Close()
			if werr != nil {
				return fmt.Errorf("sink: write frame for %s: %w", name, werr)
			}
		}
		written++
		if written >= frameCount {
			break
		}
	}

	if written != frameCount {
		return fmt.Errorf("%w: wrote %d of %d frames", capturemodel.ErrSegmentFailed, written, frameCount)
	}
	return nil
}
