package sink

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/catalog"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// imageJob is one device's frame to encode within a SaveOne call.
type imageJob struct {
	deviceName string
	imageName  string
	env        capturemodel.FrameEnvelope
}

// ImageSink consumes aggregated tuples and writes one image per device
// per call to SaveOne, dispatching encode jobs to a pool of W workers,
// per spec.md §4.8.
type ImageSink struct {
	receiver  TupleReader
	outputDir string
	ext       string // "jpg" or "png"
	cat       *catalog.Writer
	log       *logx.Logger

	maxAttempts int
	jobTimeout  time.Duration

	jobs chan imageJob
	wg   sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewImageSink builds an ImageSink writing under outputDir with W
// concurrent encode workers. ext selects the image codec ("jpg"/"png").
func NewImageSink(receiver TupleReader, outputDir, ext string, w int, cat *catalog.Writer) *ImageSink {
	if w < 1 {
		w = 1
	}
	s := &ImageSink{
		receiver:    receiver,
		outputDir:   outputDir,
		ext:         ext,
		cat:         cat,
		log:         logx.New("sink:image"),
		maxAttempts: 10,
		jobTimeout:  2 * time.Second,
		jobs:        make(chan imageJob, w*2),
	}
	s.start(w)
	return s
}

func (s *ImageSink) start(w int) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for i := 0; i < w; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *ImageSink) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		if err := s.encodeOne(job); err != nil {
			s.log.Error("encode failed", err, map[string]any{"device": job.deviceName})
		}
	}
}

func (s *ImageSink) encodeOne(job imageJob) error {
	mat, err := gocv.NewMatFromBytes(job.env.Payload.Shape[0], job.env.Payload.Shape[1], gocv.MatTypeCV8UC3, job.env.Payload.Bytes)
	if err != nil {
		return fmt.Errorf("sink: decode frame for %s: %w", job.deviceName, err)
	}
	defer mat.Close()

	path := filepath.Join(s.outputDir, job.deviceName, fmt.Sprintf("%s.%s", job.imageName, s.ext))
	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("sink: write image %s", path)
	}
	if s.cat != nil {
		if err := s.cat.RecordSegment(catalog.NewRecord{
			Name: filepath.Base(path), Devices: []string{job.deviceName}, FrameCount: 1, CreatedAt: time.Now(),
		}); err != nil {
			s.log.Warn("catalog record failed", map[string]any{"err": err})
		}
	}
	return nil
}

// SaveOne implements spec.md §4.8's contract: read one aggregated tuple
// and dispatch one encode job per device. Returns true if the tuple was
// obtained, false if the receiver timed out without completing it.
func (s *ImageSink) SaveOne(imageName string) (bool, error) {
	tuple, err := s.receiver.Read(s.maxAttempts)
	if err != nil {
		return false, err
	}
	if tuple == nil {
		return false, nil
	}

	for name, env := range tuple {
		job := imageJob{deviceName: name, imageName: imageName, env: env}
		select {
		case s.jobs <- job:
		case <-time.After(s.jobTimeout):
			s.log.Warn("dispatch timed out, dropping job", map[string]any{"device": name, "image": imageName})
		}
	}
	return true, nil
}

// Shutdown closes the job queue and waits up to five times the per-job
// dispatch timeout for the workers to finish every queued job. Workers
// still busy after that wait are not stopped; Shutdown returns without
// them.
func (s *ImageSink) Shutdown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.jobTimeout * 5):
		s.log.Warn("shutdown timed out waiting for workers to drain", nil)
	}
}
