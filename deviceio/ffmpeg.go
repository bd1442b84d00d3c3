package deviceio

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

// ffmpegProcess wraps one ffmpeg subprocess that decodes a single device
// to raw frames on stdout, the same process-ownership shape as
// client.StreamProcess: the reader owns Cmd end to end and Stop always
// kills it.
type ffmpegProcess struct {
	path      string
	args      []string
	log       *logx.Logger
	source    string // descriptive name for log lines, e.g. device name
	frameSize int

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout *bufio.Reader
	st     state
	frames chan frameResult
	quit   chan struct{}
}

// frameResult is one decoded frame (or the error that ended the stream),
// handed from the read loop to whichever Read call is waiting.
type frameResult struct {
	buf []byte
	err error
}

func newFFmpegProcess(source string, args []string, frameSize int, log *logx.Logger) *ffmpegProcess {
	return &ffmpegProcess{path: "ffmpeg", args: args, log: log, source: source, frameSize: frameSize}
}

func (p *ffmpegProcess) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == stateStarted {
		return nil
	}

	cmd := exec.Command(p.path, p.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", capturemodel.ErrDeviceUnavailable, err)
	}
	cmd.Stderr = nil // ffmpeg's own diagnostics are noisy; drop unless debugging

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg for %s: %v", capturemodel.ErrDeviceUnavailable, p.source, err)
	}

	p.cmd = cmd
	p.stdout = bufio.NewReaderSize(stdout, 1<<20)
	p.st = stateStarted
	p.frames = make(chan frameResult, 1)
	p.quit = make(chan struct{})
	go p.readLoop(p.stdout, p.frames, p.quit)
	p.log.Info("ffmpeg reader started", map[string]any{"source": p.source})
	return nil
}

// readLoop is the single long-lived goroutine that owns r end to end: it
// reads exactly frameSize bytes at a time and hands each result to
// frames, serializing every read so a Read call that times out never
// leaves a second goroutine racing the next call's read on the same
// *bufio.Reader. It exits when quit is closed or the stream ends.
func (p *ffmpegProcess) readLoop(r *bufio.Reader, frames chan<- frameResult, quit <-chan struct{}) {
	for {
		buf := make([]byte, p.frameSize)
		_, err := io.ReadFull(r, buf)
		res := frameResult{err: err}
		if err == nil {
			res.buf = buf
		}
		select {
		case frames <- res:
		case <-quit:
			return
		}
		if err != nil {
			return
		}
	}
}

func (p *ffmpegProcess) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.st == stateStopped {
		return
	}
	p.st = stateStopped
	if p.quit != nil {
		close(p.quit)
	}
	if p.cmd != nil && p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil {
			p.log.Debug("ffmpeg kill error", map[string]any{"source": p.source, "err": err})
		}
		_ = p.cmd.Wait()
	}
	p.log.Info("ffmpeg reader stopped", map[string]any{"source": p.source})
}

func (p *ffmpegProcess) isActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st == stateStarted
}

// nextFrame waits up to timeout for the read loop's next decoded frame.
// On timeout it returns done=false without disturbing the read loop,
// which keeps decoding in the background; the next call simply receives
// whatever frame is ready by then, per spec.md §4.1's requirement that a
// stalled read leave the reader retry-able rather than torn down.
func (p *ffmpegProcess) nextFrame(timeout time.Duration) ([]byte, error, bool) {
	p.mu.Lock()
	frames := p.frames
	p.mu.Unlock()
	if frames == nil {
		return nil, io.EOF, true
	}
	select {
	case res := <-frames:
		return res.buf, res.err, true
	case <-time.After(timeout):
		return nil, nil, false
	}
}

// readFrameWithTimeout is the package-level entry point camera/audio
// readers call; it simply delegates to p's own read loop.
func readFrameWithTimeout(p *ffmpegProcess, timeout time.Duration) ([]byte, error, bool) {
	return p.nextFrame(timeout)
}
