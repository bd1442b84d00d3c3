// Command sink is the persistence/live-view counterpart to cmd/receiver:
// it subscribes to the bus and, depending on -consumers, writes fixed-
// length video segments, writes individual images, and/or serves a
// WS/MJPEG live view — per spec.md §4.7/§4.8 and SPEC_FULL.md's
// live-view expansion. Each selected consumer owns its own Subscriber so
// one slow consumer never backs up another (PUB/SUB fan-out, not a
// shared queue).
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fenwicklabs/peripherycapture/busio"
	"github.com/fenwicklabs/peripherycapture/capture"
	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/config"
	"github.com/fenwicklabs/peripherycapture/deps"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
	"github.com/fenwicklabs/peripherycapture/liveview"
	"github.com/fenwicklabs/peripherycapture/sink"
)

func main() {
	fs := flag.NewFlagSet("sink", flag.ExitOnError)
	cfg := config.Register(fs)
	deviceNamesCSV := fs.String("device-names", "", "comma-separated device names to aggregate")
	synced := fs.Bool("synced", false, "enable time-aligned aggregation")
	maxAttempts := fs.Int("max-attempts", 20, "receive attempts before a tuple is abandoned")
	consumersCSV := fs.String("consumers", "video,image", "comma-separated consumers to run: video,image,ws")

	outputDir := fs.String("output-dir", "./captures", "root directory for written segments/images")
	container := fs.String("container", "mp4", "video sink container/file extension")
	codec := fs.String("codec", "mp4v", "video sink fourcc codec")
	fps := fs.Int("fps", 30, "video sink frames per second")
	segmentSeconds := fs.Int("segment-seconds", 10, "video sink segment duration")
	badFrameBudget := fs.Int("bad-frame-budget", 10, "consecutive missed tuples before a segment aborts")
	imageExt := fs.String("image-ext", "jpg", "image sink file extension (jpg|png)")
	wsAddr := fs.String("ws-addr", ":8089", "listen address for the WS/MJPEG live view")
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		log.Fatalf("sink: invalid config: %v", err)
	}
	if *deviceNamesCSV == "" {
		log.Fatal("sink: -device-names is required")
	}
	names := strings.Split(*deviceNamesCSV, ",")
	consumers := make(map[string]bool)
	for _, c := range strings.Split(*consumersCSV, ",") {
		consumers[strings.TrimSpace(c)] = true
	}

	d, err := deps.Open(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("sink: open catalog: %v", err)
	}
	defer d.Close()

	subEndpoint := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.ProxyPubPort)

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	var running []func()

	if consumers["video"] {
		lx := logx.New("cmd:sink:video")
		rcv, err := newReceiver(subEndpoint, cfg, names, *synced)
		if err != nil {
			log.Fatalf("sink: video subscriber: %v", err)
		}
		spec := capturemodel.MediaSpec{
			OutputDir: *outputDir, FileNameTemplate: "seg-%d", Container: *container,
			Codec: *codec, FPS: *fps, DurationSeconds: *segmentSeconds,
		}
		vs, err := sink.NewVideoSink(rcv, spec, names, d.Catalog)
		if err != nil {
			log.Fatalf("sink: build video sink: %v", err)
		}
		running = append(running, func() { runVideoLoop(vs, stop, *maxAttempts, *badFrameBudget, lx) })
	}

	if consumers["image"] {
		lx := logx.New("cmd:sink:image")
		rcv, err := newReceiver(subEndpoint, cfg, names, *synced)
		if err != nil {
			log.Fatalf("sink: image subscriber: %v", err)
		}
		is := sink.NewImageSink(rcv, *outputDir, *imageExt, cfg.ImageSinkWorkers, d.Catalog)
		running = append(running, func() { runImageLoop(is, stop, lx) })
	}

	if consumers["ws"] {
		lx := logx.New("cmd:sink:ws")
		rcv, err := newReceiver(subEndpoint, cfg, names, *synced)
		if err != nil {
			log.Fatalf("sink: ws subscriber: %v", err)
		}
		view := liveview.NewWSMotionJPEGView()
		mux := http.NewServeMux()
		mux.Handle("/live", view)
		server := &http.Server{Addr: *wsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lx.Error("http server failed", err, nil)
			}
		}()
		go func() { <-stop; server.Close() }()
		running = append(running, func() { runLiveViewLoop(rcv, view, stop, *maxAttempts, lx) })
	}

	for _, r := range running {
		go r()
	}

	log.Printf("sink: running consumers %s for devices %v", *consumersCSV, names)
	<-stop
	log.Println("sink: shutting down")
}

func newReceiver(endpoint string, cfg *config.Config, names []string, synced bool) (*capture.Receiver, error) {
	sub := busio.NewSubscriber(endpoint, cfg.ReceiveTimeout(), cfg.QueueSize)
	if err := sub.Start(); err != nil {
		return nil, err
	}
	return capture.NewReceiver(sub, names, synced), nil
}

func runVideoLoop(vs *sink.VideoSink, stop <-chan struct{}, maxAttempts, badFrameBudget int, lx *logx.Logger) {
	seg := 0
	for {
		select {
		case <-stop:
			return
		default:
		}
		name := fmt.Sprintf("seg-%d", seg)
		if err := vs.SaveSegment(name, badFrameBudget); err != nil {
			lx.Error("segment failed", err, map[string]any{"segment": name})
			time.Sleep(time.Second)
			continue
		}
		lx.Info("segment written", map[string]any{"segment": name})
		seg++
	}
}

func runImageLoop(is *sink.ImageSink, stop <-chan struct{}, lx *logx.Logger) {
	defer is.Shutdown()
	n := 0
	for {
		select {
		case <-stop:
			return
		default:
		}
		name := fmt.Sprintf("img-%d", n)
		ok, err := is.SaveOne(name)
		if err != nil {
			lx.Error("save failed", err, nil)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}
		n++
	}
}

func runLiveViewLoop(rcv *capture.Receiver, view *liveview.WSMotionJPEGView, stop <-chan struct{}, maxAttempts int, lx *logx.Logger) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		tuple, err := rcv.Read(maxAttempts)
		if err != nil {
			lx.Error("read failed", err, nil)
			time.Sleep(time.Second)
			continue
		}
		if tuple == nil {
			continue
		}
		view.Publish(tuple)
	}
}
