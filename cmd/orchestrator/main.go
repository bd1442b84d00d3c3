// Command orchestrator boots the bus proxy plus one sender per catalog
// device as a single unit, per spec.md §4.6 / SPEC_FULL.md §4.6's
// device-catalog-driven construction path.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fenwicklabs/peripherycapture/busio"
	"github.com/fenwicklabs/peripherycapture/capture"
	"github.com/fenwicklabs/peripherycapture/capturemodel"
	"github.com/fenwicklabs/peripherycapture/config"
	"github.com/fenwicklabs/peripherycapture/deviceio"
	"github.com/fenwicklabs/peripherycapture/devicecatalog"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

func main() {
	fs := flag.NewFlagSet("orchestrator", flag.ExitOnError)
	cfg := config.Register(fs)
	devicePathsHint := fs.String("device-path-prefix", "/dev/video", "prefix used to derive each camera's device node (audio devices use -audio-hw)")
	audioHW := fs.String("audio-hw", "hw:1,0", "ALSA hw id used for every audio device")
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		log.Fatalf("orchestrator: invalid config: %v", err)
	}
	if cfg.DeviceCatalogPath == "" {
		log.Fatal("orchestrator: -device-catalog-path is required")
	}

	devices, err := devicecatalog.Load(cfg.DeviceCatalogPath)
	if err != nil {
		log.Fatalf("orchestrator: load device catalog: %v", err)
	}

	byName := make(map[string]capturemodel.DeviceDescriptor, len(devices))
	names := make([]string, 0, len(devices))
	camIndex := make(map[string]int, len(devices))
	nextCam := 0
	for _, d := range devices {
		byName[d.Name] = d
		names = append(names, d.Name)
		if d.Kind == capturemodel.DeviceKindCamera {
			camIndex[d.Name] = nextCam
			nextCam++
		}
	}

	proxy := busio.NewProxy(cfg.Host, cfg.ProxySubPort, cfg.ProxyPubPort)
	pubEndpoint := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.ProxySubPort)

	build := func(name string, op capturemodel.PreprocessingOp) (*capture.Sender, error) {
		d := byName[name]
		lx := logx.New("sender:" + name)

		var reader capture.Reader
		var err error
		switch d.Kind {
		case capturemodel.DeviceKindCamera:
			reader, err = deviceio.NewFFmpegCameraReader(d, fmt.Sprintf("%s%d", *devicePathsHint, camIndex[name]), lx)
		case capturemodel.DeviceKindAudio:
			reader, err = deviceio.NewFFmpegAudioReader(d, *audioHW, lx)
		default:
			return nil, fmt.Errorf("orchestrator: unknown device kind for %q", name)
		}
		if err != nil {
			return nil, err
		}

		pub := busio.NewPublisher(pubEndpoint, cfg.QueueSize)
		return capture.NewSender(name, reader, pub, op), nil
	}

	orch, err := capture.NewOrchestrator(proxy, names, build, nil)
	if err != nil {
		log.Fatalf("orchestrator: construct: %v", err)
	}

	if err := orch.Start(); err != nil {
		log.Fatalf("orchestrator: start: %v", err)
	}
	log.Printf("orchestrator: running %d senders", len(names))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("orchestrator: shutting down")
	orch.Stop(time.Duration(cfg.SenderStopTimeoutMS) * time.Millisecond)
}
