// Command sender runs one sender worker for a single device: it reads
// that device's descriptor from a device catalog entry (selected by
// -device-name), spawns the matching reader, and publishes to the bus
// proxy, per spec.md §4.4.
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
	fs := flag.NewFlagSet("sender", flag.ExitOnError)
	cfg := config.Register(fs)
	deviceName := fs.String("device-name", "", "name of the device to capture, as listed in the device catalog")
	devicePath := fs.String("device-path", "/dev/video0", "v4l2 node or alsa hw id to decode from")
	op := fs.String("preprocess", "none", "preprocessing op: none|rotate_90_cw|rotate_90_ccw|rotate_180")
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		log.Fatalf("sender: invalid config: %v", err)
	}
	if cfg.DeviceCatalogPath == "" || *deviceName == "" {
		log.Fatal("sender: -device-catalog-path and -device-name are required")
	}

	devices, err := devicecatalog.Load(cfg.DeviceCatalogPath)
	if err != nil {
		log.Fatalf("sender: load device catalog: %v", err)
	}
	var device *capturemodel.DeviceDescriptor
	for i := range devices {
		if devices[i].Name == *deviceName {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		log.Fatalf("sender: device %q not found in catalog", *deviceName)
	}

	lx := logx.New("cmd:sender:" + *deviceName)

	var reader capture.Reader
	switch device.Kind {
	case capturemodel.DeviceKindCamera:
		reader, err = deviceio.NewFFmpegCameraReader(*device, *devicePath, lx)
	case capturemodel.DeviceKindAudio:
		reader, err = deviceio.NewFFmpegAudioReader(*device, *devicePath, lx)
	default:
		lx.Error("unknown device kind", nil, map[string]any{"kind": device.Kind})
		os.Exit(1)
	}
	if err != nil {
		lx.Error("build reader failed", err, nil)
		os.Exit(1)
	}

	pubEndpoint := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.ProxySubPort)
	pub := busio.NewPublisher(pubEndpoint, cfg.QueueSize)

	sender := capture.NewSender(*deviceName, reader, pub, capturemodel.PreprocessingOp(*op))
	if err := sender.StartProcess(); err != nil {
		lx.Error("start failed", err, nil)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	lx.Info("shutting down", nil)
	sender.StopProcess(time.Duration(cfg.SenderStopTimeoutMS) * time.Millisecond)
}
