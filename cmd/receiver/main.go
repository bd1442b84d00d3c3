// Command receiver is a debug consumer: it subscribes to the bus,
// aggregates one tuple per device set, and logs each tuple's per-device
// frame sizes and timestamps. Useful for verifying a running
// orchestrator without standing up a sink.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fenwicklabs/peripherycapture/busio"
	"github.com/fenwicklabs/peripherycapture/capture"
	"github.com/fenwicklabs/peripherycapture/config"
	"github.com/fenwicklabs/peripherycapture/internal/logx"
)

func main() {
	fs := flag.NewFlagSet("receiver", flag.ExitOnError)
	cfg := config.Register(fs)
	deviceNamesCSV := fs.String("device-names", "", "comma-separated device names to aggregate")
	synced := fs.Bool("synced", false, "enable time-aligned aggregation")
	maxAttempts := fs.Int("max-attempts", 20, "receive attempts before a tuple is abandoned")
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		log.Fatalf("receiver: invalid config: %v", err)
	}
	if *deviceNamesCSV == "" {
		log.Fatal("receiver: -device-names is required")
	}
	names := strings.Split(*deviceNamesCSV, ",")

	lx := logx.New("cmd:receiver")

	subEndpoint := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.ProxyPubPort)
	sub := busio.NewSubscriber(subEndpoint, cfg.ReceiveTimeout(), cfg.QueueSize)
	if err := sub.Start(); err != nil {
		log.Fatalf("receiver: subscriber start: %v", err)
	}
	defer sub.Stop()

	rcv := capture.NewReceiver(sub, names, *synced)

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	for {
		select {
		case <-stop:
			lx.Info("shutting down", nil)
			return
		default:
		}

		tuple, err := rcv.Read(*maxAttempts)
		if err != nil {
			lx.Error("read error", err, nil)
			time.Sleep(time.Second)
			continue
		}
		if tuple == nil {
			lx.Warn("aggregation exhausted", map[string]any{"max_attempts": *maxAttempts})
			continue
		}
		for name, env := range tuple {
			lx.Info("frame", map[string]any{
				"device": name, "shape": env.Payload.Shape, "bytes": len(env.Payload.Bytes),
				"start_read_ts": env.StartReadTS, "end_read_ts": env.EndReadTS,
			})
		}
	}
}
