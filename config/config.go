// Package config parses the configuration surface from spec.md §6 plus
// SPEC_FULL.md's ambient additions, following the teacher's cmd/*
// convention of plain stdlib flag.FlagSet parsing rather than a
// reflection-based config library.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config is the full configuration surface the core recognizes.
type Config struct {
	Host         string
	ProxySubPort int
	ProxyPubPort int

	QueueSize             int // HWM
	ReceiveTimeoutMS      int
	InvalidFrameTimeoutMS int
	SenderStopTimeoutMS   int

	// [EXPANSION]
	DeviceCatalogPath string
	CatalogDBPath     string
	ImageSinkWorkers  int
	LogLevel          string
}

// ReceiveTimeout and friends convert the millisecond fields to
// time.Duration for callers that need them.
func (c Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeoutMS) * time.Millisecond
}

func (c Config) InvalidFrameTimeout() time.Duration {
	return time.Duration(c.InvalidFrameTimeoutMS) * time.Millisecond
}

func (c Config) SenderStopTimeout() time.Duration {
	return time.Duration(c.SenderStopTimeoutMS) * time.Millisecond
}

// Validate enforces spec.md §6's bounds.
func (c Config) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("config: host required")
	case c.ProxySubPort < 1025 || c.ProxySubPort > 65535:
		return fmt.Errorf("config: proxy_sub_port %d out of [1025,65535]", c.ProxySubPort)
	case c.ProxyPubPort < 1025 || c.ProxyPubPort > 65535:
		return fmt.Errorf("config: proxy_pub_port %d out of [1025,65535]", c.ProxyPubPort)
	case c.ProxySubPort == c.ProxyPubPort:
		return fmt.Errorf("config: proxy_sub_port and proxy_pub_port must be distinct")
	case c.QueueSize < 1:
		return fmt.Errorf("config: queue_size must be >= 1")
	case c.ReceiveTimeoutMS < 1:
		return fmt.Errorf("config: receive_timeout_ms must be >= 1")
	case c.InvalidFrameTimeoutMS < 0:
		return fmt.Errorf("config: invalid_frame_timeout_ms must be >= 0")
	case c.SenderStopTimeoutMS < 1:
		return fmt.Errorf("config: sender_stop_timeout_ms must be >= 1")
	case c.ImageSinkWorkers < 1:
		return fmt.Errorf("config: image_sink_workers must be >= 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log_level %q not one of debug|info|warn|error", c.LogLevel)
	}
	return nil
}

// Register binds every field onto fs with spec-mandated defaults, the
// way cmd/client's main.go binds its own flags directly onto
// flag.CommandLine. Call fs.Parse(args) after Register, then Validate.
func Register(fs *flag.FlagSet) *Config {
	c := &Config{}
	fs.StringVar(&c.Host, "host", envOr("PERIPHERY_HOST", "127.0.0.1"), "bus proxy bind host")
	fs.IntVar(&c.ProxySubPort, "proxy-sub-port", 5555, "proxy XSUB port (senders publish here)")
	fs.IntVar(&c.ProxyPubPort, "proxy-pub-port", 5556, "proxy XPUB port (subscribers connect here)")
	fs.IntVar(&c.QueueSize, "queue-size", 64, "publisher/subscriber HWM")
	fs.IntVar(&c.ReceiveTimeoutMS, "receive-timeout-ms", 500, "subscriber per-receive timeout")
	fs.IntVar(&c.InvalidFrameTimeoutMS, "invalid-frame-timeout-ms", 50, "validated only; senders do not read it and always back off a fixed 50ms after a reader timeout")
	fs.IntVar(&c.SenderStopTimeoutMS, "sender-stop-timeout-ms", 2000, "sender graceful-stop budget")
	fs.StringVar(&c.DeviceCatalogPath, "device-catalog-path", "", "path to a DeviceCatalogEntry JSON file")
	fs.StringVar(&c.CatalogDBPath, "catalog-db-path", "./capture.db", "sqlite file backing the segment catalog")
	fs.IntVar(&c.ImageSinkWorkers, "image-sink-workers", 8, "image sink worker-pool size")
	fs.StringVar(&c.LogLevel, "log-level", envOr("PERIPHERY_LOG_LEVEL", "info"), "debug|info|warn|error")
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
