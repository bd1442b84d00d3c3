package config

import (
	"flag"
	"testing"
)

func parseArgs(t *testing.T, args ...string) *Config {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := Register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return c
}

func TestDefaultsAreValid(t *testing.T) {
	c := parseArgs(t)
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestRejectsIdenticalPorts(t *testing.T) {
	c := parseArgs(t, "-proxy-sub-port=6000", "-proxy-pub-port=6000")
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for identical sub/pub ports")
	}
}

func TestRejectsOutOfRangePort(t *testing.T) {
	c := parseArgs(t, "-proxy-sub-port=80")
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for privileged port")
	}
}

func TestRejectsUnknownLogLevel(t *testing.T) {
	c := parseArgs(t, "-log-level=verbose")
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestDurationHelpersConvertMillis(t *testing.T) {
	c := parseArgs(t, "-receive-timeout-ms=250")
	if got := c.ReceiveTimeout().Milliseconds(); got != 250 {
		t.Fatalf("expected 250ms, got %dms", got)
	}
}
