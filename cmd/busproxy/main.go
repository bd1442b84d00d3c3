// Command busproxy runs the bus proxy as its own process: binds XSUB and
// XPUB and pumps frames between them until interrupted, per spec.md
// §4.3.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fenwicklabs/peripherycapture/busio"
	"github.com/fenwicklabs/peripherycapture/config"
)

func main() {
	fs := flag.NewFlagSet("busproxy", flag.ExitOnError)
	cfg := config.Register(fs)
	fs.Parse(os.Args[1:])

	if err := cfg.Validate(); err != nil {
		log.Fatalf("busproxy: invalid config: %v", err)
	}

	proxy := busio.NewProxy(cfg.Host, cfg.ProxySubPort, cfg.ProxyPubPort)
	if err := proxy.Start(); err != nil {
		log.Fatalf("busproxy: start: %v", err)
	}
	log.Printf("busproxy: listening sub=%d pub=%d on %s", cfg.ProxySubPort, cfg.ProxyPubPort, cfg.Host)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("busproxy: shutting down")
	proxy.Stop()
}
