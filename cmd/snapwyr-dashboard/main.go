// Command snapwyr-dashboard runs the live request dashboard as a
// standalone process. Events reach it through the in-process emitter, so
// it is normally embedded; the standalone binary exists for demos and for
// fronting the HTTP API during development.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	snapwyr "github.com/snapwyr/snapwyr-go"
	"github.com/snapwyr/snapwyr-go/pkg/dashboard"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		port        = flag.Int("port", 0, "port to listen on (overrides config)")
		host        = flag.String("host", "", "host to bind (overrides config)")
		maxRequests = flag.Int("max-requests", 0, "retention capacity (overrides config)")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapwyr-dashboard:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *maxRequests != 0 {
		cfg.MaxRequests = *maxRequests
	}

	if err := snapwyr.Start(cfg.emitterOptions()); err != nil {
		log.Fatal("start emitter", zap.Error(err))
	}

	srv := dashboard.New(snapwyr.Default(), dashboard.WithLogger(log))
	if err := srv.Serve(cfg.serverConfig()); err != nil {
		log.Fatal("serve", zap.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	srv.Stop()
	snapwyr.Stop()
}
