// Command relay-server runs one domain-parameterized relay instance
// (market data, signal, or execution — decided by the loaded config's
// relay.domain field) and serves its read-only status over the ops API.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeplane/pkg/config"
	"tradeplane/pkg/discovery"
	"tradeplane/pkg/opsapi"
	"tradeplane/pkg/relay"
)

const healthProbeInterval = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to the relay's YAML config file")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("[relay-server] --config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[relay-server] config: %v", err)
	}

	relayCfg, err := cfg.Relay.ToRelayConfig()
	if err != nil {
		log.Fatalf("[relay-server] relay config: %v", err)
	}

	srv, err := relay.NewServer(relayCfg)
	if err != nil {
		log.Fatalf("[relay-server] construct: %v", err)
	}
	log.Printf("[relay-server] domain=%s bind=%s", relayCfg.Domain, relayCfg.BindPath)

	var checker *discovery.HealthChecker
	if cfg.Discovery.Namespace != "" {
		reg, err := cfg.Discovery.BuildRegistry()
		if err != nil {
			log.Printf("[relay-server] discovery registry unavailable: %v", err)
		} else {
			checker = discovery.NewHealthChecker(reg, healthProbeInterval)
		}
	}

	apiPort := cfg.System.APIPort
	if apiPort == 0 {
		apiPort = 9101
	}
	api := opsapi.NewServer(apiPort)
	api.Start()
	defer api.Stop()
	log.Printf("[relay-server] ops API on :%d", apiPort)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	healthStop := make(chan struct{})
	if checker != nil {
		go checker.Run(healthStop)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	snapshotTicker := time.NewTicker(time.Second)
	defer snapshotTicker.Stop()

	for {
		select {
		case err := <-serveErr:
			if err != nil {
				log.Printf("[relay-server] serve: %v", err)
			}
			close(healthStop)
			return

		case sig := <-sigCh:
			log.Printf("[relay-server] received %v, shutting down", sig)
			close(healthStop)
			if err := srv.Close(); err != nil {
				log.Printf("[relay-server] close: %v", err)
			}
			return

		case <-snapshotTicker.C:
			api.UpdateSnapshot(opsapi.Snapshot{
				GeneratedAtUnixNs: time.Now().UnixNano(),
				Relay:             srv.Stats(),
			})
		}
	}
}
