// Command flash-arbitrage consumes pool-swap events off a market-data
// relay socket, maintains the pool state store, runs the cross-venue
// arbitrage detector on every swap, and publishes any opportunities found
// over NATS. Its own ops API serves the detector's skip/emit counters, not
// the opportunities themselves.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeplane/pkg/arbitrage"
	"tradeplane/pkg/config"
	"tradeplane/pkg/opsapi"
	"tradeplane/pkg/poolstore"
	"tradeplane/pkg/protocol"
	"tradeplane/pkg/relay"
	"tradeplane/pkg/signalbus"
)

func main() {
	configPath := flag.String("config", "", "path to the detector's YAML config file")
	marketDataSocket := flag.String("market-data-socket", "", "market-data relay bind path to subscribe to")
	poolsPath := flag.String("pools", "", "JSON file describing the pools to track")
	pricesPath := flag.String("prices", "", "JSON file of token address -> USD price")
	natsAddr := flag.String("nats-addr", "", "NATS server address for opportunity publication (empty disables)")
	flag.Parse()

	if *configPath == "" || *marketDataSocket == "" || *poolsPath == "" {
		log.Fatal("[flash-arbitrage] --config, --market-data-socket, and --pools are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[flash-arbitrage] config: %v", err)
	}
	detectorCfg, err := cfg.Detector.ToArbitrageConfig()
	if err != nil {
		log.Fatalf("[flash-arbitrage] detector config: %v", err)
	}

	store := poolstore.New()
	if err := loadPools(*poolsPath, store); err != nil {
		log.Fatalf("[flash-arbitrage] %v", err)
	}
	priceOracle, err := loadPrices(*pricesPath)
	if err != nil {
		log.Fatalf("[flash-arbitrage] %v", err)
	}

	detector := arbitrage.New(store, priceOracle, detectorCfg)
	publisher := signalbus.NewPublisher(signalbus.Config{NATSAddr: *natsAddr})
	defer publisher.Close()

	apiPort := cfg.System.APIPort
	if apiPort == 0 {
		apiPort = 9102
	}
	api := opsapi.NewServer(apiPort)
	api.Start()
	defer api.Stop()
	log.Printf("[flash-arbitrage] ops API on :%d", apiPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[flash-arbitrage] received %v, shutting down", sig)
		cancel()
	}()

	snapshotTicker := time.NewTicker(time.Second)
	defer snapshotTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-snapshotTicker.C:
				api.UpdateSnapshot(opsapi.Snapshot{
					GeneratedAtUnixNs: time.Now().UnixNano(),
					Detector:          detector.Stats(),
				})
			}
		}
	}()

	runConsumer(ctx, *marketDataSocket, store, detector, publisher)
}

// runConsumer dials the market-data relay and processes pool-swap TLVs
// until ctx is cancelled, reconnecting on transient read errors.
func runConsumer(ctx context.Context, socketPath string, store *poolstore.Store, detector *arbitrage.Detector, publisher *signalbus.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		client, err := relay.Dial(socketPath)
		if err != nil {
			log.Printf("[flash-arbitrage] dial %s: %v, retrying in 1s", socketPath, err)
			time.Sleep(time.Second)
			continue
		}
		log.Printf("[flash-arbitrage] connected to %s", socketPath)
		consumeUntilError(ctx, client, store, detector, publisher)
		client.Close()
	}
}

func consumeUntilError(ctx context.Context, client *relay.Client, store *poolstore.Store, detector *arbitrage.Detector, publisher *signalbus.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := client.Recv()
		if err != nil {
			log.Printf("[flash-arbitrage] recv: %v", err)
			return
		}

		_, tlvs, err := relay.ParseAndDecode(msg, false)
		if err != nil {
			log.Printf("[flash-arbitrage] decode: %v", err)
			continue
		}

		for _, tlv := range tlvs {
			if tlv.Type != protocol.TLVTypePoolSwap {
				continue
			}
			swap, err := protocol.UnmarshalPoolSwapTLV(tlv.Payload)
			if err != nil {
				log.Printf("[flash-arbitrage] unmarshal pool swap: %v", err)
				continue
			}
			handleSwap(ctx, store, detector, publisher, swap)
		}
	}
}

func handleSwap(ctx context.Context, store *poolstore.Store, detector *arbitrage.Detector, publisher *signalbus.Publisher, swap protocol.PoolSwapTLV) {
	pool, event, err := swapEventFromTLV(store, swap)
	if err != nil {
		log.Printf("[flash-arbitrage] %v", err)
		return
	}
	if err := store.ApplyEvent(pool, event); err != nil {
		log.Printf("[flash-arbitrage] apply event for %s: %v", pool, err)
		return
	}

	tokenIn := addressFromBytes(swap.TokenIn)
	tokenOut := addressFromBytes(swap.TokenOut)
	opportunities, err := detector.OnSwap(ctx, pool, tokenIn, tokenOut)
	if err != nil {
		log.Printf("[flash-arbitrage] detect: %v", err)
		return
	}
	for _, opp := range opportunities {
		log.Printf("[flash-arbitrage] opportunity: %s -> %s profit=%s", opp.SourcePool, opp.TargetPool, opp.ExpectedProfitUSD)
		if err := publisher.PublishOpportunity(opp); err != nil {
			log.Printf("[flash-arbitrage] publish: %v", err)
		}
	}
}
