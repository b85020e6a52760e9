// Command ingest runs the live event listener: it subscribes to program
// logs over the Solana WebSocket transport, decodes them through Codec,
// applies them to the embedded Store through the per-mint indexing
// pipeline, and fans out resulting deltas over the in-process Bus.
// cmd/server runs as a separate process and reads only the Store.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spinpet-indexer/internal/bus"
	"spinpet-indexer/internal/config"
	"spinpet-indexer/internal/indexer"
	"spinpet-indexer/internal/listener"
	"spinpet-indexer/internal/materialize"
	"spinpet-indexer/internal/observability"
	"spinpet-indexer/internal/solana"
	"spinpet-indexer/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("ingest: config: %v", err)
	}

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	st, err := store.Open(cfg.DatabaseStorePath)
	if err != nil {
		logger.Fatalf("open store at %s: %v", cfg.DatabaseStorePath, err)
	}
	defer st.Close()

	ix := indexer.New(st)
	b := bus.New()
	router := listener.NewMintRouter(ix, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MaterializeClickHouseEnabled {
		chConn, err := materialize.NewClickHouseConn(ctx, cfg.MaterializeClickHouseDSN)
		if err != nil {
			logger.Printf("clickhouse materializer disabled: %v", err)
		} else {
			defer chConn.Close()
			sink := materialize.NewCandleSink(chConn, cfg.MaterializeClickHouseBatchSize, time.Duration(cfg.MaterializeFlushIntervalMs)*time.Millisecond)
			defer sink.Close()
			router.AddSink(sink)
			logger.Println("clickhouse candle materializer enabled")
		}
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		addr := ":9091"
		logger.Printf("metrics listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()

	if !cfg.SolanaEnableEventListener {
		logger.Println("solana.enable_event_listener is false, exiting after store initialization")
		return
	}

	transportCfg := listener.DefaultTransportConfig()
	ws, err := listener.NewSolanaLogClient(ctx, cfg.SolanaWSURL, cfg.SolanaProgramID, &transportCfg)
	if err != nil {
		logger.Fatalf("connect to %s: %v", cfg.SolanaWSURL, err)
	}
	defer ws.Close()

	lc := listener.DefaultConfig(cfg.SolanaProgramID)
	lc.ReconnectInterval = time.Duration(cfg.SolanaReconnectIntervalMs) * time.Millisecond
	lc.MaxReconnectAttempts = cfg.SolanaMaxReconnectAttempts

	var listenerOpts []listener.Option
	if cfg.SolanaRPCURL != "" {
		rpcClient := solana.NewHTTPClient(cfg.SolanaRPCURL)
		listenerOpts = append(listenerOpts, listener.WithRPCClient(rpcClient))
	}
	l := listener.New(ws, router, lc, listenerOpts...)

	if cfg.MaterializePostgresEnabled {
		pool, err := materialize.NewPostgresPool(ctx, cfg.MaterializePostgresDSN)
		if err != nil {
			logger.Printf("postgres checkpoint store disabled: %v", err)
		} else {
			defer pool.Close()
			checkpoints := materialize.NewCheckpointStore(pool)
			if cp, ok, err := checkpoints.Get(ctx, cfg.SolanaProgramID); err != nil {
				logger.Printf("read startup checkpoint: %v", err)
			} else if ok {
				logger.Printf("last checkpoint: slot=%d signature=%s updated_at=%s", cp.LastSlot, cp.LastSignature, cp.UpdatedAt)
			}
			interval := time.Duration(cfg.MaterializeCheckpointIntervalSec) * time.Second
			go checkpoints.RunPeriodicUpserts(ctx, cfg.SolanaProgramID, interval, l.Position)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	logger.Printf("streaming logs for program %s", cfg.SolanaProgramID)
	l.Run(ctx)
	logger.Printf("listener reached state %s, exiting", l.State())
}
