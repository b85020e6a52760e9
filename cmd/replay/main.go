// Command replay walks one mint's already-indexed event log back out of
// the local Store in stored order, for offline inspection. It reads only;
// it never re-applies events through the Indexer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"spinpet-indexer/internal/query"
	"spinpet-indexer/internal/replay"
	"spinpet-indexer/internal/store"
)

func main() {
	storePath := flag.String("database-store-path", os.Getenv("SPINPET_DATABASE_STORE_PATH"), "embedded store file path")
	mint := flag.String("mint", "", "mint to replay (required)")
	fromTime := flag.String("from-time", "", "start time (RFC3339)")
	toTime := flag.String("to-time", "", "end time (RFC3339)")
	quiet := flag.Bool("quiet", false, "suppress per-event log lines")
	outputJSON := flag.Bool("json", false, "print the summary as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *storePath == "" {
		logger.Fatal("--database-store-path is required")
	}
	if *mint == "" {
		logger.Fatal("--mint is required")
	}

	var fromMs, toMs int64
	if *fromTime != "" {
		t, err := time.Parse(time.RFC3339, *fromTime)
		if err != nil {
			logger.Fatalf("parse from-time: %v", err)
		}
		fromMs = t.UnixMilli()
	}
	if *toTime != "" {
		t, err := time.Parse(time.RFC3339, *toTime)
		if err != nil {
			logger.Fatalf("parse to-time: %v", err)
		}
		toMs = t.UnixMilli()
	}

	st, err := store.Open(*storePath)
	if err != nil {
		logger.Fatalf("open store at %s: %v", *storePath, err)
	}
	defer st.Close()

	runner := replay.NewRunner(query.New(st))
	engine := replay.NewLoggingEngine(*mint, *quiet)

	logger.Printf("replaying mint %s", *mint)
	if err := runner.Run(context.Background(), *mint, fromMs, toMs, engine); err != nil {
		logger.Fatalf("replay failed: %v", err)
	}

	stats := engine.Stats()
	if *outputJSON {
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Mint:          %s\n", stats.Mint)
	fmt.Printf("Total Events:  %d\n", stats.TotalEvents)
	for kind, count := range stats.ByKind {
		fmt.Printf("  %s: %d\n", kind, count)
	}
	if stats.TotalEvents > 0 {
		fmt.Printf("First Event:   %s\n", time.UnixMilli(stats.FirstEventTsMs).Format(time.RFC3339))
		fmt.Printf("Last Event:    %s\n", time.UnixMilli(stats.LastEventTsMs).Format(time.RFC3339))
	}
}
