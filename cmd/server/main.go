// Command server exposes a minimal net/http surface (/healthz, /status,
// /tokens, /metrics) sufficient to smoke-test Store contents without
// implementing the full REST/Swagger surface; the production router in
// front of internal/query and internal/bus lives outside this repository.
// It opens only the Store: /status reports uptime and a tracked-token
// count, not the Listener's state, which lives in the cmd/ingest process.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"spinpet-indexer/internal/config"
	"spinpet-indexer/internal/observability"
	"spinpet-indexer/internal/query"
	"spinpet-indexer/internal/store"
)

// Server wires the read-only query surface to a thin HTTP facade.
type Server struct {
	q         *query.Query
	logger    *log.Logger
	startedAt time.Time
}

// StatusResponse is the JSON body for GET /status.
type StatusResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	TokenAtom int    `json:"tracked_tokens_sample_size"`
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("server: config: %v", err)
	}

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	st, err := store.Open(cfg.DatabaseStorePath)
	if err != nil {
		logger.Fatalf("open store at %s: %v", cfg.DatabaseStorePath, err)
	}
	defer st.Close()

	srv := &Server{
		q:         query.New(st),
		logger:    logger,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/status", srv.handleStatus)
	mux.HandleFunc("/tokens", srv.handleTokens)
	mux.Handle("/metrics", observability.Handler())

	addr := cfg.ServerHost + ":" + strconv.Itoa(cfg.ServerPort)

	httpSrv := &http.Server{Addr: addr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		httpSrv.Close()
	}()

	logger.Printf("listening on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http server: %v", err)
	}
	logger.Println("shutdown complete")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "ok",
		Uptime: time.Since(s.startedAt).String(),
	}
	if mints, cerr := s.q.ListTokens(1000); cerr == nil {
		resp.TokenAtom = len(mints)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	mints, cerr := s.q.ListTokens(1000)
	if cerr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": cerr})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": mints})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}
