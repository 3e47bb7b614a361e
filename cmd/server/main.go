/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the settlement ledger engine server: flags,
  logging, store, business rules, engine, cheque-monitoring queue, HTTP
  router, graceful shutdown.

COMMAND-LINE FLAGS:
  -port         HTTP server port (default: 8080)
  -db           SQLite database path (default: settlements.db, ":memory:" works)
  -rules        JSON business-rules file (optional; defaults preserved)
  -monitor-url  Cheque clearance monitoring service URL (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, drain for 30s, flush the
  monitoring queue, close the database.

SEE ALSO:
  - api/server.go: router configuration
  - factory/rules.go: rules file format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/settlement-engine/api"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/pkg/logging"
	"github.com/warp/settlement-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "settlements.db", "SQLite database path")
	rulesPath := flag.String("rules", "", "JSON business-rules file")
	monitorURL := flag.String("monitor-url", "", "cheque monitoring service URL")
	flag.Parse()

	logging.Setup()
	logger := slog.Default()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	rules, err := factory.LoadRules(*rulesPath)
	if err != nil {
		logger.Error("failed to load business rules", "err", err)
		os.Exit(1)
	}

	engine := ledger.NewEngine(store.Stores(), rules, logger)
	engine.Committer = store

	var queue *ledger.MonitorQueue
	if *monitorURL != "" {
		queue = ledger.NewMonitorQueue(api.NewChequeMonitorClient(*monitorURL), logger)
		queue.Start()
		defer queue.Stop()
		engine.Monitor = queue
	}

	router := api.NewRouter(api.NewHandler(engine))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "err", err)
	}
	logger.Info("server stopped")
}
