/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the affiliate transaction service. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store (fail fast if it cannot open)
  3. Build gateways from environment credentials
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 3000)
  -db      SQLite database path (default: transactions.db)
           Use ":memory:" for an in-memory database
  -dev     Development logging (console encoder)

ENVIRONMENT:
  INRDEALS_USERNAME, INRDEALS_COUPON_TOKEN, INRDEALS_STORE_TOKEN,
  INRDEALS_REPORT_TOKEN, INRDEALS_BASE_URL
  SENDGRID_API_KEY, SENDGRID_FROM_EMAIL, SENDGRID_FROM_NAME,
  SENDGRID_BASE_URL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait for active
  requests (30s timeout), close the database, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shoppiness/affiliate-engine/api"
	"github.com/shoppiness/affiliate-engine/gateway"
	"github.com/shoppiness/affiliate-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 3000, "HTTP server port")
	dbPath := flag.String("db", "transactions.db", "SQLite database path")
	dev := flag.Bool("dev", false, "development logging")
	flag.Parse()

	logger := newLogger(*dev)
	defer logger.Sync()

	// Initialize store. A service without its ledger is useless, so
	// fail fast rather than limp along logging errors per request.
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Gateways
	feed := gateway.NewFeedClient(gateway.FeedConfigFromEnv(), logger)

	var mailer gateway.Mailer
	mailer, err = gateway.NewSendGridMailer(gateway.MailConfigFromEnv(), logger)
	if err != nil {
		// Mail is an optional surface; run without it.
		logger.Warn("mailer disabled", zap.Error(err))
		mailer = nil
	}

	// Router
	handler := api.NewHandler(store, feed, mailer, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(dev bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	return logger
}
