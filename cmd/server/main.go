package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lcardona/depositrack/internal/admin"
	"github.com/lcardona/depositrack/internal/config"
	"github.com/lcardona/depositrack/internal/contacts"
	"github.com/lcardona/depositrack/internal/feed"
	"github.com/lcardona/depositrack/internal/ledger"
	"github.com/lcardona/depositrack/internal/logging"
	"github.com/lcardona/depositrack/internal/notify"
	"github.com/lcardona/depositrack/internal/server"
	"github.com/lcardona/depositrack/internal/store"
	"github.com/lcardona/depositrack/internal/view"
	"github.com/lcardona/depositrack/internal/vouchers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ledgerStore, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open ledger store", "error", err, "path", cfg.Store.Path)
		os.Exit(1)
	}
	defer func() {
		if err := ledgerStore.Close(); err != nil {
			logger.Warn("closing ledger store failed", "error", err)
		}
	}()

	bus := feed.NewBus()
	engine := view.New(ledgerStore)
	reconciler := feed.NewReconciler(engine, bus, logger, cfg.Feed.DebounceWindow)
	defer reconciler.Close()

	objectStorage := vouchers.NewMemory()
	dispatcher := notify.NewLogDispatcher(logger)

	contactService := contacts.New(ledgerStore)
	ledgerService := ledger.New(ledgerStore, objectStorage, dispatcher, bus, logger).
		WithNameResolver(contactService)
	adminService := admin.New(ledgerStore)

	apiHandlers := server.NewAPIHandlers(
		logger, ledgerService, contactService, engine, adminService, reconciler, objectStorage,
	)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.StoreHealthService{Store: ledgerStore},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
