package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lcardona/depositrack/internal/config"
	"github.com/lcardona/depositrack/internal/generator"
	"github.com/lcardona/depositrack/internal/logging"
	"github.com/lcardona/depositrack/internal/store"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		users      = flag.Int("users", cfg.NumUsers, "number of users to generate")
		deposits   = flag.Int("deposits", cfg.NumDeposits, "number of deposits to generate")
		readRatio  = flag.Float64("read-ratio", cfg.ReadRatio, "fraction of deposits already confirmed")
		trashRatio = flag.Float64("trash-ratio", cfg.TrashRatio, "fraction of deposits soft-deleted by the sender")
		monthsBack = flag.Int("months-back", cfg.MonthsBack, "how many months of history to spread deposits over")
		seed       = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		workers    = flag.Int("workers", 4, "number of concurrent insert workers")
	)
	flag.Parse()

	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(appCfg.Logging).With("component", "seed")

	ledgerStore, err := store.OpenSQLite(appCfg.Store.Path)
	if err != nil {
		logger.Error("failed to open ledger store", "error", err, "path", appCfg.Store.Path)
		os.Exit(1)
	}
	defer ledgerStore.Close()

	genCfg := generator.Config{
		NumUsers:      *users,
		NumDeposits:   *deposits,
		ReadRatio:     clampRatio(*readRatio),
		TrashRatio:    clampRatio(*trashRatio),
		ContactChance: cfg.ContactChance,
		MonthsBack:    *monthsBack,
		Seed:          *seed,
	}

	dataset := generator.New(genCfg).Generate()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := generator.NewLoader(ledgerStore, *workers).Load(ctx, dataset); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("ledger seeded",
		"path", appCfg.Store.Path,
		"users", len(dataset.Users),
		"deposits", len(dataset.Deposits),
		"contacts", len(dataset.Contacts),
	)
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
