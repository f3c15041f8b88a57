// Command lead-import reconciles a spreadsheet export against the lead
// store and prints the import report as JSON.
//
//	lead-import -file leads.xlsx
//	lead-import -file leads.csv -dry-run
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/importer"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/platform/config"
	"franchise_crm_backend/platform/db"
	"franchise_crm_backend/platform/logger"
)

func main() {
	var (
		file           = flag.String("file", "", "spreadsheet to import (.xlsx, .xls, .csv)")
		dryRun         = flag.Bool("dry-run", false, "reconcile against an empty in-memory store")
		workers        = flag.Int("workers", 0, "reconcile workers (default IMPORT_WORKERS)")
		attemptCeiling = flag.Int("attempt-ceiling", 5, "attempt ceiling used by -dry-run")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "lead-import: -file is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *file, *dryRun, *workers, *attemptCeiling); err != nil {
		fmt.Fprintln(os.Stderr, "lead-import:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file string, dryRun bool, workers, attemptCeiling int) error {
	log := logger.New("development")
	var store repository.Transactor

	if dryRun {
		store = repository.NewMemoryStore()
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log = logger.New(cfg.Env)
		attemptCeiling = cfg.GetAttemptCeiling()
		if workers < 1 {
			workers = cfg.GetImportWorkers()
		}

		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		store = repository.New(pool)
	}

	cadences, err := cadence.Default()
	if err != nil {
		return err
	}
	eventBus := events.NewInMemoryBus(log)
	reconciler := reconcile.New(store, domain.NewClassifier(attemptCeiling), cadences, eventBus, log)
	runner := importer.NewRunner(reconciler, workers, eventBus, log)

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	log.Info("lead import started", "file", file, "dryRun", dryRun)
	report, runErr := runner.ImportFile(ctx, f, filepath.Base(file), importer.SourceCLI)
	eventBus.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return runErr
}
