// Command migrate applies the submission-trail schema with goose.
//
//	migrate up|up-by-one|up-to N|down|down-to N|redo|reset|status|version|validate
//	migrate create <name>
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/logger"
	"github.com/eta-consult/quote-api/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// sourceDir is where create writes new migration files
const sourceDir = "./migrations"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate <up|up-by-one|up-to|down|down-to|redo|reset|status|version|validate|create> [args]")
	}
	command, arguments := args[0], args[1:]

	if command == "create" {
		if len(arguments) == 0 {
			return fmt.Errorf("create requires a migration name")
		}
		if err := goose.Create(nil, sourceDir, arguments[0], "sql"); err != nil {
			return fmt.Errorf("failed to create migration: %w", err)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// the database password may live in Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("database is disabled (database.enabled=false); nothing to migrate")
	}

	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(log.Named("goose")))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	log.Info("Running migration command",
		zap.String("command", command),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name))
	if err := goose.RunContext(ctx, command, db, ".", arguments...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
