package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetimport/internal/config"
	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/JonMunkholm/sheetimport/internal/logging"
	"github.com/JonMunkholm/sheetimport/internal/schema"
	"github.com/JonMunkholm/sheetimport/internal/sheet"
	"github.com/JonMunkholm/sheetimport/internal/store"
	"github.com/JonMunkholm/sheetimport/internal/web"
)

// tableCreator is a destination that can create schema tables.
type tableCreator interface {
	core.Submitter
	EnsureTable(ctx context.Context, s core.Schema) error
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"destination", cfg.Destination.Driver,
		"max_file_size", cfg.Wizard.MaxFileSize,
		"max_concurrent_submits", cfg.Wizard.MaxConcurrentSubmits,
		"rate_limit", cfg.Security.RateLimit,
	)

	schemas, text, err := loadSchemas(cfg.Wizard)
	if err != nil {
		slog.Error("failed to load schemas", "error", err)
		os.Exit(1)
	}

	reg := core.NewRegistry()
	if err := schema.Register(reg, schemas); err != nil {
		slog.Error("failed to register schemas", "error", err)
		os.Exit(1)
	}
	slog.Info("schemas registered", "count", reg.Count())

	ctx := context.Background()
	dest, closeDest, err := openDestination(ctx, cfg.Destination)
	if err != nil {
		slog.Error("failed to open destination", "error", err)
		os.Exit(1)
	}
	defer closeDest()

	if dest != nil && cfg.Destination.CreateTables {
		for _, s := range reg.All() {
			if err := dest.EnsureTable(ctx, s); err != nil {
				slog.Error("failed to create table", "schema", s.Key, "table", s.Table, "error", err)
				os.Exit(1)
			}
		}
		slog.Info("destination tables ready")
	}

	limiter := core.NewSubmitLimiter(cfg.Wizard.MaxConcurrentSubmits, cfg.Wizard.SubmitWait)
	var submitter core.Submitter
	if dest != nil {
		submitter = limiter.Limit(dest)
	} else {
		slog.Warn("no destination configured, submissions will fail")
	}

	service := core.NewService(reg, submitter, core.ServiceOptions{
		Translations:    text,
		UpdateModes:     cfg.Wizard.UpdateModes,
		MaxRecords:      cfg.Wizard.MaxRecords,
		AutoMapDistance: cfg.Wizard.AutoMapDistance,
		SessionTTL:      cfg.Wizard.SessionTTL,
		Logger:          slog.Default(),
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go service.StartSweeper(jobCtx, cfg.Wizard.SweepInterval)

	server := web.NewServer(jobCtx, service, sheet.NewReader(cfg.Wizard.MaxFileSize), cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running submissions finish (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for submissions to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("submissions did not complete in time", "error", err)
			} else {
				slog.Info("all submissions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// loadSchemas reads the schema and translation files, falling back to the
// built-in schemas and default strings.
func loadSchemas(cfg config.WizardConfig) ([]core.Schema, core.Translations, error) {
	schemas := schema.Builtin()
	if cfg.SchemaFile != "" {
		loaded, err := schema.Load(cfg.SchemaFile)
		if err != nil {
			return nil, core.Translations{}, err
		}
		schemas = loaded
	}

	text := core.DefaultTranslations()
	if cfg.TranslationsFile != "" {
		t, err := schema.LoadTranslations(cfg.TranslationsFile)
		if err != nil {
			return nil, core.Translations{}, err
		}
		text = t
	}
	return schemas, text, nil
}

// openDestination connects the configured sink. A nil sink means
// submissions are not written anywhere.
func openDestination(ctx context.Context, cfg config.DestinationConfig) (tableCreator, func(), error) {
	switch cfg.Driver {
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse database URL: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.MaxConns)
		poolConfig.MinConns = int32(cfg.MinConns)
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		if u, err := url.Parse(cfg.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
		return store.NewPostgresSink(pool, slog.Default()), pool.Close, nil

	case "sqlite":
		sink, err := store.OpenSQLite(cfg.URL, slog.Default())
		if err != nil {
			return nil, nil, err
		}
		slog.Info("opened sqlite destination", "path", cfg.URL)
		return sink, func() { sink.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
