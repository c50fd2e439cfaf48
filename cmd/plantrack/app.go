package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpggio/plantrack/internal/backup"
	"github.com/rpggio/plantrack/internal/config"
	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/domain/project"
	"github.com/rpggio/plantrack/internal/events"
	"github.com/rpggio/plantrack/internal/persist"
	"github.com/rpggio/plantrack/internal/postgres"
	"github.com/rpggio/plantrack/internal/repository"
	"github.com/rpggio/plantrack/internal/sqlite"
)

// app holds the wired services shared by every command.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	kv         repository.KVStore
	changeRepo repository.ChangeRepository
	projects   *project.Service
	changes    *changelog.Service
	backups    *backup.Service
	closers    []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// newLogger builds the text logger. Stdio mode logs to stderr to keep stdout
// clean for JSON-RPC.
func newLogger(cfg config.Config) (*slog.Logger, io.Closer) {
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	var closer io.Closer
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			closer = file
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return logger, closer
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newApp loads configuration and wires storage, change log and services.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger, logCloser := newLogger(cfg)
	a := &app{cfg: cfg, logger: logger}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	kv, changeRepo, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.kv, a.changeRepo = kv, changeRepo
	a.changes = changelog.NewService(changeRepo, logger)

	gateway := persist.NewGateway(kv, logger)
	store, err := project.LoadStore(ctx, gateway)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.projects = project.NewService(store, gateway, logger,
		project.WithReferenceYear(cfg.Calendar.ReferenceYear),
		project.WithChangeRecorder(a.changes),
	)

	archive, err := openArchive(ctx, cfg.Backup)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backups = backup.NewService(a.projects, archive, logger)
	return a, nil
}

// startChangeFeed publishes logged changes to Kafka from a background
// dispatcher when brokers are configured.
func (a *app) startChangeFeed(ctx context.Context) error {
	cfg := a.cfg.Events
	if len(cfg.Brokers) == 0 {
		return nil
	}
	pub := events.NewPublisher(cfg.Brokers, cfg.Topic)
	a.closers = append(a.closers, pub)
	dispatcher := events.NewDispatcher(a.changeRepo, a.kv, pub, events.DispatcherConfig{
		PollInterval:   cfg.PollInterval,
		PublishTimeout: cfg.PublishTimeout,
	}, a.logger)
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("start change feed: %w", err)
	}
	a.closers = append(a.closers, dispatcher)
	a.logger.Info("publishing changes", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return nil
}

func (a *app) openStore(ctx context.Context) (repository.KVStore, repository.ChangeRepository, error) {
	switch a.cfg.Store.Driver {
	case "postgres":
		store, err := postgres.Open(ctx, a.cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, store)
		return store, store, nil
	default:
		path := a.cfg.Store.Path
		if a.cfg.Store.Driver == "memory" {
			path = ":memory:"
		}
		if err := ensureDir(path); err != nil {
			return nil, nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(path)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db)
		if err := db.RunMigrations(); err != nil {
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		return sqlite.NewKVRepository(db), sqlite.NewChangeRepository(db), nil
	}
}

func openArchive(ctx context.Context, cfg config.BackupConfig) (backup.Archive, error) {
	if cfg.Driver == "s3" {
		return backup.NewS3Archive(ctx, backup.S3Config{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PathStyle:       cfg.S3.PathStyle,
		})
	}
	return backup.NewDirArchive(cfg.Dir)
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
