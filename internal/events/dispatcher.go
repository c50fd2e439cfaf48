package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rpggio/plantrack/internal/domain/changelog"
	"github.com/rpggio/plantrack/internal/repository"
)

// CursorKey holds the id of the last change entry delivered to the feed.
const CursorKey = "events-cursor"

const defaultBatchSize = 100

// ChangeSource reads logged change entries.
type ChangeSource interface {
	List(ctx context.Context, opts changelog.ListOptions) ([]changelog.Entry, error)
	Since(ctx context.Context, afterID int64, limit int) ([]changelog.Entry, error)
}

// DispatcherConfig tunes the polling loop.
type DispatcherConfig struct {
	PollInterval   time.Duration
	PublishTimeout time.Duration
	BatchSize      int
}

// Dispatcher drains the change log and delivers entries to a publisher in
// id order, off the mutation path. Delivery is at least once: the cursor is
// saved after entries are published.
type Dispatcher struct {
	source    ChangeSource
	cursor    repository.KVStore
	publisher changelog.Publisher
	cfg       DispatcherConfig
	logger    *slog.Logger

	last   int64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher constructs a Dispatcher. The cursor is kept in kv.
func NewDispatcher(source ChangeSource, kv repository.KVStore, publisher changelog.Publisher, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Dispatcher{
		source:    source,
		cursor:    kv,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start loads the cursor and launches the polling loop. Without a saved
// cursor the feed starts after the newest existing entry.
func (d *Dispatcher) Start(ctx context.Context) error {
	last, err := d.loadCursor(ctx)
	if err != nil {
		return err
	}
	d.last = last
	d.logger.Info("change feed dispatcher started", "cursor", last, "poll_interval", d.cfg.PollInterval)

	ctx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))
	go d.run(ctx)
	return nil
}

// Close stops the loop, interrupting an in-flight publish, and waits for it
// to exit.
func (d *Dispatcher) Close() error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	<-d.done
	return nil
}

func (d *Dispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer func() {
		ticker.Stop()
		close(d.done)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Warn("change feed dispatch failed", "cursor", d.last, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// processBatch publishes pending entries and stops at the first failure so
// the next pass retries it in order.
func (d *Dispatcher) processBatch(ctx context.Context) error {
	entries, err := d.source.Since(ctx, d.last, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("read changes: %w", err)
	}

	delivered := d.last
	var pubErr error
	for _, entry := range entries {
		pubCtx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
		err := d.publisher.Publish(pubCtx, entry)
		cancel()
		if err != nil {
			pubErr = fmt.Errorf("publish change %d: %w", entry.ID, err)
			break
		}
		delivered = entry.ID
	}

	if delivered != d.last {
		d.last = delivered
		if err := d.saveCursor(context.WithoutCancel(ctx), delivered); err != nil {
			return errors.Join(pubErr, err)
		}
	}
	return pubErr
}

func (d *Dispatcher) loadCursor(ctx context.Context) (int64, error) {
	data, err := d.cursor.Get(ctx, CursorKey)
	if err == nil {
		id, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse change feed cursor %q: %w", data, err)
		}
		return id, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("load change feed cursor: %w", err)
	}

	newest, err := d.source.List(ctx, changelog.ListOptions{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("read newest change: %w", err)
	}
	var last int64
	if len(newest) > 0 {
		last = newest[0].ID
	}
	if err := d.saveCursor(ctx, last); err != nil {
		return 0, err
	}
	return last, nil
}

func (d *Dispatcher) saveCursor(ctx context.Context, id int64) error {
	if err := d.cursor.Put(ctx, CursorKey, []byte(strconv.FormatInt(id, 10))); err != nil {
		return fmt.Errorf("save change feed cursor: %w", err)
	}
	return nil
}
