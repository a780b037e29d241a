package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int32
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// EventPublisher delivers one event to the real-time channel.
type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// Worker polls the outbox table and relays unsent events to the publisher.
type Worker struct {
	db        *sql.DB
	publisher EventPublisher
	config    Config
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(database *sql.DB, publisher EventPublisher, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		db:        database,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("outbox worker started",
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Int("batch_size", int(w.config.BatchSize)))

	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	w.logger.Info("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	txn, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		w.logger.Error("failed to begin transaction", slog.String("error", err.Error()))
		return
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback()
		}
	}()

	events, err := fetchUnsent(ctx, txn, w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to fetch unsent events", slog.String("error", err.Error()))
		return
	}

	if len(events) == 0 {
		_ = txn.Rollback()
		return
	}

	w.logger.Debug("processing outbox events", slog.Int("count", len(events)))

	var successfulIDs []uuid.UUID
	for _, event := range events {
		if err := w.publishWithRetry(ctx, event); err != nil {
			w.logger.Error("failed to publish event",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.String("error", err.Error()))
			continue
		}
		successfulIDs = append(successfulIDs, event.ID)
	}

	if len(successfulIDs) > 0 {
		if err = markSent(ctx, txn, successfulIDs); err != nil {
			w.logger.Error("failed to mark events as sent", slog.String("error", err.Error()))
			return
		}
	}

	if err = txn.Commit(); err != nil {
		w.logger.Error("failed to commit transaction", slog.String("error", err.Error()))
		return
	}

	w.logger.Info("processed outbox events",
		slog.Int("total", len(events)),
		slog.Int("successful", len(successfulIDs)))
}

func (w *Worker) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := w.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			w.logger.Warn("failed to publish event, retrying",
				slog.String("event_id", event.ID.String()),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))
			continue
		}

		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", w.config.MaxRetries+1, lastErr)
}

// fetchUnsent locks a batch of undelivered rows so concurrent workers skip
// over each other instead of double-publishing.
func fetchUnsent(ctx context.Context, txn *sql.Tx, limit int32) ([]OutboxEvent, error) {
	const query = `SELECT id, league_id, topic, event_type, payload, created_at
		FROM auction_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	rows, err := txn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(&event.ID, &event.LeagueID, &event.Topic, &event.EventType, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func markSent(ctx context.Context, txn *sql.Tx, ids []uuid.UUID) error {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	_, err := txn.ExecContext(ctx,
		`UPDATE auction_outbox SET sent_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(strIDs))
	return err
}
