// Package history implements the optional local position-history sink:
// a batched, append-only writer of courier position samples to
// Postgres. The relay's real-time path never depends on it; a full
// buffer or a failed flush costs samples, not broadcasts.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swiftdrop/courier-relay/internal/model"
)

// Config holds history writer settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    5000,
	}
}

// Metrics counts writer activity.
type Metrics struct {
	Inserts int64
	Drops   int64
	Errors  int64
	Flushes int64
}

// positionRow is the database form of one sample.
type positionRow struct {
	CourierID  int64
	Latitude   float64
	Longitude  float64
	Speed      *float64
	Heading    *float64
	PackageID  *int64
	RecordedAt time.Time
}

// Writer consumes position samples and writes them in batches.
type Writer struct {
	cfg    Config
	logger *slog.Logger
	db     *pgxpool.Pool

	input chan model.Position

	batch       []positionRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewWriter creates a history writer.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.Position, cfg.BufferSize),
		batch:  make([]positionRow, 0, cfg.BatchSize),
	}
}

// Start ensures the schema exists and begins consuming samples.
func (w *Writer) Start(ctx context.Context) error {
	if err := w.ensureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("history writer stopped")
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Record enqueues a sample without blocking. Returns false when the
// buffer is full and the sample was dropped.
func (w *Writer) Record(pos model.Position) bool {
	select {
	case w.input <- pos:
		return true
	default:
		w.batchMu.Lock()
		w.metrics.Drops++
		w.batchMu.Unlock()
		return false
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads samples and accumulates batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case pos := <-w.input:
			w.handleSample(pos)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleSample transforms and adds a sample to the batch.
func (w *Writer) handleSample(pos model.Position) {
	row := transform(pos)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a position sample to its database row.
func transform(pos model.Position) positionRow {
	recordedAt := pos.Time()
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return positionRow{
		CourierID:  pos.CourierID,
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		Speed:      pos.Speed,
		Heading:    pos.Heading,
		PackageID:  pos.PackageID,
		RecordedAt: recordedAt,
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]positionRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed position history",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (w *Writer) batchInsert(rows []positionRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO courier_positions (courier_id, latitude, longitude, speed, heading, package_id, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, r.CourierID, r.Latitude, r.Longitude, r.Speed, r.Heading, r.PackageID, r.RecordedAt)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}

// ensureSchema creates the history table and indexes when missing.
func (w *Writer) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS courier_positions (
			id BIGSERIAL PRIMARY KEY,
			courier_id BIGINT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			speed DOUBLE PRECISION,
			heading DOUBLE PRECISION,
			package_id BIGINT,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_courier_positions_courier_id ON courier_positions (courier_id)`,
		`CREATE INDEX IF NOT EXISTS idx_courier_positions_recorded_at ON courier_positions (recorded_at)`,
	}

	for _, stmt := range statements {
		if _, err := w.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
