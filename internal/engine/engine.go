// Package engine orchestrates one inbound position update: validate,
// cache, broadcast to the office room, gate the merchant room on
// delivery status, and hand the sample off to best-effort persistence.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/swiftdrop/courier-relay/internal/cache"
	"github.com/swiftdrop/courier-relay/internal/hub"
	"github.com/swiftdrop/courier-relay/internal/model"
	"github.com/swiftdrop/courier-relay/internal/upstream"
)

// StatusResolver looks up a package's delivery status. An error means
// "status unknown" and triggers the fallback policy.
type StatusResolver interface {
	PackageStatus(ctx context.Context, packageID int64) (string, error)
}

// PositionStore persists a position sample to the external durable
// store. Calls are dispatched fire-and-forget.
type PositionStore interface {
	StorePosition(ctx context.Context, pos model.Position) error
}

// Recorder is an optional local sink for position samples. Record must
// not block.
type Recorder interface {
	Record(pos model.Position) bool
}

// Engine is the broadcast orchestrator.
type Engine struct {
	cache    *cache.Cache
	hub      *hub.Hub
	resolver StatusResolver
	store    PositionStore
	recorder Recorder
	logger   *slog.Logger

	// Detached persistence goroutines, awaited bounded on Close.
	wg sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// Stats counts engine activity for the health endpoint.
type Stats struct {
	UpdatesAccepted   int64
	UpdatesRejected   int64
	MerchantPublishes int64
	StatusFallbacks   int64
	ForwardFailures   int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches the optional local history sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(c *cache.Cache, h *hub.Hub, resolver StatusResolver, store PositionStore, opts ...Option) *Engine {
	e := &Engine{
		cache:    c,
		hub:      h,
		resolver: resolver,
		store:    store,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// HandleUpdate processes one inbound position sample and returns the
// accepted sample (with a server-assigned timestamp when the input had
// none) for the caller to echo back.
//
// The office room publish is unconditional and happens before any
// upstream call, so no backend failure can starve the global feed.
func (e *Engine) HandleUpdate(ctx context.Context, pos model.Position) (model.Position, error) {
	if err := pos.Validate(); err != nil {
		e.mu.Lock()
		e.stats.UpdatesRejected++
		e.mu.Unlock()
		return model.Position{}, err
	}

	if pos.Timestamp == "" {
		pos.Timestamp = model.Now()
	}

	e.cache.Put(pos)

	payload, err := model.EncodeEvent(model.EventLocationUpdate, pos)
	if err != nil {
		// Position marshaling cannot realistically fail; treat as a
		// rejected update rather than broadcasting nothing silently.
		return model.Position{}, err
	}

	e.hub.Publish(hub.RoomAllCouriers, payload)

	if pos.PackageID != nil && e.eligible(ctx, *pos.PackageID) {
		e.hub.Publish(hub.PackageRoom(*pos.PackageID), payload)
		e.mu.Lock()
		e.stats.MerchantPublishes++
		e.mu.Unlock()
	}

	e.forward(pos)

	e.mu.Lock()
	e.stats.UpdatesAccepted++
	e.mu.Unlock()

	return pos, nil
}

// eligible decides whether the package's merchant room receives the
// update. An unknown status falls back to eligible: when the backend
// cannot prove the delivery is not in transit, merchant tracking keeps
// flowing. Stale positives beat dropped tracking.
func (e *Engine) eligible(ctx context.Context, packageID int64) bool {
	status, err := e.resolver.PackageStatus(ctx, packageID)
	if err != nil {
		e.logger.Warn("package status unknown, assuming in transit",
			"package_id", packageID,
			"error", err,
		)
		e.mu.Lock()
		e.stats.StatusFallbacks++
		e.mu.Unlock()
		return true
	}
	return status == upstream.StatusInTransit
}

// forward dispatches persistence without blocking the update path. The
// detached goroutine carries its own context: the store call must
// outlive the inbound request and is bounded by the client's own
// timeout. Failures are logged and dropped, never retried.
func (e *Engine) forward(pos model.Position) {
	if e.recorder != nil {
		if !e.recorder.Record(pos) {
			e.logger.Warn("history sink full, sample dropped", "courier_id", pos.CourierID)
		}
	}

	if e.store == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.store.StorePosition(context.Background(), pos); err != nil {
			e.logger.Warn("position store failed",
				"courier_id", pos.CourierID,
				"error", err,
			)
			e.mu.Lock()
			e.stats.ForwardFailures++
			e.mu.Unlock()
		}
	}()
}

// JoinOffice subscribes the session to the office room and sends it a
// one-time snapshot of every cached position so new viewers are not
// blind until the next update.
func (e *Engine) JoinOffice(s *hub.Session) error {
	e.hub.Join(s, hub.RoomAllCouriers)

	payload, err := model.EncodeEvent(model.EventLocationAll, e.cache.Snapshot())
	if err != nil {
		return err
	}
	s.Send(payload)
	return nil
}

// JoinMerchant subscribes the session to a package's room and sends the
// cached position for that package when one exists. No cached position
// is not an error; the viewer simply waits for the next update.
func (e *Engine) JoinMerchant(s *hub.Session, packageID int64) error {
	e.hub.Join(s, hub.PackageRoom(packageID))

	pos, ok := e.cache.FindByPackage(packageID)
	if !ok {
		return nil
	}

	payload, err := model.EncodeEvent(model.EventLocationUpdate, pos)
	if err != nil {
		return err
	}
	s.Send(payload)
	return nil
}

// JoinCourier registers the session as a courier's uplink. Registration
// is independent of position updates and triggers no broadcast.
func (e *Engine) JoinCourier(s *hub.Session, courierID int64) {
	e.hub.BindCourier(courierID, s)
}

// Stats returns a copy of the current counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Close waits for in-flight persistence goroutines, bounded by ctx.
func (e *Engine) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
