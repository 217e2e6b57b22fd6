package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultBatchSize    = 100

	// MaxDispatchAttempts is how often an undeliverable event is retried
	// before it stays in the table for inspection only.
	MaxDispatchAttempts = 5
)

var errInvalidEvent = errors.New("outbox event has no rooms or invalid payload")

// Dispatcher drains the outbox into the hub.
type Dispatcher struct {
	repos    *repository.Repositories
	hub      *Hub
	logger   *slog.Logger
	interval time.Duration
	batch    int
	now      func() time.Time

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewDispatcher(repos *repository.Repositories, hub *Hub, logger *slog.Logger, interval time.Duration, batch int) *Dispatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if batch <= 0 {
		batch = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repos:    repos,
		hub:      hub,
		logger:   logger,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Start launches the polling goroutine
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

// Stop signals the poller to stop and waits for it
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			d.logger.Info("outbox dispatcher stopping")
			return
		case <-ctx.Done():
			d.logger.Info("context canceled, outbox dispatcher exiting")
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("dispatch outbox", "err", err)
			}
		}
	}
}

// DispatchPending publishes one batch of pending events and returns how
// many were marked dispatched.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	outbox := d.repos.WithContext(ctx).Outbox

	events, err := outbox.FetchPending(d.batch, MaxDispatchAttempts)
	if err != nil {
		return 0, err
	}

	var done []uint64
	var markErrs []error
	for i := range events {
		event := &events[i]
		if err := d.publish(event); err != nil {
			d.logger.Warn("outbox event undeliverable", "id", event.ID, "event", event.Name, "attempts", event.Attempts+1, "err", err)
			if markErr := outbox.MarkFailed(event.ID, err); markErr != nil {
				markErrs = append(markErrs, fmt.Errorf("mark event %d failed: %w", event.ID, markErr))
			}
			continue
		}
		done = append(done, event.ID)
	}

	// Published events are stamped even when a failure could not be
	// recorded, so they are not delivered twice.
	if err := outbox.MarkDispatched(done, d.now()); err != nil {
		return 0, err
	}
	return len(done), errors.Join(markErrs...)
}

func (d *Dispatcher) publish(event *models.OutboxEvent) error {
	if len(event.Rooms) == 0 || !json.Valid(event.Payload) {
		return errInvalidEvent
	}
	delivered := d.hub.Publish(Event{Name: event.Name, Data: json.RawMessage(event.Payload)}, event.Rooms...)
	d.logger.Debug("outbox event published", "id", event.ID, "event", event.Name, "rooms", []string(event.Rooms), "peers", delivered)
	return nil
}
