package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Supervisor owns the two background scheduler loops (media-buy status,
// delivery webhook) as a single process-lifetime singleton. Start/Stop are
// idempotent under a lock; a double-start logs a warning rather than
// erroring, matching the cooperative-cancellation model the rest of the
// background work uses.
type Supervisor struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	status           *StatusScheduler
	delivery         *DeliveryScheduler
	statusInterval   time.Duration
	deliveryInterval time.Duration
	logger           *zap.Logger
}

// NewSupervisor builds a Supervisor over the given schedulers and tick
// intervals.
func NewSupervisor(status *StatusScheduler, delivery *DeliveryScheduler, statusInterval, deliveryInterval time.Duration, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		status:           status,
		delivery:         delivery,
		statusInterval:   statusInterval,
		deliveryInterval: deliveryInterval,
		logger:           logger,
	}
}

// Start launches both scheduler loops as goroutines. Calling Start while
// already running is a no-op that logs a warning.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logf("scheduler supervisor already running, ignoring duplicate start")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(2)
	go s.runLoop(runCtx, "media_buy_status", s.statusInterval, s.status.Tick)
	go s.runLoop(runCtx, "delivery_webhook", s.deliveryInterval, s.delivery.Tick)
}

// Stop cancels both loops and waits for them to exit. Calling Stop when not
// running is a no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
}

// Delivery exposes the delivery scheduler for the manual
// trigger_report_for_media_buy_by_id tool path, which bypasses the
// scheduler's own gating.
func (s *Supervisor) Delivery() *DeliveryScheduler {
	return s.delivery
}

func (s *Supervisor) runLoop(ctx context.Context, name string, interval time.Duration, tick func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// A startup tick runs immediately; dedup in the delivery scheduler and
	// idempotent transitions in the status scheduler make this safe.
	if err := tick(ctx); err != nil {
		s.logf("%s scheduler startup tick: %v", name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				s.logf("%s scheduler tick: %v", name, err)
			}
		}
	}
}

func (s *Supervisor) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Sugar().Warnf(format, args...)
}
