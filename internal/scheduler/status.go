package scheduler

import (
	"context"
	"time"

	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
	"github.com/advelops/adcp-salesagent/internal/observability"
	"go.uber.org/zap"
)

// statusCandidates are the media-buy statuses the status scheduler
// reconsiders on every tick.
var statusCandidates = []string{
	models.MediaBuyStatusPendingActivation,
	models.MediaBuyStatusScheduled,
	models.MediaBuyStatusActive,
}

// StatusScheduler periodically recomputes media-buy status transitions:
// pending_activation/scheduled -> active, and any of pending_activation,
// scheduled or active -> completed once past end_time.
type StatusScheduler struct {
	store   *db.Postgres
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewStatusScheduler builds a StatusScheduler.
func NewStatusScheduler(store *db.Postgres, logger *zap.Logger, metrics observability.MetricsRegistry) *StatusScheduler {
	return &StatusScheduler{store: store, logger: logger, metrics: metrics}
}

// Tick runs one pass over all candidate media buys, committing each
// transition independently so a single bad record can't block the rest.
func (s *StatusScheduler) Tick(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.IncrementSchedulerTick("media_buy_status")
	}

	buys, err := s.store.LoadMediaBuysByStatus(ctx, statusCandidates)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementSchedulerTickError("media_buy_status")
		}
		return err
	}

	now := time.Now().UTC()
	for _, buy := range buys {
		target, ok := s.targetStatus(ctx, buy, now)
		if !ok || target == buy.Status {
			continue
		}
		if err := s.store.UpdateMediaBuyStatus(ctx, buy.TenantID, buy.MediaBuyID, target); err != nil {
			s.logf("transition %s to %s: %v", buy.MediaBuyID, target, err)
			continue
		}
		if s.metrics != nil {
			s.metrics.IncrementMediaBuyStatusTransition(buy.Status, target)
		}
	}
	return nil
}

// targetStatus implements the §4.8 transition rule for one media buy.
// Backward transitions never occur here; pause is an explicit buyer action
// handled by update_media_buy, not the scheduler.
func (s *StatusScheduler) targetStatus(ctx context.Context, buy models.MediaBuy, now time.Time) (string, bool) {
	endTime := buy.EndTime.UTC()
	if now.After(endTime) {
		return models.MediaBuyStatusCompleted, true
	}

	startTime, started := s.startTime(buy, now)
	if !started || now.Before(startTime) {
		return "", false
	}

	switch buy.Status {
	case models.MediaBuyStatusScheduled:
		return models.MediaBuyStatusActive, true
	case models.MediaBuyStatusPendingActivation:
		ready, err := s.allCreativesApproved(ctx, buy)
		if err != nil {
			s.logf("check creative approval for %s: %v", buy.MediaBuyID, err)
			return "", false
		}
		if !ready {
			return "", false
		}
		return models.MediaBuyStatusActive, true
	default:
		return "", false
	}
}

// startTime resolves a media buy's effective start instant. An "asap"
// start is treated as already elapsed.
func (s *StatusScheduler) startTime(buy models.MediaBuy, now time.Time) (time.Time, bool) {
	if buy.IsAsapStart() {
		return now, true
	}
	t, err := time.Parse(time.RFC3339, buy.StartTime)
	if err != nil {
		s.logf("parse start_time for %s: %v", buy.MediaBuyID, err)
		return time.Time{}, false
	}
	return t.UTC(), true
}

// allCreativesApproved reports whether every creative assigned to buy is
// approved; an empty assignment list counts as ready.
func (s *StatusScheduler) allCreativesApproved(ctx context.Context, buy models.MediaBuy) (bool, error) {
	statuses, err := s.store.LoadCreativeAssignmentStatuses(ctx, buy.TenantID, buy.MediaBuyID)
	if err != nil {
		return false, err
	}
	for _, status := range statuses {
		if status != models.CreativeStatusApproved {
			return false, nil
		}
	}
	return true, nil
}

func (s *StatusScheduler) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Sugar().Warnf(format, args...)
}
