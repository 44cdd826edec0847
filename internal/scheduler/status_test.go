package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/advelops/adcp-salesagent/internal/models"
)

func TestTargetStatus_PastEndTimeCompletes(t *testing.T) {
	s := &StatusScheduler{}
	buy := models.MediaBuy{
		Status:    models.MediaBuyStatusActive,
		StartTime: "2020-01-01T00:00:00Z",
		EndTime:   time.Now().Add(-time.Hour),
	}
	target, ok := s.targetStatus(context.Background(), buy, time.Now().UTC())
	if !ok || target != models.MediaBuyStatusCompleted {
		t.Fatalf("expected completed, got %q ok=%v", target, ok)
	}
}

func TestTargetStatus_ScheduledBecomesActiveAtStart(t *testing.T) {
	s := &StatusScheduler{}
	past := time.Now().Add(-time.Minute)
	buy := models.MediaBuy{
		Status:    models.MediaBuyStatusScheduled,
		StartTime: past.UTC().Format(time.RFC3339),
		EndTime:   time.Now().Add(time.Hour),
	}
	target, ok := s.targetStatus(context.Background(), buy, time.Now().UTC())
	if !ok || target != models.MediaBuyStatusActive {
		t.Fatalf("expected active, got %q ok=%v", target, ok)
	}
}

func TestTargetStatus_ScheduledNotYetStartedNoChange(t *testing.T) {
	s := &StatusScheduler{}
	future := time.Now().Add(time.Hour)
	buy := models.MediaBuy{
		Status:    models.MediaBuyStatusScheduled,
		StartTime: future.UTC().Format(time.RFC3339),
		EndTime:   time.Now().Add(2 * time.Hour),
	}
	_, ok := s.targetStatus(context.Background(), buy, time.Now().UTC())
	if ok {
		t.Fatal("expected no transition before start_time")
	}
}

func TestStartTime_AsapIsAlreadyElapsed(t *testing.T) {
	s := &StatusScheduler{}
	now := time.Now().UTC()
	buy := models.MediaBuy{StartTime: models.AsapStartTime}
	got, ok := s.startTime(buy, now)
	if !ok || !got.Equal(now) {
		t.Fatalf("expected asap to resolve to now, got %v ok=%v", got, ok)
	}
}
