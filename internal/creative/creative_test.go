package creative

import (
	"testing"
	"time"

	"github.com/advelops/adcp-salesagent/internal/models"
)

func TestBuildDeliverySettings_LiftsTrackingURLs(t *testing.T) {
	c := models.Creative{
		Assets: map[string]models.Asset{
			"image":                      {URL: "https://cdn.example.com/a.png"},
			"impression_tracker_primary": {URL: "https://track.example.com/imp"},
		},
	}

	settings := BuildDeliverySettings(c)
	if len(settings.TrackingURLs.Impression) != 1 {
		t.Fatalf("expected 1 impression tracking URL, got %d", len(settings.TrackingURLs.Impression))
	}
	if settings.TrackingURLs.Impression[0] != "https://track.example.com/imp" {
		t.Fatalf("unexpected tracking URL: %s", settings.TrackingURLs.Impression[0])
	}
}

func TestBuildDeliverySettings_OrdersTrackingURLsByAssetKey(t *testing.T) {
	c := models.Creative{
		Assets: map[string]models.Asset{
			"impression_tracker_2": {URL: "https://t/2"},
			"impression_tracker_1": {URL: "https://t/1"},
		},
	}

	settings := BuildDeliverySettings(c)
	want := []string{"https://t/1", "https://t/2"}
	if len(settings.TrackingURLs.Impression) != len(want) {
		t.Fatalf("expected %d impression tracking URLs, got %d", len(want), len(settings.TrackingURLs.Impression))
	}
	for i, url := range want {
		if settings.TrackingURLs.Impression[i] != url {
			t.Fatalf("unexpected tracking URL order: got %v, want %v", settings.TrackingURLs.Impression, want)
		}
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	fresh := models.Creative{Status: models.CreativeStatusPendingReview, CreatedAt: now.Add(-1 * time.Hour)}
	stale := models.Creative{Status: models.CreativeStatusPendingReview, CreatedAt: now.Add(-48 * time.Hour)}
	approved := models.Creative{Status: models.CreativeStatusApproved, CreatedAt: now.Add(-48 * time.Hour)}

	if IsOverdue(fresh, now) {
		t.Fatal("expected fresh pending_review creative not to be overdue")
	}
	if !IsOverdue(stale, now) {
		t.Fatal("expected stale pending_review creative to be overdue")
	}
	if IsOverdue(approved, now) {
		t.Fatal("expected approved creative never to be overdue")
	}
}
