package models

import "testing"

func TestCreative_TrackingAssetsLiftedSeparately(t *testing.T) {
	c := Creative{
		Assets: map[string]Asset{
			"image":                     {URL: "https://cdn.example.com/a.png"},
			"impression_tracker_primary": {URL: "https://track.example.com/imp"},
		},
	}

	tracking := c.TrackingAssets()
	if len(tracking) != 1 {
		t.Fatalf("expected 1 tracking asset, got %d", len(tracking))
	}
	if _, ok := tracking["impression_tracker_primary"]; !ok {
		t.Fatal("expected impression_tracker_primary in tracking assets")
	}

	render := c.RenderAssets()
	if len(render) != 1 {
		t.Fatalf("expected 1 render asset, got %d", len(render))
	}
	if _, ok := render["impression_tracker_primary"]; ok {
		t.Fatal("tracking asset must not appear among render assets")
	}
}
