package summary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/danmcgrath10/cyclora/internal/model"
)

func TestBuildPrompt(t *testing.T) {
	maxSpeed := 41.5
	r := &model.Ride{
		Timestamp:    time.Date(2024, 1, 14, 8, 0, 0, 0, time.UTC),
		Distance:     32.6,
		Duration:     5400,
		AverageSpeed: 21.7,
		MaxSpeed:     &maxSpeed,
		RoutePoints: []model.RoutePoint{
			{Latitude: 47.6, Longitude: -122.3},
		},
	}

	prompt := buildPrompt(r)

	for _, want := range []string{"32.6 km", "1h30m0s", "21.7 km/h", "41.5 km/h", "Sunday, January 14 2024"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "47.6") {
		t.Error("prompt should not include route points")
	}
}

func TestBuildPrompt_NoMaxSpeed(t *testing.T) {
	r := &model.Ride{
		Timestamp:    time.Date(2024, 1, 14, 8, 0, 0, 0, time.UTC),
		Distance:     10,
		Duration:     1800,
		AverageSpeed: 20,
	}

	if strings.Contains(buildPrompt(r), "Max speed") {
		t.Error("prompt should omit max speed when absent")
	}
}

func TestNewGeminiGenerator_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewGeminiGenerator(ctx, "", "", 6); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewGeminiGenerator(ctx, "key", "", 0); err == nil {
		t.Error("expected error for non-positive rate")
	}
}
