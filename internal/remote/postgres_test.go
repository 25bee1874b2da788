package remote

import (
	"testing"
	"time"

	"github.com/danmcgrath10/cyclora/internal/model"
)

func ridesAt(times ...time.Time) []*model.Ride {
	out := make([]*model.Ride, len(times))
	for i, ts := range times {
		out[i] = &model.Ride{ID: string(rune('a' + i)), Timestamp: ts}
	}
	return out
}

func TestBuildPage(t *testing.T) {
	base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	stamps := make([]time.Time, 0, 11)
	for i := 0; i < 11; i++ {
		stamps = append(stamps, base.Add(-time.Duration(i)*time.Minute))
	}

	t.Run("full page with more remaining", func(t *testing.T) {
		// The query probes with pageSize+1; here all 11 probe rows matched.
		page := buildPage(ridesAt(stamps...), 10, 30)

		if len(page.Rides) != 10 {
			t.Fatalf("len(Rides) = %d, want 10", len(page.Rides))
		}
		if !page.HasMore {
			t.Error("HasMore = false, want true")
		}
		if page.NextCursor == nil || !page.NextCursor.Equal(stamps[9]) {
			t.Errorf("NextCursor = %v, want last returned row's timestamp %v", page.NextCursor, stamps[9])
		}
		if page.TotalCount != 30 {
			t.Errorf("TotalCount = %d, want 30", page.TotalCount)
		}
	})

	t.Run("final partial page", func(t *testing.T) {
		page := buildPage(ridesAt(stamps[:5]...), 10, 25)

		if len(page.Rides) != 5 {
			t.Fatalf("len(Rides) = %d, want 5", len(page.Rides))
		}
		if page.HasMore {
			t.Error("HasMore = true, want false")
		}
		if page.NextCursor != nil {
			t.Errorf("NextCursor = %v, want nil on the last page", page.NextCursor)
		}
	})

	t.Run("exactly a page boundary is not more", func(t *testing.T) {
		// Exactly pageSize rows matched: the probe found no extra row.
		page := buildPage(ridesAt(stamps[:10]...), 10, 10)

		if len(page.Rides) != 10 {
			t.Fatalf("len(Rides) = %d, want 10", len(page.Rides))
		}
		if page.HasMore {
			t.Error("HasMore = true, want false when exactly pageSize matched")
		}
		if page.NextCursor != nil {
			t.Errorf("NextCursor = %v, want nil", page.NextCursor)
		}
	})

	t.Run("empty archive", func(t *testing.T) {
		page := buildPage(nil, 10, 0)

		if len(page.Rides) != 0 || page.HasMore || page.NextCursor != nil {
			t.Errorf("page = %+v, want empty with no cursor", page)
		}
	})
}

func TestUpsertArgs(t *testing.T) {
	maxSpeed := 38.2
	summary := "coastal loop"
	ts := time.Date(2024, 1, 12, 7, 30, 0, 0, time.UTC)

	r := &model.Ride{
		ID:           "ride-1",
		Timestamp:    ts,
		Distance:     21.4,
		Duration:     3600,
		AverageSpeed: 21.4,
		MaxSpeed:     &maxSpeed,
		AISummary:    &summary,
		RoutePoints: []model.RoutePoint{
			{Latitude: 47.6, Longitude: -122.3, Timestamp: ts},
		},
	}

	args, err := upsertArgs(r, "user-42")
	if err != nil {
		t.Fatalf("upsertArgs() error = %v", err)
	}
	if len(args) != 11 {
		t.Fatalf("len(args) = %d, want 11", len(args))
	}
	if args[0] != "ride-1" || args[1] != "user-42" {
		t.Errorf("id/owner args = %v/%v, want ride-1/user-42", args[0], args[1])
	}
	if args[7] == nil {
		t.Error("route points arg is nil, want serialized blob")
	}

	t.Run("absent route points serialize as nil", func(t *testing.T) {
		bare := &model.Ride{ID: "ride-2", Timestamp: ts}
		args, err := upsertArgs(bare, "user-42")
		if err != nil {
			t.Fatalf("upsertArgs() error = %v", err)
		}
		if b, ok := args[7].([]byte); !ok || b != nil {
			t.Errorf("route points arg = %v, want nil slice", args[7])
		}
	})
}
