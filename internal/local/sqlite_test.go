package local_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmcgrath10/cyclora/internal/local"
	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/ride"
	"github.com/danmcgrath10/cyclora/internal/testutil"
)

func newTestStore(t *testing.T) *local.SQLiteStore {
	t.Helper()
	store, err := local.NewSQLiteStore(":memory:", testutil.FixedClock(), testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return store
}

func draftAt(ts time.Time) model.RideDraft {
	return model.RideDraft{
		Timestamp:    ts,
		Distance:     12.5,
		Duration:     2400,
		AverageSpeed: 18.75,
	}
}

func TestSQLiteStore_Init(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("second Init() error = %v", err)
		}
	})
}

func TestSQLiteStore_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns a fresh id and persists all fields", func(t *testing.T) {
		store := newTestStore(t)

		maxSpeed := 42.3
		draft := draftAt(time.Date(2024, 1, 14, 8, 0, 0, 0, time.UTC))
		draft.MaxSpeed = &maxSpeed
		draft.RoutePoints = []model.RoutePoint{
			{Latitude: 47.6, Longitude: -122.3, Timestamp: draft.Timestamp},
			{Latitude: 47.7, Longitude: -122.4, Timestamp: draft.Timestamp.Add(time.Minute)},
		}

		id, err := store.Insert(ctx, draft)
		if err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
		if id == "" {
			t.Fatal("Insert() returned empty id")
		}

		got, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.Distance != 12.5 || got.Duration != 2400 || got.AverageSpeed != 18.75 {
			t.Errorf("measurements = %v/%v/%v, want 12.5/2400/18.75",
				got.Distance, got.Duration, got.AverageSpeed)
		}
		if got.MaxSpeed == nil || *got.MaxSpeed != 42.3 {
			t.Errorf("MaxSpeed = %v, want 42.3", got.MaxSpeed)
		}
		if len(got.RoutePoints) != 2 {
			t.Errorf("RoutePoints = %d, want 2", len(got.RoutePoints))
		}
		if got.AISummary != nil {
			t.Errorf("AISummary = %v, want nil at creation", got.AISummary)
		}
	})

	t.Run("distinct ids per insert", func(t *testing.T) {
		store := newTestStore(t)
		a, _ := store.Insert(ctx, draftAt(time.Now()))
		b, _ := store.Insert(ctx, draftAt(time.Now()))
		if a == b {
			t.Errorf("two inserts shared id %s", a)
		}
	})
}

func TestSQLiteStore_GetAll(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by timestamp descending", func(t *testing.T) {
		store := newTestStore(t)

		base := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
		store.Insert(ctx, draftAt(base))
		store.Insert(ctx, draftAt(base.Add(2*time.Hour)))
		store.Insert(ctx, draftAt(base.Add(time.Hour)))

		rides, err := store.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if len(rides) != 3 {
			t.Fatalf("GetAll() = %d rides, want 3", len(rides))
		}
		for i := 1; i < len(rides); i++ {
			if rides[i].Timestamp.After(rides[i-1].Timestamp) {
				t.Errorf("rides out of order at index %d", i)
			}
		}
	})

	t.Run("corrupt route blob yields ride without points", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rides.db")
		store, err := local.NewSQLiteStore(path, testutil.FixedClock(), testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		defer store.Close()
		if err := store.Init(ctx); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		id, _ := store.Insert(ctx, draftAt(time.Now()))

		// Corrupt the stored blob through a second connection.
		db, err := local.OpenConnection(path)
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		defer db.Close()
		if _, err := db.Exec(`UPDATE rides SET route_points = 'not json' WHERE id = ?`, id); err != nil {
			t.Fatalf("corrupting blob: %v", err)
		}

		rides, err := store.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll() error = %v, want corrupt blob tolerated", err)
		}
		if len(rides) != 1 {
			t.Fatalf("GetAll() = %d rides, want 1", len(rides))
		}
		if rides[0].RoutePoints != nil {
			t.Errorf("RoutePoints = %v, want nil for corrupt blob", rides[0].RoutePoints)
		}
	})
}

func TestSQLiteStore_UpdateSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("sets the summary", func(t *testing.T) {
		store := newTestStore(t)
		id, _ := store.Insert(ctx, draftAt(time.Now()))

		if err := store.UpdateSummary(ctx, id, "tempo ride along the lake"); err != nil {
			t.Fatalf("UpdateSummary() error = %v", err)
		}

		got, _ := store.GetByID(ctx, id)
		if got.AISummary == nil || *got.AISummary != "tempo ride along the lake" {
			t.Errorf("AISummary = %v, want the stored text", got.AISummary)
		}
	})

	t.Run("absent id is not a silent no-op", func(t *testing.T) {
		store := newTestStore(t)
		err := store.UpdateSummary(ctx, "missing", "text")
		if !errors.Is(err, ride.ErrNotFound) {
			t.Errorf("UpdateSummary() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the ride", func(t *testing.T) {
		store := newTestStore(t)
		id, _ := store.Insert(ctx, draftAt(time.Now()))

		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.GetByID(ctx, id); !errors.Is(err, ride.ErrNotFound) {
			t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("non-existent id is not an error", func(t *testing.T) {
		store := newTestStore(t)
		if err := store.Delete(ctx, "missing"); err != nil {
			t.Errorf("Delete() error = %v, want nil", err)
		}
	})
}

func TestSQLiteStore_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates all rows", func(t *testing.T) {
		store := newTestStore(t)
		store.Insert(ctx, draftAt(time.Now()))
		store.Insert(ctx, draftAt(time.Now().Add(-time.Hour)))

		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.Count != 2 {
			t.Errorf("Count = %d, want 2", stats.Count)
		}
		if stats.TotalDistance != 25 {
			t.Errorf("TotalDistance = %v, want 25", stats.TotalDistance)
		}
		if stats.TotalDuration != 4800 {
			t.Errorf("TotalDuration = %v, want 4800", stats.TotalDuration)
		}
	})

	t.Run("empty store aggregates to zero", func(t *testing.T) {
		store := newTestStore(t)
		stats, err := store.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.Count != 0 || stats.TotalDistance != 0 || stats.TotalDuration != 0 {
			t.Errorf("Stats() = %+v, want zeroes", stats)
		}
	})
}
