package ride_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmcgrath10/cyclora/internal/ride"
)

func TestService_Migrate(t *testing.T) {
	t.Run("moves old rides and keeps recent ones", func(t *testing.T) {
		f := newFixture(t)
		oldID := f.saveAged(t, 30*time.Hour)
		recentID := f.saveAged(t, time.Hour)

		res := f.svc.Migrate(context.Background())
		if res.Outcome != ride.MigrationCompleted {
			t.Fatalf("Migrate() outcome = %v, want completed", res.Outcome)
		}
		if res.Uploaded != 1 || res.Deleted != 1 {
			t.Errorf("Migrate() uploaded=%d deleted=%d, want 1/1", res.Uploaded, res.Deleted)
		}
		if !f.remote.Has(oldID) {
			t.Error("old ride not uploaded")
		}
		if f.local.Has(oldID) {
			t.Error("old ride still local after migration")
		}
		if !f.local.Has(recentID) || f.remote.Has(recentID) {
			t.Error("recent ride moved tiers")
		}
	})

	t.Run("nothing old is a completed no-op", func(t *testing.T) {
		f := newFixture(t)
		f.saveAged(t, time.Hour)

		res := f.svc.Migrate(context.Background())
		if res.Outcome != ride.MigrationCompleted || res.Uploaded != 0 {
			t.Errorf("Migrate() = %+v, want completed with no uploads", res)
		}
		if f.remote.InsertManyCalls != 0 {
			t.Errorf("InsertMany called %d times, want 0", f.remote.InsertManyCalls)
		}
	})

	t.Run("upload failure leaves local tier untouched", func(t *testing.T) {
		f := newFixture(t)
		ids := []string{
			f.saveAged(t, 30*time.Hour),
			f.saveAged(t, 40*time.Hour),
			f.saveAged(t, 50*time.Hour),
		}
		f.remote.InsertManyErr = ride.RemoteFault(errors.New("offline"))

		res := f.svc.Migrate(context.Background())
		if res.Outcome != ride.MigrationFailed {
			t.Fatalf("Migrate() outcome = %v, want failed", res.Outcome)
		}
		for _, id := range ids {
			if !f.local.Has(id) {
				t.Errorf("ride %s missing from local tier after failed upload", id)
			}
		}
		if f.remote.Count() != 0 {
			t.Errorf("remote rides = %d, want 0", f.remote.Count())
		}
	})

	t.Run("concurrent pass is skipped with no second upload", func(t *testing.T) {
		f := newFixture(t)
		f.saveAged(t, 30*time.Hour)

		f.remote.InsertManyEntered = make(chan struct{}, 1)
		f.remote.InsertManyBlock = make(chan struct{})

		first := make(chan ride.MigrationResult, 1)
		go func() {
			first <- f.svc.Migrate(context.Background())
		}()

		<-f.remote.InsertManyEntered // first pass is now mid-upload

		second := f.svc.Migrate(context.Background())
		if second.Outcome != ride.MigrationSkipped {
			t.Errorf("second Migrate() outcome = %v, want skipped", second.Outcome)
		}

		close(f.remote.InsertManyBlock)
		res := <-first
		if res.Outcome != ride.MigrationCompleted {
			t.Fatalf("first Migrate() outcome = %v, want completed", res.Outcome)
		}
		if f.remote.InsertManyCalls != 1 {
			t.Errorf("InsertMany called %d times, want 1", f.remote.InsertManyCalls)
		}
	})

	t.Run("failed local delete leaves a duplicate and completes", func(t *testing.T) {
		f := newFixture(t)
		id := f.saveAged(t, 30*time.Hour)
		f.local.DeleteErr = ride.LocalFault(errors.New("busy"))

		res := f.svc.Migrate(context.Background())
		if res.Outcome != ride.MigrationCompleted {
			t.Fatalf("Migrate() outcome = %v, want completed", res.Outcome)
		}
		if res.Uploaded != 1 || res.Deleted != 0 {
			t.Errorf("uploaded=%d deleted=%d, want 1/0", res.Uploaded, res.Deleted)
		}
		if !f.local.Has(id) || !f.remote.Has(id) {
			t.Error("expected a temporary duplicate in both tiers")
		}

		// Next pass re-uploads (upsert) and retries the delete.
		f.local.DeleteErr = nil
		res = f.svc.Migrate(context.Background())
		if res.Deleted != 1 {
			t.Errorf("retry pass deleted=%d, want 1", res.Deleted)
		}
		if f.local.Has(id) {
			t.Error("duplicate survived the retry pass")
		}
	})

	t.Run("flag is released after a failed pass", func(t *testing.T) {
		f := newFixture(t)
		f.saveAged(t, 30*time.Hour)
		f.remote.InsertManyErr = ride.RemoteFault(errors.New("offline"))

		if res := f.svc.Migrate(context.Background()); res.Outcome != ride.MigrationFailed {
			t.Fatalf("first Migrate() outcome = %v, want failed", res.Outcome)
		}

		f.remote.InsertManyErr = nil
		if res := f.svc.Migrate(context.Background()); res.Outcome != ride.MigrationCompleted {
			t.Errorf("second Migrate() outcome = %v, want completed", res.Outcome)
		}
	})
}

func TestService_ForceFullMigration(t *testing.T) {
	t.Run("uploads everything, deletes only the old subset", func(t *testing.T) {
		f := newFixture(t)
		oldID := f.saveAged(t, 30*time.Hour)
		recentID := f.saveAged(t, time.Hour)

		count, err := f.svc.ForceFullMigration(context.Background())
		if err != nil {
			t.Fatalf("ForceFullMigration() error = %v", err)
		}
		if count != 2 {
			t.Errorf("uploaded count = %d, want 2", count)
		}
		if !f.remote.Has(oldID) || !f.remote.Has(recentID) {
			t.Error("both rides should be archived")
		}
		if f.local.Has(oldID) {
			t.Error("old ride should be gone locally")
		}
		if !f.local.Has(recentID) {
			t.Error("recent ride should remain local")
		}

		report := f.svc.CheckIntegrity(context.Background())
		if report.LocalCount != 1 || report.OldLocalCount != 0 {
			t.Errorf("integrity = local %d / old %d, want 1/0",
				report.LocalCount, report.OldLocalCount)
		}
	})

	t.Run("empty local tier uploads nothing", func(t *testing.T) {
		f := newFixture(t)
		count, err := f.svc.ForceFullMigration(context.Background())
		if err != nil {
			t.Fatalf("ForceFullMigration() error = %v", err)
		}
		if count != 0 {
			t.Errorf("uploaded count = %d, want 0", count)
		}
	})

	t.Run("rejects re-entry while a pass is running", func(t *testing.T) {
		f := newFixture(t)
		f.saveAged(t, 30*time.Hour)

		f.remote.InsertManyEntered = make(chan struct{}, 1)
		f.remote.InsertManyBlock = make(chan struct{})

		done := make(chan error, 1)
		go func() {
			_, err := f.svc.ForceFullMigration(context.Background())
			done <- err
		}()

		<-f.remote.InsertManyEntered

		if _, err := f.svc.ForceFullMigration(context.Background()); !errors.Is(err, ride.ErrMigrationInProgress) {
			t.Errorf("concurrent ForceFullMigration() error = %v, want ErrMigrationInProgress", err)
		}

		close(f.remote.InsertManyBlock)
		if err := <-done; err != nil {
			t.Fatalf("first ForceFullMigration() error = %v", err)
		}
	})

	t.Run("upload failure propagates and deletes nothing", func(t *testing.T) {
		f := newFixture(t)
		id := f.saveAged(t, 30*time.Hour)
		f.remote.InsertManyErr = ride.RemoteFault(errors.New("offline"))

		if _, err := f.svc.ForceFullMigration(context.Background()); err == nil {
			t.Fatal("ForceFullMigration() expected error")
		}
		if !f.local.Has(id) {
			t.Error("ride removed locally despite failed upload")
		}
	})
}
