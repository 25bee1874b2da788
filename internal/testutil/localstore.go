package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/ride"
)

// FakeLocalStore is an in-memory ride.LocalStore. Errors assigned to the
// exported fields are returned by the corresponding operations, which lets
// tests inject faults per call site.
type FakeLocalStore struct {
	mu    sync.Mutex
	rides map[string]*model.Ride
	ids   *StubIDGenerator
	clock ride.Clock

	InitErr   error
	InsertErr error
	GetAllErr error
	DeleteErr error
	StatsErr  error

	InitCalls int
}

// NewFakeLocalStore creates an empty fake local store. The clock stamps
// CreatedAt/UpdatedAt on insert.
func NewFakeLocalStore(clock ride.Clock) *FakeLocalStore {
	return &FakeLocalStore{
		rides: make(map[string]*model.Ride),
		ids:   NewStubIDGenerator(),
		clock: clock,
	}
}

func (f *FakeLocalStore) Init(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InitCalls++
	return f.InitErr
}

func (f *FakeLocalStore) Insert(_ context.Context, draft model.RideDraft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return "", f.InsertErr
	}

	now := f.clock.Now()
	r := &model.Ride{
		ID:           f.ids.New(),
		Timestamp:    draft.Timestamp,
		Distance:     draft.Distance,
		Duration:     draft.Duration,
		AverageSpeed: draft.AverageSpeed,
		MaxSpeed:     draft.MaxSpeed,
		RoutePoints:  draft.RoutePoints,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.rides[r.ID] = r
	return r.ID, nil
}

func (f *FakeLocalStore) GetAll(context.Context) ([]*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetAllErr != nil {
		return nil, f.GetAllErr
	}

	out := make([]*model.Ride, 0, len(f.rides))
	for _, r := range f.rides {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (f *FakeLocalStore) GetByID(_ context.Context, id string) (*model.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[id]
	if !ok {
		return nil, ride.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *FakeLocalStore) UpdateSummary(_ context.Context, id string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[id]
	if !ok {
		return ride.ErrNotFound
	}
	r.AISummary = &text
	r.UpdatedAt = f.clock.Now()
	return nil
}

func (f *FakeLocalStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.rides, id)
	return nil
}

func (f *FakeLocalStore) Stats(context.Context) (*model.RideStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatsErr != nil {
		return nil, f.StatsErr
	}

	stats := &model.RideStats{}
	for _, r := range f.rides {
		stats.Count++
		stats.TotalDistance += r.Distance
		stats.TotalDuration += r.Duration
	}
	return stats, nil
}

func (f *FakeLocalStore) Close() error { return nil }

// Count returns the number of stored rides.
func (f *FakeLocalStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rides)
}

// Has reports whether the id is stored.
func (f *FakeLocalStore) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rides[id]
	return ok
}

var _ ride.LocalStore = (*FakeLocalStore)(nil)
