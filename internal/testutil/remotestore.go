package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/ride"
)

// FakeRemoteStore is an in-memory ride.RemoteStore implementing the real
// cursor-pagination contract: strict timestamp < cursor, hasMore iff more
// than pageSize rows matched, nextCursor = last returned row's timestamp.
// Error fields inject faults; the InsertMany gate lets concurrency tests
// hold an upload mid-flight.
type FakeRemoteStore struct {
	mu    sync.Mutex
	rides map[string]*model.Ride

	InsertManyErr error
	GetPageErr    error
	UpdateErr     error
	DeleteErr     error
	StatsErr      error

	InsertManyCalls int

	// When InsertManyEntered is non-nil, InsertMany sends on it after
	// recording the call; when InsertManyBlock is non-nil, it then waits
	// for the channel to be closed before proceeding.
	InsertManyEntered chan struct{}
	InsertManyBlock   chan struct{}
}

func NewFakeRemoteStore() *FakeRemoteStore {
	return &FakeRemoteStore{rides: make(map[string]*model.Ride)}
}

func (f *FakeRemoteStore) Insert(_ context.Context, r *model.Ride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rides[r.ID] = &cp
	return nil
}

func (f *FakeRemoteStore) InsertMany(_ context.Context, rides []*model.Ride) error {
	f.mu.Lock()
	f.InsertManyCalls++
	entered := f.InsertManyEntered
	block := f.InsertManyBlock
	err := f.InsertManyErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rides {
		cp := *r
		f.rides[r.ID] = &cp // upsert by id
	}
	return nil
}

func (f *FakeRemoteStore) GetPage(_ context.Context, cursor *time.Time, pageSize int) (*ride.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetPageErr != nil {
		return nil, f.GetPageErr
	}

	all := make([]*model.Ride, 0, len(f.rides))
	for _, r := range f.rides {
		cp := *r
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	matched := all
	if cursor != nil {
		matched = matched[:0:0]
		for _, r := range all {
			if r.Timestamp.Before(*cursor) {
				matched = append(matched, r)
			}
		}
	}

	page := &ride.Page{TotalCount: len(all)}
	page.HasMore = len(matched) > pageSize
	if page.HasMore {
		matched = matched[:pageSize]
		last := matched[len(matched)-1].Timestamp
		page.NextCursor = &last
	}
	page.Rides = matched
	return page, nil
}

func (f *FakeRemoteStore) UpdateSummary(_ context.Context, id string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	r, ok := f.rides[id]
	if !ok {
		return ride.ErrNotFound
	}
	r.AISummary = &text
	return nil
}

func (f *FakeRemoteStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.rides[id]; !ok {
		return ride.ErrNotFound
	}
	delete(f.rides, id)
	return nil
}

func (f *FakeRemoteStore) Stats(context.Context) (*model.RideStats, error) {
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

// Count returns the number of stored rides.
func (f *FakeRemoteStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rides)
}

// Has reports whether the id is stored.
func (f *FakeRemoteStore) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rides[id]
	return ok
}

// Get returns the stored ride or nil.
func (f *FakeRemoteStore) Get(id string) *model.Ride {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rides[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// Seed stores rides directly, bypassing the insert paths.
func (f *FakeRemoteStore) Seed(rides ...*model.Ride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rides {
		cp := *r
		f.rides[r.ID] = &cp
	}
}

var _ ride.RemoteStore = (*FakeRemoteStore)(nil)
