// Package session is the caller-facing state layer over the hybrid
// coordinator: it owns loading/sync dedup flags, the merged page the
// presentation layer renders, a notice side-channel for success/failure
// messages, and the save→summarize→attach composition.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danmcgrath10/cyclora/internal/model"
	"github.com/danmcgrath10/cyclora/internal/ride"
	"github.com/danmcgrath10/cyclora/internal/summary"
)

// NoticeLevel classifies a notice for presentation.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notice is a user-facing message emitted on the side-channel.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// View is a snapshot of the session's ride state. LocalOnly is set when
// the last load could not reach the archive and the view degraded to the
// local tier.
type View struct {
	LocalRides  []*model.Ride
	RemoteRides []*model.Ride
	HasMore     bool
	NextCursor  *time.Time
	TotalCount  int
	LocalOnly   bool
	Loading     bool
	Syncing     bool
}

// Session wraps the coordinator for a single presentation consumer.
// Methods are safe for concurrent use; overlapping loads and syncs are
// deduplicated rather than queued.
type Session struct {
	svc       *ride.Service
	generator summary.Generator
	logger    ride.Logger
	pageSize  int

	mu      sync.Mutex
	view    View
	notices chan Notice
}

// New creates a Session. pageSize <= 0 selects the coordinator default.
// A nil generator disables summary generation.
func New(svc *ride.Service, generator summary.Generator, logger ride.Logger, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = ride.DefaultPageSize
	}
	return &Session{
		svc:       svc,
		generator: generator,
		logger:    logger,
		pageSize:  pageSize,
		notices:   make(chan Notice, 16),
	}
}

// Notices returns the notice side-channel. Notices are dropped, not
// blocked on, when the consumer falls behind.
func (s *Session) Notices() <-chan Notice { return s.notices }

func (s *Session) notify(level NoticeLevel, msg string) {
	select {
	case s.notices <- Notice{Level: level, Message: msg}:
	default:
	}
}

// View returns a snapshot of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Load fetches the first unified page. A load already in flight makes
// this a no-op. When the archive is unreachable the view degrades to the
// local tier instead of failing: tracking must work fully offline.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	if s.view.Loading {
		s.mu.Unlock()
		return
	}
	s.view.Loading = true
	s.mu.Unlock()

	defer s.setLoading(false)

	page, err := s.svc.PaginatedRides(ctx, nil, s.pageSize)
	if err != nil {
		s.degradeToLocal(ctx, err)
		return
	}

	s.mu.Lock()
	s.view = View{
		LocalRides:  page.LocalRides,
		RemoteRides: page.RemoteRides,
		HasMore:     page.HasMoreRemote,
		NextCursor:  page.NextCursor,
		TotalCount:  page.TotalCount,
		Loading:     true, // cleared by the deferred setLoading
		Syncing:     s.view.Syncing,
	}
	s.mu.Unlock()
}

// LoadMore appends the next archive page. No-op when nothing more remains
// or a load is in flight.
func (s *Session) LoadMore(ctx context.Context) {
	s.mu.Lock()
	if s.view.Loading || !s.view.HasMore {
		s.mu.Unlock()
		return
	}
	cursor := s.view.NextCursor
	s.view.Loading = true
	s.mu.Unlock()

	defer s.setLoading(false)

	page, err := s.svc.PaginatedRides(ctx, cursor, s.pageSize)
	if err != nil {
		s.logger.Warn("loading more rides failed", "error", err)
		s.notify(NoticeError, "Could not load more rides.")
		return
	}

	s.mu.Lock()
	s.view.LocalRides = page.LocalRides
	s.view.RemoteRides = append(s.view.RemoteRides, page.RemoteRides...)
	s.view.HasMore = page.HasMoreRemote
	s.view.NextCursor = page.NextCursor
	s.view.TotalCount = page.TotalCount
	s.mu.Unlock()
}

// degradeToLocal falls back to a local-only view after a remote failure.
func (s *Session) degradeToLocal(ctx context.Context, cause error) {
	s.logger.Warn("archive unreachable, showing local rides only", "error", cause)
	s.notify(NoticeError, "Cloud archive unreachable. Showing recent rides only.")

	recent, err := s.svc.Recent(ctx)
	if err != nil {
		s.logger.Error("local rides unavailable", "error", err)
		s.notify(NoticeError, "Could not load rides.")
		return
	}

	s.mu.Lock()
	s.view = View{
		LocalRides: recent,
		TotalCount: len(recent),
		LocalOnly:  true,
		Loading:    true, // cleared by the caller's deferred setLoading
		Syncing:    s.view.Syncing,
	}
	s.mu.Unlock()
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.view.Loading = v
	s.mu.Unlock()
}

// SaveRide stores the draft, then generates and attaches the descriptive
// summary. The save is the operation that matters: a failed summary only
// produces a notice, never an error, and the ride stays saved.
func (s *Session) SaveRide(ctx context.Context, draft model.RideDraft) (string, error) {
	id, err := s.svc.Save(ctx, draft)
	if err != nil {
		s.notify(NoticeError, "Could not save ride.")
		return "", err
	}
	s.notify(NoticeInfo, "Ride saved.")

	if s.generator == nil {
		return id, nil
	}

	text, err := s.generator.Generate(ctx, &model.Ride{
		ID:           id,
		Timestamp:    draft.Timestamp,
		Distance:     draft.Distance,
		Duration:     draft.Duration,
		AverageSpeed: draft.AverageSpeed,
		MaxSpeed:     draft.MaxSpeed,
	})
	if err != nil {
		s.logger.Warn("summary generation failed", "id", id, "error", err)
		return id, nil
	}

	if err := s.svc.UpdateSummary(ctx, id, text); err != nil {
		s.logger.Warn("attaching summary failed", "id", id, "error", err)
		return id, nil
	}

	return id, nil
}

// Delete removes the ride from whichever tier holds it.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.svc.DeleteRide(ctx, id); err != nil {
		s.notify(NoticeError, "Could not delete ride.")
		return err
	}
	s.notify(NoticeInfo, "Ride deleted.")
	return nil
}

// ForceSync runs a user-initiated full migration. Contention with a
// background pass surfaces as a notice, not an error.
func (s *Session) ForceSync(ctx context.Context) error {
	s.mu.Lock()
	if s.view.Syncing {
		s.mu.Unlock()
		return nil
	}
	s.view.Syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.view.Syncing = false
		s.mu.Unlock()
	}()

	count, err := s.svc.ForceFullMigration(ctx)
	if err != nil {
		if errors.Is(err, ride.ErrMigrationInProgress) {
			s.notify(NoticeInfo, "Sync already running.")
			return nil
		}
		s.notify(NoticeError, "Sync failed. Your rides are safe on this device.")
		return err
	}

	s.notify(NoticeInfo, "Sync complete.")
	s.logger.Info("forced sync finished", "uploaded", count)
	return nil
}
