// Package memstore keeps shows and bookings in process memory. It enforces
// the same one-active-booking-per-seat rule as the Postgres index, which makes
// it usable for local runs and tests. Nothing survives a restart.
package memstore

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/infra"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/keylock"
	"cinema-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type seatKey struct {
	showID uuid.UUID
	seat   string
}

type record struct {
	id        uuid.UUID
	showID    uuid.UUID
	seat      string
	ownerID   uuid.UUID
	status    booking.Status
	createdAt time.Time
}

type Store struct {
	mu       sync.RWMutex
	shows    map[uuid.UUID]show.Show
	bookings map[uuid.UUID]*record
	active   map[seatKey]uuid.UUID

	showLocks *keylock.Locker[uuid.UUID]
	clock     clock.Clock
	logger    *slog.Logger
}

func New(clk clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		shows:     make(map[uuid.UUID]show.Show),
		bookings:  make(map[uuid.UUID]*record),
		active:    make(map[seatKey]uuid.UUID),
		showLocks: keylock.New[uuid.UUID](),
		clock:     clk,
		logger:    logger,
	}
}

func (s *Store) AddShow(sh *show.Show) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows[sh.ID] = *sh
}

func (s *Store) GetShow(_ context.Context, showID uuid.UUID) (*show.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shows[showID]
	if !ok {
		return nil, infra.WrapRepoErr(s.logger, infra.KindNotFound, "show not found", nil)
	}
	return &sh, nil
}

func (s *Store) CountActive(_ context.Context, showID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.active {
		if key.showID == showID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ExistsActive(_ context.Context, showID uuid.UUID, seat string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[seatKey{showID: showID, seat: seat}]
	return ok, nil
}

// InsertActive checks and claims the seat under one write lock.
func (s *Store) InsertActive(_ context.Context, showID uuid.UUID, seat string, ownerID uuid.UUID) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := seatKey{showID: showID, seat: seat}
	if _, taken := s.active[key]; taken {
		return nil, infra.WrapRepoErr(s.logger, infra.KindConflict, "seat already has an active booking", nil)
	}

	b := booking.NewBooking(showID, seat, ownerID, s.clock.Now())
	s.bookings[b.ID()] = &record{
		id:        b.ID(),
		showID:    showID,
		seat:      seat,
		ownerID:   ownerID,
		status:    booking.StatusActive,
		createdAt: b.CreatedAt(),
	}
	s.active[key] = b.ID()
	return b, nil
}

func (s *Store) SetCancelled(_ context.Context, bookingID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.bookings[bookingID]
	if !ok {
		return false, nil
	}
	b, err := rec.toDomain()
	if err != nil {
		return false, err
	}
	if err := b.Cancel(); err != nil {
		if errors.Is(err, booking.ErrAlreadyCancelled) {
			return false, nil
		}
		return false, err
	}
	rec.status = b.Status()
	delete(s.active, seatKey{showID: rec.showID, seat: rec.seat})
	return true, nil
}

func (s *Store) FindByID(_ context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bookings[bookingID]
	if !ok {
		return nil, infra.WrapRepoErr(s.logger, infra.KindNotFound, "booking not found", nil)
	}
	return rec.toDomain()
}

func (s *Store) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*booking.Booking, error) {
	s.mu.RLock()
	var recs []*record
	for _, rec := range s.bookings {
		if rec.ownerID == ownerID {
			cp := *rec
			recs = append(recs, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].createdAt.Equal(recs[j].createdAt) {
			return recs[i].createdAt.After(recs[j].createdAt)
		}
		return recs[i].id.String() > recs[j].id.String()
	})

	out := make([]*booking.Booking, 0, len(recs))
	for _, rec := range recs {
		b, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) ListActiveSeats(_ context.Context, showID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	seats := make([]string, 0)
	for key := range s.active {
		if key.showID == showID {
			seats = append(seats, key.seat)
		}
	}
	s.mu.RUnlock()

	sort.Strings(seats)
	return seats, nil
}

// Within runs fn directly. There is no rollback: writes made before fn fails
// stay applied. Show locks taken through the tx are released on return.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	tx := &memTx{store: s}
	defer tx.release()
	return fn(ctx, tx)
}

func (s *Store) Ledger() shared.Ledger {
	return s
}

func (r *record) toDomain() (*booking.Booking, error) {
	return booking.ReconstructBooking(r.id, r.showID, r.seat, r.ownerID, r.status, r.createdAt)
}

type memTx struct {
	store   *Store
	unlocks []func()
}

func (t *memTx) Ledger() shared.Ledger {
	return t.store
}

func (t *memTx) LockShow(ctx context.Context, showID uuid.UUID) error {
	if _, err := t.store.GetShow(ctx, showID); err != nil {
		return err
	}
	unlock, err := t.store.showLocks.Lock(ctx, showID)
	if err != nil {
		return err
	}
	t.unlocks = append(t.unlocks, unlock)
	return nil
}

func (t *memTx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
}
