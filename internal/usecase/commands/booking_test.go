//go:build unit

package commands_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/seat"
	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/infra"
	"cinema-booking/internal/infra/cache"
	"cinema-booking/internal/infra/memstore"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/pkg/keylock"
	"cinema-booking/internal/pkg/metrics"
	"cinema-booking/internal/pkg/retry"
	"cinema-booking/internal/usecase/commands"
	"cinema-booking/internal/usecase/shared"
	sharedmock "cinema-booking/tests/mock/shared"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testPolicy = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}

type fixture struct {
	store   *memstore.Store
	cmds    commands.BookingCommands
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New(clock.NewSteppingClock(time.Date(2026, 8, 1, 19, 0, 0, 0, time.UTC), time.Millisecond), slog.Default())
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	cmds := commands.NewBookingCommands(
		store,
		store,
		seat.DefaultValidator(),
		keylock.New[uuid.UUID](),
		cache.Noop{},
		testPolicy,
		m,
		slog.Default(),
	)
	return &fixture{store: store, cmds: cmds, metrics: m}
}

func (f *fixture) addShow(t *testing.T, capacity int) uuid.UUID {
	t.Helper()
	s, err := show.New(uuid.New(), capacity)
	require.NoError(t, err)
	f.store.AddShow(s)
	return s.ID
}

func (f *fixture) reserve(showID uuid.UUID, seatLabel string, owner uuid.UUID) (uuid.UUID, error) {
	v, err := f.cmds.Reserve(context.Background(), commands.ReserveParams{ShowID: showID, Seat: seatLabel, OwnerID: owner})
	if err != nil {
		return uuid.Nil, err
	}
	return v.ID, nil
}

func (f *fixture) activeCount(t *testing.T, showID uuid.UUID) int {
	t.Helper()
	n, err := f.store.CountActive(context.Background(), showID)
	require.NoError(t, err)
	return n
}

func TestReserve_ReturnsNormalizedBooking(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 100)
	owner := uuid.New()

	v, err := f.cmds.Reserve(context.Background(), commands.ReserveParams{ShowID: showID, Seat: " a12 ", OwnerID: owner})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, v.ID)
	assert.Equal(t, showID, v.ShowID)
	assert.Equal(t, "A12", v.Seat)
	assert.Equal(t, "active", v.Status)
	assert.False(t, v.CreatedAt.IsZero())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeBooked)), 0)
}

func TestReserve_Rejections(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 10)
	owner := uuid.New()

	_, err := f.reserve(showID, "3", owner)
	require.NoError(t, err)

	tests := []struct {
		name   string
		showID uuid.UUID
		seat   string
		errIs  error
	}{
		{name: "unknown show", showID: uuid.New(), seat: "1", errIs: shared.ErrShowNotFound},
		{name: "malformed seat", showID: showID, seat: "A-1", errIs: seat.ErrInvalidFormat},
		{name: "seat zero", showID: showID, seat: "0", errIs: seat.ErrOutOfRange},
		{name: "seat above capacity", showID: showID, seat: "11", errIs: seat.ErrCapacityExceeded},
		{name: "seat already booked", showID: showID, seat: "3", errIs: shared.ErrSeatAlreadyBooked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reserve(tt.showID, tt.seat, owner)
			assert.ErrorIs(t, err, tt.errIs)
		})
	}

	assert.Equal(t, 1, f.activeCount(t, showID))
}

func TestReserve_OverCapacitySeatCreatesNoRecord(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 5)
	owner := uuid.New()

	_, err := f.reserve(showID, "6", owner)

	var capErr *seat.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 5, capErr.Capacity)
	assert.Zero(t, f.activeCount(t, showID))

	mine, err := f.store.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestReserve_CapacityTwoScenario(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 2)
	owner := uuid.New()
	ctx := context.Background()

	first, err := f.reserve(showID, "1", owner)
	require.NoError(t, err)
	_, err = f.reserve(showID, "2", owner)
	require.NoError(t, err)

	// "3" fails seat validation before the show is checked for room
	_, err = f.reserve(showID, "3", owner)
	assert.ErrorIs(t, err, seat.ErrCapacityExceeded)

	_, err = f.reserve(showID, "A1", owner)
	assert.ErrorIs(t, err, shared.ErrShowFullyBooked)
	assert.Equal(t, 2, f.activeCount(t, showID))

	outcome, err := f.cmds.Cancel(ctx, first, owner)
	require.NoError(t, err)
	assert.Equal(t, booking.Cancelled, outcome)

	again, err := f.reserve(showID, "1", owner)
	require.NoError(t, err)
	assert.NotEqual(t, first, again)

	old, err := f.store.FindByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, old.Status())
	assert.Equal(t, 2, f.activeCount(t, showID))
}

func TestReserve_ConcurrentSameSeat(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 20)

	const callers = 10
	results := make([]error, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = f.reserve(showID, "1", uuid.New())
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.True(t,
			errs.Is(err, shared.ErrSeatAlreadyBooked) || errs.Is(err, shared.ErrConcurrencyExhausted),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.activeCount(t, showID))
}

func TestReserve_ConcurrentCapacityBound(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 3)

	// distinct labels whose numbers all fit the capacity
	labels := []string{"A1", "B1", "C1", "D1", "E1", "A2", "B2", "C2", "D2", "E2"}
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, full := 0, 0
	for _, label := range labels {
		wg.Add(1)
		go func(label string) {
			defer wg.Done()
			_, err := f.reserve(showID, label, uuid.New())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errs.Is(err, shared.ErrShowFullyBooked):
				full++
			default:
				t.Errorf("unexpected error for %s: %v", label, err)
			}
		}(label)
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	assert.Equal(t, 7, full)
	assert.Equal(t, 3, f.activeCount(t, showID))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	showID := f.addShow(t, 10)
	owner := uuid.New()
	ctx := context.Background()

	id, err := f.reserve(showID, "B4", owner)
	require.NoError(t, err)

	t.Run("other user is not allowed", func(t *testing.T) {
		_, err := f.cmds.Cancel(ctx, id, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotOwner)
		assert.Equal(t, 1, f.activeCount(t, showID))
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := f.cmds.Cancel(ctx, uuid.New(), owner)
		assert.ErrorIs(t, err, shared.ErrBookingNotFound)
	})

	t.Run("second cancel reports already cancelled", func(t *testing.T) {
		first, err := f.cmds.Cancel(ctx, id, owner)
		require.NoError(t, err)
		assert.Equal(t, booking.Cancelled, first)

		second, err := f.cmds.Cancel(ctx, id, owner)
		require.NoError(t, err)
		assert.Equal(t, booking.AlreadyCancelled, second)

		b, err := f.store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, b.Status())
		assert.Zero(t, f.activeCount(t, showID))
	})
}

func TestReserve_ConflictRetry(t *testing.T) {
	showID, owner := uuid.New(), uuid.New()
	capacityShow := &show.Show{ID: showID, Capacity: 10}
	conflict := infra.WrapRepoErr(slog.Default(), infra.KindConflict, "seat already has an active booking", nil)

	newMocks := func(t *testing.T) (*sharedmock.MockCatalog, *sharedmock.MockUnitOfWork, *sharedmock.MockTx, *sharedmock.MockLedger, *sharedmock.MockAvailabilityCache) {
		ctrl := gomock.NewController(t)
		catalog := sharedmock.NewMockCatalog(ctrl)
		uow := sharedmock.NewMockUnitOfWork(ctrl)
		tx := sharedmock.NewMockTx(ctrl)
		ledger := sharedmock.NewMockLedger(ctrl)
		cacheMock := sharedmock.NewMockAvailabilityCache(ctrl)

		catalog.EXPECT().GetShow(gomock.Any(), showID).Return(capacityShow, nil)
		uow.EXPECT().Within(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, fn func(context.Context, shared.Tx) error) error {
				return fn(ctx, tx)
			}).AnyTimes()
		tx.EXPECT().LockShow(gomock.Any(), showID).Return(nil).AnyTimes()
		tx.EXPECT().Ledger().Return(ledger).AnyTimes()
		ledger.EXPECT().ExistsActive(gomock.Any(), showID, "7").Return(false, nil).AnyTimes()
		ledger.EXPECT().CountActive(gomock.Any(), showID).Return(0, nil).AnyTimes()
		return catalog, uow, tx, ledger, cacheMock
	}

	build := func(catalog shared.Catalog, uow shared.UnitOfWork, c shared.AvailabilityCache, m *metrics.Metrics) commands.BookingCommands {
		return commands.NewBookingCommands(catalog, uow, seat.DefaultValidator(), keylock.New[uuid.UUID](), c, testPolicy, m, slog.Default())
	}

	t.Run("conflict then success", func(t *testing.T) {
		catalog, uow, _, ledger, cacheMock := newMocks(t)
		created := booking.NewBooking(showID, "7", owner, time.Now())
		gomock.InOrder(
			ledger.EXPECT().InsertActive(gomock.Any(), showID, "7", owner).Return(nil, conflict),
			ledger.EXPECT().InsertActive(gomock.Any(), showID, "7", owner).Return(created, nil),
		)
		cacheMock.EXPECT().Invalidate(gomock.Any(), showID).Return(nil)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())

		v, err := build(catalog, uow, cacheMock, m).Reserve(context.Background(), commands.ReserveParams{ShowID: showID, Seat: "7", OwnerID: owner})

		require.NoError(t, err)
		assert.Equal(t, created.ID(), v.ID)
		assert.InDelta(t, 1, testutil.ToFloat64(m.ReservationRetriesTotal), 0)
	})

	t.Run("conflicts exhaust attempts", func(t *testing.T) {
		catalog, uow, _, ledger, cacheMock := newMocks(t)
		ledger.EXPECT().InsertActive(gomock.Any(), showID, "7", owner).Return(nil, conflict).Times(testPolicy.Attempts)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())

		_, err := build(catalog, uow, cacheMock, m).Reserve(context.Background(), commands.ReserveParams{ShowID: showID, Seat: "7", OwnerID: owner})

		assert.True(t, errs.Is(err, shared.ErrConcurrencyExhausted))
		assert.InDelta(t, 1, testutil.ToFloat64(m.ReservationsTotal.WithLabelValues(metrics.OutcomeExhausted)), 0)
		assert.InDelta(t, float64(testPolicy.Attempts-1), testutil.ToFloat64(m.ReservationRetriesTotal), 0)
	})

	t.Run("cache failure does not fail the booking", func(t *testing.T) {
		catalog, uow, _, ledger, cacheMock := newMocks(t)
		created := booking.NewBooking(showID, "7", owner, time.Now())
		ledger.EXPECT().InsertActive(gomock.Any(), showID, "7", owner).Return(created, nil)
		cacheMock.EXPECT().Invalidate(gomock.Any(), showID).Return(fmt.Errorf("redis down"))

		_, err := build(catalog, uow, cacheMock, nil).Reserve(context.Background(), commands.ReserveParams{ShowID: showID, Seat: "7", OwnerID: owner})
		assert.NoError(t, err)
	})

	t.Run("storage failure is not retried", func(t *testing.T) {
		catalog, uow, _, ledger, cacheMock := newMocks(t)
		ledger.EXPECT().InsertActive(gomock.Any(), showID, "7", owner).Return(nil, assert.AnError).Times(1)

		_, err := build(catalog, uow, cacheMock, nil).Reserve(context.Background(), commands.ReserveParams{ShowID: showID, Seat: "7", OwnerID: owner})
		assert.ErrorIs(t, err, assert.AnError)
		assert.False(t, errs.Is(err, shared.ErrConcurrencyExhausted))
	})
}
