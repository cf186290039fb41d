//go:build unit

package memstore_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/infra/memstore"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T, capacity int) (*memstore.Store, uuid.UUID) {
	t.Helper()
	store := memstore.New(clock.NewSteppingClock(baseTime, time.Second), slog.Default())
	sh, err := show.New(uuid.New(), capacity)
	require.NoError(t, err)
	store.AddShow(sh)
	return store, sh.ID
}

func TestStore_InsertActive_ConcurrentSameSeat(t *testing.T) {
	store, showID := newStore(t, 50)
	ctx := context.Background()

	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.InsertActive(ctx, showID, "A1", uuid.New())
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errs.Is(err, shared.ErrConflict):
				atomic.AddInt32(&conflicts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(9), conflicts)

	n, err := store.CountActive(ctx, showID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_SetCancelled_OnlyOneCallerWins(t *testing.T) {
	store, showID := newStore(t, 10)
	ctx := context.Background()

	b, err := store.InsertActive(ctx, showID, "3", uuid.New())
	require.NoError(t, err)

	var changed int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SetCancelled(ctx, b.ID())
			if assert.NoError(t, err) && ok {
				atomic.AddInt32(&changed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), changed)

	got, err := store.FindByID(ctx, b.ID())
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status())

	exists, err := store.ExistsActive(ctx, showID, "3")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_SeatReusableAfterCancel(t *testing.T) {
	store, showID := newStore(t, 10)
	ctx := context.Background()
	owner := uuid.New()

	first, err := store.InsertActive(ctx, showID, "B2", owner)
	require.NoError(t, err)
	_, err = store.SetCancelled(ctx, first.ID())
	require.NoError(t, err)

	second, err := store.InsertActive(ctx, showID, "B2", owner)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	old, err := store.FindByID(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, old.Status())
}

func TestStore_ListByOwner_NewestFirst(t *testing.T) {
	store, showID := newStore(t, 10)
	ctx := context.Background()
	owner := uuid.New()

	var ids []uuid.UUID
	for _, seat := range []string{"1", "2", "3"} {
		b, err := store.InsertActive(ctx, showID, seat, owner)
		require.NoError(t, err)
		ids = append(ids, b.ID())
	}
	_, err := store.InsertActive(ctx, showID, "4", uuid.New())
	require.NoError(t, err)

	list, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{list[0].ID(), list[1].ID(), list[2].ID()})
}

func TestStore_ListActiveSeats(t *testing.T) {
	store, showID := newStore(t, 10)
	ctx := context.Background()

	for _, seat := range []string{"C3", "A1", "B2"} {
		_, err := store.InsertActive(ctx, showID, seat, uuid.New())
		require.NoError(t, err)
	}

	seats, err := store.ListActiveSeats(ctx, showID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2", "C3"}, seats)

	empty, err := store.ListActiveSeats(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_NotFound(t *testing.T) {
	store, _ := newStore(t, 1)
	ctx := context.Background()

	_, err := store.FindByID(ctx, uuid.New())
	assert.True(t, errs.Is(err, shared.ErrNotFound))

	_, err = store.GetShow(ctx, uuid.New())
	assert.True(t, errs.Is(err, shared.ErrNotFound))

	err = store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.LockShow(ctx, uuid.New())
	})
	assert.True(t, errs.Is(err, shared.ErrNotFound))
}

func TestStore_Within_LockShowSerializes(t *testing.T) {
	store, showID := newStore(t, 10)
	ctx := context.Background()

	var inside, overlap int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
				if err := tx.LockShow(ctx, showID); err != nil {
					return err
				}
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, overlap)
}

func TestStore_SetCancelled_UnknownBooking(t *testing.T) {
	store, _ := newStore(t, 10)

	ok, err := store.SetCancelled(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
