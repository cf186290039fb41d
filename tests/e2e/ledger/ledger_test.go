//go:build e2e

package ledger_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/infra/repository"
	"cinema-booking/internal/infra/uow"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/usecase/shared"
	"cinema-booking/tests/common/dbtest"
	"cinema-booking/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LedgerSuite struct {
	e2e.SharedSuite
	catalog *repository.CatalogRepository
	uow     *uow.PostgresUoW
}

func (s *LedgerSuite) SetupSuite() {
	s.SharedSuite.SetupSuite()
	s.catalog = repository.NewCatalogRepository(s.DB, slog.Default())
	s.uow = uow.NewPostgresUoW(s.DB, clock.NewRealClock(), slog.Default())
}

func (s *LedgerSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestLedgerSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) createShow(t *testing.T, capacity int) uuid.UUID {
	t.Helper()
	sh, err := show.New(uuid.New(), capacity)
	require.NoError(t, err)
	require.NoError(t, s.catalog.CreateShow(context.Background(), sh, "Integration", time.Now().Add(time.Hour)))
	return sh.ID
}

func (s *LedgerSuite) TestCatalog() {
	s.Run("created show is readable", func() {
		t := s.T()
		showID := s.createShow(t, 42)

		got, err := s.catalog.GetShow(context.Background(), showID)
		require.NoError(t, err)
		require.Equal(t, 42, got.Capacity)

		_, err = s.catalog.GetShow(context.Background(), uuid.New())
		require.True(t, errs.Is(err, shared.ErrNotFound))
	})
}

func (s *LedgerSuite) TestActiveSeatIndex() {
	s.Run("second active insert for a seat is a conflict", func() {
		t := s.T()
		ctx := context.Background()
		showID := s.createShow(t, 10)
		ledger := s.uow.Ledger()

		first, err := ledger.InsertActive(ctx, showID, "A1", uuid.New())
		require.NoError(t, err)

		_, err = ledger.InsertActive(ctx, showID, "A1", uuid.New())
		require.True(t, errs.Is(err, shared.ErrConflict), "got %v", err)

		changed, err := ledger.SetCancelled(ctx, first.ID())
		require.NoError(t, err)
		require.True(t, changed)

		second, err := ledger.InsertActive(ctx, showID, "A1", uuid.New())
		require.NoError(t, err)
		require.NotEqual(t, first.ID(), second.ID())
		require.Equal(t, 1, dbtest.CountActiveBookings(t, s.DB, showID))
	})

	s.Run("concurrent cancels transition exactly once", func() {
		t := s.T()
		ctx := context.Background()
		showID := s.createShow(t, 10)
		b, err := s.uow.Ledger().InsertActive(ctx, showID, "7", uuid.New())
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				changed, err := s.uow.Ledger().SetCancelled(ctx, b.ID())
				if err == nil && changed {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), wins.Load())
	})
}

func (s *LedgerSuite) TestUnitOfWork() {
	s.Run("failed work is rolled back", func() {
		t := s.T()
		ctx := context.Background()
		showID := s.createShow(t, 10)
		boom := errs.New("boom")

		err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			if err := tx.LockShow(ctx, showID); err != nil {
				return err
			}
			if _, err := tx.Ledger().InsertActive(ctx, showID, "1", uuid.New()); err != nil {
				return err
			}
			return boom
		})
		require.True(t, errs.Is(err, boom))
		require.Equal(t, 0, dbtest.CountActiveBookings(t, s.DB, showID))
	})

	s.Run("locking an unknown show fails", func() {
		t := s.T()
		err := s.uow.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
			return tx.LockShow(ctx, uuid.New())
		})
		require.True(t, errs.Is(err, shared.ErrNotFound))
	})

	s.Run("seats listed in label order", func() {
		t := s.T()
		ctx := context.Background()
		showID := s.createShow(t, 10)
		for _, seat := range []string{"C3", "A1", "B2"} {
			_, err := s.uow.Ledger().InsertActive(ctx, showID, seat, uuid.New())
			require.NoError(t, err)
		}

		seats, err := s.uow.Ledger().ListActiveSeats(ctx, showID)
		require.NoError(t, err)
		require.Equal(t, []string{"A1", "B2", "C3"}, seats)
	})
}
