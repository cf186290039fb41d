//go:build unit

package uow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/pkg/retry"
	"cinema-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx only implements what the unit of work touches.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakePool struct {
	txs     []*fakeTx
	options []pgx.TxOptions
}

func (p *fakePool) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx := &fakeTx{}
	p.txs = append(p.txs, tx)
	p.options = append(p.options, opts)
	return tx, nil
}

func (p *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (p *fakePool) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func newTestUoW(pool *fakePool) *PostgresUoW {
	u := NewPostgresUoW(pool, clock.NewRealClock(), slog.Default())
	u.policy = retry.Policy{Attempts: 4, BaseDelay: time.Millisecond, Multiplier: 2, Logger: u.logger}
	return u
}

func TestPostgresUoW_Within(t *testing.T) {
	t.Run("commits on success with read committed", func(t *testing.T) {
		pool := &fakePool{}
		u := newTestUoW(pool)

		err := u.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
			assert.NotNil(t, tx.Ledger())
			return nil
		})

		require.NoError(t, err)
		require.Len(t, pool.txs, 1)
		assert.True(t, pool.txs[0].committed)
		assert.False(t, pool.txs[0].rolledBack)
		assert.Equal(t, pgx.ReadCommitted, pool.options[0].IsoLevel)
	})

	t.Run("rolls back and returns business errors without retry", func(t *testing.T) {
		pool := &fakePool{}
		u := newTestUoW(pool)

		err := u.Within(context.Background(), func(context.Context, shared.Tx) error {
			return shared.ErrSeatAlreadyBooked
		})

		assert.True(t, errs.Is(err, shared.ErrSeatAlreadyBooked))
		require.Len(t, pool.txs, 1)
		assert.True(t, pool.txs[0].rolledBack)
	})

	t.Run("retries serialization failures in a fresh transaction", func(t *testing.T) {
		pool := &fakePool{}
		u := newTestUoW(pool)

		calls := 0
		err := u.Within(context.Background(), func(context.Context, shared.Tx) error {
			calls++
			if calls < 3 {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		require.Len(t, pool.txs, 3)
		assert.True(t, pool.txs[0].rolledBack)
		assert.True(t, pool.txs[1].rolledBack)
		assert.True(t, pool.txs[2].committed)
	})

	t.Run("gives up after max retries on deadlocks", func(t *testing.T) {
		pool := &fakePool{}
		u := newTestUoW(pool)

		err := u.Within(context.Background(), func(context.Context, shared.Tx) error {
			return &pgconn.PgError{Code: "40P01"}
		})

		assert.True(t, errs.Is(err, errMaxRetriesExceeded))
		assert.Len(t, pool.txs, 4)
	})

	t.Run("commit failure is marked", func(t *testing.T) {
		pool := &fakePool{}
		u := newTestUoW(pool)
		u.pool = &commitFailingPool{fakePool: pool}

		err := u.Within(context.Background(), func(context.Context, shared.Tx) error { return nil })

		assert.True(t, errs.Is(err, errTransactionCommit))
	})
}

type commitFailingPool struct {
	*fakePool
}

func (p *commitFailingPool) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	tx, _ := p.fakePool.BeginTx(ctx, opts)
	tx.(*fakeTx).commitErr = assert.AnError
	return tx, nil
}
