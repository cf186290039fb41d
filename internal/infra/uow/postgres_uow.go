package uow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cinema-booking/internal/infra/repository"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/pkg/pgconv"
	"cinema-booking/internal/pkg/retry"
	"cinema-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

// txPolicy retries serialization failures and deadlocks up to three times
// with 20% jitter.
var txPolicy = retry.Policy{
	Attempts:   4,
	BaseDelay:  100 * time.Millisecond,
	Multiplier: 2,
	Jitter:     0.2,
}

// Pool is the subset of *pgxpool.Pool the unit of work needs.
type Pool interface {
	repository.DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PostgresUoW struct {
	pool   Pool
	clock  clock.Clock
	logger *slog.Logger
	policy retry.Policy
	ledger *repository.LedgerRepository
}

func NewPostgresUoW(pool Pool, clk clock.Clock, logger *slog.Logger) *PostgresUoW {
	policy := txPolicy
	policy.Logger = logger
	return &PostgresUoW{
		pool:   pool,
		clock:  clk,
		logger: logger,
		policy: policy,
		ledger: repository.NewLedgerRepository(pool, clk, logger),
	}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (u *PostgresUoW) Ledger() shared.Ledger {
	return u.ledger
}

func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	err := retry.Do(ctx, u.policy, pgconv.IsTransient, func(ctx context.Context, attempt int) error {
		return u.runOnce(ctx, options, attempt, fn)
	})
	if err != nil && errs.Is(err, retry.ErrExhausted) {
		u.logger.Error("transaction failed after max retries",
			"attempts", u.policy.Attempts,
			"error", err.Error())
		return errs.Mark(err, errMaxRetriesExceeded)
	}
	return err
}

// runOnce owns exactly one transaction so no rollback defers pile up
// across retries.
func (u *PostgresUoW) runOnce(ctx context.Context, options pgx.TxOptions, attempt int, fn func(ctx context.Context, tx shared.Tx) error) error {
	pgxTx, err := u.pool.BeginTx(ctx, options)
	if err != nil {
		return errs.Mark(err, errTransactionBegin)
	}

	tx := &pgTx{dbtx: pgxTx, uow: u}

	err = fn(ctx, tx)
	if err == nil {
		if err = pgxTx.Commit(ctx); err == nil {
			return nil
		}
		err = errs.Mark(err, errTransactionCommit)
	}

	if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
		if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			u.logger.Warn("rollback failed", "attempt", attempt, "error", rollbackErr.Error())
		}
	}
	return err
}

type pgTx struct {
	dbtx pgx.Tx
	uow  *PostgresUoW

	// Lazy-initialized repositories
	ledger  *repository.LedgerRepository
	catalog *repository.CatalogRepository
}

func (t *pgTx) Ledger() shared.Ledger {
	if t.ledger == nil {
		t.ledger = repository.NewLedgerRepository(t.dbtx, t.uow.clock, t.uow.logger)
	}
	return t.ledger
}

func (t *pgTx) LockShow(ctx context.Context, showID uuid.UUID) error {
	if t.catalog == nil {
		t.catalog = repository.NewCatalogRepository(t.dbtx, t.uow.logger)
	}
	return t.catalog.LockShow(ctx, showID)
}
