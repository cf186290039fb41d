package repository

import (
	"context"
	"log/slog"
	"time"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/infra"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ActiveSeatIndex is the partial unique index guarding one active booking
// per seat.
const ActiveSeatIndex = "uniq_active_seat"

const (
	countActiveSQL = `SELECT count(*) FROM bookings WHERE show_id = $1 AND status = 'active'`

	existsActiveSQL = `SELECT EXISTS (
		SELECT 1 FROM bookings WHERE show_id = $1 AND seat_label = $2 AND status = 'active'
	)`

	insertActiveSQL = `INSERT INTO bookings (id, show_id, seat_label, owner_id, status, created_at)
		VALUES ($1, $2, $3, $4, 'active', $5)`

	setCancelledSQL = `UPDATE bookings SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'active'`

	bookingColumns = `id, show_id, seat_label, owner_id, status, created_at`

	findByIDSQL = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	listByOwnerSQL = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`

	listActiveSeatsSQL = `SELECT seat_label FROM bookings
		WHERE show_id = $1 AND status = 'active' ORDER BY seat_label`
)

type LedgerRepository struct {
	db     DBTX
	clock  clock.Clock
	logger *slog.Logger
}

func NewLedgerRepository(db DBTX, clk clock.Clock, logger *slog.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:     db,
		clock:  clk,
		logger: logger,
	}
}

func (r *LedgerRepository) CountActive(ctx context.Context, showID uuid.UUID) (int, error) {
	var n int64
	if err := r.db.QueryRow(ctx, countActiveSQL, pgconv.UUIDToPgtype(showID)).Scan(&n); err != nil {
		return 0, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to count active bookings", err)
	}
	return int(n), nil
}

func (r *LedgerRepository) ExistsActive(ctx context.Context, showID uuid.UUID, seat string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, existsActiveSQL, pgconv.UUIDToPgtype(showID), seat).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to check active booking", err)
	}
	return exists, nil
}

func (r *LedgerRepository) InsertActive(ctx context.Context, showID uuid.UUID, seat string, ownerID uuid.UUID) (*booking.Booking, error) {
	// timestamptz keeps microseconds
	now := r.clock.Now().Truncate(time.Microsecond)
	b := booking.NewBooking(showID, seat, ownerID, now)

	_, err := r.db.Exec(ctx, insertActiveSQL,
		pgconv.UUIDToPgtype(b.ID()),
		pgconv.UUIDToPgtype(showID),
		seat,
		pgconv.UUIDToPgtype(ownerID),
		pgconv.TimeToPgtype(now),
	)
	if err != nil {
		if pgconv.IsUniqueViolation(err, ActiveSeatIndex) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindConflict, "seat already has an active booking", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to insert booking", err)
	}

	return b, nil
}

func (r *LedgerRepository) SetCancelled(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, setCancelledSQL,
		pgconv.UUIDToPgtype(bookingID),
		pgconv.TimeToPgtype(r.clock.Now()),
	)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to cancel booking", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LedgerRepository) FindByID(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, findByIDSQL, pgconv.UUIDToPgtype(bookingID)))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "booking not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to find booking", err)
	}
	return b, nil
}

func (r *LedgerRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*booking.Booking, error) {
	rows, err := r.db.Query(ctx, listByOwnerSQL, pgconv.UUIDToPgtype(ownerID))
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list bookings", err)
	}

	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*booking.Booking, error) {
		return scanBooking(row)
	})
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to read bookings", err)
	}
	return bookings, nil
}

func (r *LedgerRepository) ListActiveSeats(ctx context.Context, showID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, listActiveSeatsSQL, pgconv.UUIDToPgtype(showID))
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to list active seats", err)
	}

	seats, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to read active seats", err)
	}
	return seats, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		id, showID, ownerID pgtype.UUID
		seat, status        string
		createdAt           pgtype.Timestamptz
	)
	if err := row.Scan(&id, &showID, &seat, &ownerID, &status, &createdAt); err != nil {
		return nil, err
	}

	return booking.ReconstructBooking(
		pgconv.UUIDFromPgtype(id),
		pgconv.UUIDFromPgtype(showID),
		seat,
		pgconv.UUIDFromPgtype(ownerID),
		booking.Status(status),
		pgconv.TimeFromPgtype(createdAt),
	)
}
