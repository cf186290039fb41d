package repository

import (
	"context"
	"log/slog"
	"time"

	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/infra"
	"cinema-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	getShowSQL  = `SELECT id, capacity FROM shows WHERE id = $1`
	lockShowSQL = `SELECT id FROM shows WHERE id = $1 FOR UPDATE`

	createShowSQL = `INSERT INTO shows (id, title, starts_at, capacity) VALUES ($1, $2, $3, $4)`
)

type CatalogRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewCatalogRepository(db DBTX, logger *slog.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CatalogRepository) GetShow(ctx context.Context, showID uuid.UUID) (*show.Show, error) {
	var (
		id       pgtype.UUID
		capacity int32
	)
	err := r.db.QueryRow(ctx, getShowSQL, pgconv.UUIDToPgtype(showID)).Scan(&id, &capacity)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "show not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to find show", err)
	}

	s, err := show.New(pgconv.UUIDFromPgtype(id), int(capacity))
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "invalid show row", err)
	}
	return s, nil
}

// LockShow takes the show row lock for the rest of the surrounding
// transaction. db must be a transaction for the lock to mean anything.
func (r *CatalogRepository) LockShow(ctx context.Context, showID uuid.UUID) error {
	var id pgtype.UUID
	err := r.db.QueryRow(ctx, lockShowSQL, pgconv.UUIDToPgtype(showID)).Scan(&id)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return infra.WrapRepoErr(r.logger, infra.KindNotFound, "show not found", err)
		}
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to lock show", err)
	}
	return nil
}

// CreateShow registers a show. Used to seed the catalog.
func (r *CatalogRepository) CreateShow(ctx context.Context, s *show.Show, title string, startsAt time.Time) error {
	startsAtParam := pgtype.Timestamptz{}
	if !startsAt.IsZero() {
		startsAtParam = pgconv.TimeToPgtype(startsAt)
	}

	_, err := r.db.Exec(ctx, createShowSQL,
		pgconv.UUIDToPgtype(s.ID),
		title,
		startsAtParam,
		int32(s.Capacity),
	)
	if err != nil {
		if pgconv.IsUniqueViolation(err, "") {
			return infra.WrapRepoErr(r.logger, infra.KindConflict, "show already exists", err)
		}
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to create show", err)
	}
	return nil
}
