//go:build unit

package pgconv_test

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"cinema-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestUUIDConversion(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, pgconv.UUIDFromPgtype(pgconv.UUIDToPgtype(id)))
	assert.Equal(t, uuid.Nil, pgconv.UUIDFromPgtype(pgtype.UUID{}))
}

func TestTimeFromPgtype_NormalizesToUTC(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	in := time.Date(2026, 3, 1, 21, 0, 0, 0, tokyo)

	got := pgconv.TimeFromPgtype(pgconv.TimeToPgtype(in))

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, in.Equal(got))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, pgconv.IsNoRows(pgx.ErrNoRows))
	assert.True(t, pgconv.IsNoRows(fmt.Errorf("wrapped: %w", sql.ErrNoRows)))
	assert.False(t, pgconv.IsNoRows(assert.AnError))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_seat"})

	assert.True(t, pgconv.IsUniqueViolation(err, ""))
	assert.True(t, pgconv.IsUniqueViolation(err, "uniq_active_seat"))
	assert.False(t, pgconv.IsUniqueViolation(err, "bookings_pkey"))
	assert.False(t, pgconv.IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, pgconv.IsTransient(&pgconn.PgError{Code: "40001"}))
	assert.True(t, pgconv.IsTransient(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, pgconv.IsTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, pgconv.IsTransient(assert.AnError))
}
