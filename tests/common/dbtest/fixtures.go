//go:build unit || e2e

package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateShow inserts a show and returns its id.
func CreateShow(t *testing.T, db DBLike, title string, capacity int) uuid.UUID {
	t.Helper()

	showID := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO shows (id, title, starts_at, capacity) VALUES ($1, $2, $3, $4)",
		showID, title, time.Now().Add(24*time.Hour).UTC(), capacity)
	require.NoError(t, err)

	return showID
}

// CountActiveBookings reads straight from the table, bypassing the application.
func CountActiveBookings(t *testing.T, db DBLike, showID uuid.UUID) int {
	t.Helper()

	var n int
	err := db.QueryRow(context.Background(),
		"SELECT count(*) FROM bookings WHERE show_id = $1 AND status = 'active'", showID).Scan(&n)
	require.NoError(t, err)

	return n
}

// ResetDB empties the booking tables between subtests.
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, "TRUNCATE bookings, shows")
	return err
}
