//go:build e2e

// Package e2e runs the booking API against a real Postgres. One container is
// started per test binary; every suite gets its own database with the booking
// schema applied.
package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cinema-booking/cmd/bootstrap"
	"cinema-booking/cmd/bootstrap/components"
	"cinema-booking/internal/infra/db"
	"cinema-booking/internal/pkg/config"
	"cinema-booking/internal/pkg/retry"
	"cinema-booking/tests/common/authtest"
	"cinema-booking/tests/common/dbtest"

	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
)

const (
	pgImage    = "postgres:17-alpine"
	pgUser     = "booking"
	pgPassword = "booking"
	pgPort     = nat.Port("5432/tcp")

	schemaFile = "migrations/001_initial_schema.sql"
)

var (
	pgOnce      sync.Once
	pgContainer testcontainers.Container
	pgErr       error
)

// Postgres may still refuse the first connections after the wait strategy passes.
var createDatabasePolicy = retry.Policy{
	Attempts:   5,
	BaseDelay:  500 * time.Millisecond,
	Multiplier: 1.5,
	Logger:     slog.Default(),
}

type SharedSuite struct {
	suite.Suite
	Router *gin.Engine
	DB     *pgxpool.Pool
	Config config.Config
	Tokens *authtest.JWTHelper
}

func (s *SharedSuite) SetupSuite() {
	t := s.T()
	gin.SetMode(gin.TestMode)

	host, port := postgresEndpoint(t)
	dbCfg := createBookingDatabase(t, host, port)

	pool, closePool, err := db.Connect(dbCfg)
	require.NoError(t, err, "connect to %s", dbCfg.DBName)
	t.Cleanup(closePool)

	applySchema(t, pool)

	cfg := config.NewTestConfig()
	cfg.DB = dbCfg
	cfg.Store.Driver = config.StoreDriverPostgres

	s.DB = pool
	s.Config = cfg
	s.Router = startApp(t, pool, cfg)
	s.Tokens = authtest.NewJWTHelper(cfg.JWT)
}

func (s *SharedSuite) SetupSubTest() {
	require.NoError(s.T(), dbtest.ResetDB(s.DB), "reset bookings and shows")
}

// postgresEndpoint starts the shared container on first use. Ryuk removes it
// when the test binary exits.
func postgresEndpoint(t *testing.T) (string, string) {
	t.Helper()

	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		pgContainer, pgErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        pgImage,
				ExposedPorts: []string{string(pgPort)},
				Env: map[string]string{
					"POSTGRES_USER":     pgUser,
					"POSTGRES_PASSWORD": pgPassword,
					"POSTGRES_DB":       "postgres",
				},
				Tmpfs: map[string]string{"/var/lib/postgresql/data": "rw,size=256m"},
				// throwaway data; the concurrency tests hold many connections at once
				Cmd: []string{
					"postgres",
					"-c", "fsync=off",
					"-c", "synchronous_commit=off",
					"-c", "full_page_writes=off",
					"-c", "max_connections=200",
				},
				WaitingFor: wait.ForSQL(pgPort, "pgx", func(host string, port nat.Port) string {
					return adminDSN(host, port.Port())
				}).WithStartupTimeout(time.Minute),
				Labels: map[string]string{"purpose": "booking-e2e"},
			},
			Started: true,
		})
	})
	require.NoError(t, pgErr, "start postgres container")

	ctx := context.Background()
	host, err := pgContainer.Host(ctx)
	require.NoError(t, err, "resolve container host")
	port, err := pgContainer.MappedPort(ctx, pgPort)
	require.NoError(t, err, "resolve container port")

	return host, port.Port()
}

func adminDSN(host, port string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/postgres?sslmode=disable", pgUser, pgPassword, host, port)
}

// createBookingDatabase gives the calling suite a database of its own and
// drops it once the suite is done.
func createBookingDatabase(t *testing.T, host, port string) config.DBConfig {
	t.Helper()

	name := "booking_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgxpool.New(ctx, adminDSN(host, port))
	require.NoError(t, err, "connect as admin")
	defer admin.Close()

	err = retry.Do(ctx, createDatabasePolicy, func(error) bool { return true }, func(ctx context.Context, _ int) error {
		_, err := admin.Exec(ctx, "CREATE DATABASE "+name)
		return err
	})
	require.NoError(t, err, "create database %s", name)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		admin, err := pgxpool.New(ctx, adminDSN(host, port))
		if err != nil {
			slog.Warn("drop test database: connect failed", "database", name, "error", err.Error())
			return
		}
		defer admin.Close()

		if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			slog.Warn("drop test database failed", "database", name, "error", err.Error())
		}
	})

	return config.DBConfig{
		Host:     host,
		Port:     port,
		User:     pgUser,
		Password: pgPassword,
		DBName:   name,
		SSLMode:  "disable",
		TimeZone: "UTC",
		MaxConns: 50,
	}
}

// applySchema runs the booking migration and checks that the active-seat
// index the allocation path relies on is in place.
func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ddl, err := os.ReadFile(repoFile(t, schemaFile))
	require.NoError(t, err, "read %s", schemaFile)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err = pool.Exec(ctx, string(ddl))
	require.NoError(t, err, "apply %s", schemaFile)

	var indexed bool
	err = pool.QueryRow(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM pg_indexes
		  WHERE tablename = 'bookings' AND indexname = 'uniq_active_seat'
		)`).Scan(&indexed)
	require.NoError(t, err)
	require.True(t, indexed, "uniq_active_seat index missing after migration")
}

// repoFile resolves rel against the module root, found by walking up to go.mod.
func repoFile(t *testing.T, rel string) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, rel)
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found above working directory")
		dir = parent
	}
}

// startApp wires the production modules around the suite's pool and config.
func startApp(t *testing.T, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	t.Helper()

	var router *gin.Engine
	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(func() *pgxpool.Pool { return pool }),
		fx.Provide(func() *gin.Engine { return gin.New() }),
		bootstrap.LoggerModule,
		bootstrap.JWTModule,
		components.PersistenceModule,
		components.UseCaseModule,
		components.HandlerModule,
		fx.Populate(&router),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx), "start booking application")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			slog.Warn("stop booking application", "error", err.Error())
		}
	})

	return router
}
