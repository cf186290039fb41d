package components

import (
	"context"
	"fmt"
	"log/slog"

	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/infra/cache"
	"cinema-booking/internal/infra/memstore"
	"cinema-booking/internal/infra/repository"
	"cinema-booking/internal/infra/uow"
	"cinema-booking/internal/pkg/clock"
	"cinema-booking/internal/pkg/config"
	"cinema-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	storeModule,
	cacheModule,
)

var baseOption = fx.Provide(
	clock.NewRealClock,
)

var storeModule = fx.Module("persistence/store",
	fx.Provide(
		NewStores,
	),
)

var cacheModule = fx.Module("persistence/cache",
	fx.Provide(
		NewRedisClient,
		NewAvailabilityCache,
	),
)

// Stores exposes the ledger backend through the usecase ports.
type Stores struct {
	fx.Out

	UnitOfWork shared.UnitOfWork
	Catalog    shared.Catalog
}

func NewStores(cfg config.Config, pool *pgxpool.Pool, clk clock.Clock, logger *slog.Logger) (Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if pool == nil {
			return Stores{}, fmt.Errorf("postgres store driver requires a database pool")
		}
		return Stores{
			UnitOfWork: uow.NewPostgresUoW(pool, clk, logger),
			Catalog:    repository.NewCatalogRepository(pool, logger),
		}, nil
	case config.StoreDriverMemory:
		store := memstore.New(clk, logger)
		s, err := show.New(uuid.New(), cfg.Store.SeedShowCapacity)
		if err != nil {
			return Stores{}, fmt.Errorf("seed show: %w", err)
		}
		store.AddShow(s)
		logger.Warn("using in-memory store, bookings are lost on restart",
			"seed_show_id", s.ID,
			"capacity", s.Capacity)
		return Stores{UnitOfWork: store, Catalog: store}, nil
	default:
		return Stores{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}

func NewRedisClient(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) *redis.Client {
	client := cache.NewRedisClient(cfg.Redis, logger)
	if client != nil {
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return client.Close()
			},
		})
	}
	return client
}

// NewAvailabilityCache falls back to a no-op cache when Redis is unavailable.
func NewAvailabilityCache(client *redis.Client, cfg config.Config) shared.AvailabilityCache {
	if client == nil {
		return cache.Noop{}
	}
	return cache.NewAvailabilityCache(client, cfg.Booking.AvailabilityCacheTTL)
}
