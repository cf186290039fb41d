package components

import (
	"fmt"
	"log/slog"

	"cinema-booking/internal/domain/seat"
	"cinema-booking/internal/pkg/config"
	"cinema-booking/internal/pkg/keylock"
	"cinema-booking/internal/pkg/metrics"
	"cinema-booking/internal/pkg/retry"
	"cinema-booking/internal/usecase"
	"cinema-booking/internal/usecase/commands"
	"cinema-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseValidatorsModule,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	fx.Annotate(
		NewRegistry,
		fx.As(new(prometheus.Registerer)),
		fx.As(new(prometheus.Gatherer)),
	),
	metrics.NewWithRegistry,
	NewShowLocker,
	NewRetryPolicy,
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		NewSeatValidator,
		usecase.NewIdentity,
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewBookingCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewBookingQueries,
	),
)

// NewRegistry keeps application metrics off the global registry so tests can
// build the graph more than once.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewShowLocker(reg prometheus.Registerer) *keylock.Locker[uuid.UUID] {
	locks := keylock.New[uuid.UUID]()
	metrics.RegisterShowLocks(reg, locks.Len)
	return locks
}

func NewSeatValidator(cfg config.Config) (*seat.Validator, error) {
	v, err := seat.NewValidator(cfg.Booking.SeatPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid SEAT_PATTERN: %w", err)
	}
	return v, nil
}

func NewRetryPolicy(cfg config.Config, logger *slog.Logger) retry.Policy {
	return retry.Policy{
		Attempts:   cfg.Booking.MaxAttempts,
		BaseDelay:  cfg.Booking.BaseDelay,
		Multiplier: cfg.Booking.BackoffMultiplier,
		Logger:     logger,
	}
}
