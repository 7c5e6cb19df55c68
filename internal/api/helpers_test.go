package api

import (
	"context"
	"io"
	"testing"

	"rentcars/internal/config"
	"rentcars/internal/database"
	"rentcars/internal/models"
	"rentcars/internal/service"

	"github.com/rs/zerolog"
)

type testEnv struct {
	db           *database.DB
	reservations *service.ReservationService
	cars         *service.CarService
	cfg          config.APIConfig
	logger       *zerolog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cars := service.NewCarService(db, nil, nil, &logger)
	if _, err := cars.SeedCars(context.Background(), []*models.Car{
		{ID: "C1", Brand: "Toyota", Model: "Camry", PricePerDay: 100000},
		{ID: "C2", Brand: "Kia", Model: "Rio", PricePerDay: 50000},
	}); err != nil {
		t.Fatalf("seed cars: %v", err)
	}

	return &testEnv{
		db:           db,
		reservations: service.NewReservationService(db, nil, nil, nil, &logger),
		cars:         cars,
		cfg: config.APIConfig{
			HTTP:      config.APIHTTPConfig{Enabled: true},
			GRPC:      config.APIGRPCConfig{Enabled: true},
			RateLimit: config.APIRateLimitConfig{RPS: 1000, Burst: 1000},
		},
		logger: &logger,
	}
}
