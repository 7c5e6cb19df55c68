package service

import (
	"context"
	"errors"
	"testing"

	"rentcars/internal/domain"
	"rentcars/internal/events"
	"rentcars/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCarFixture() (*CarService, *mockRepo, *mockCache, *mockEventBus) {
	logger := zerolog.Nop()
	repo, cache, bus := new(mockRepo), new(mockCache), new(mockEventBus)
	s := NewCarService(repo, cache, bus, &logger)
	s.newID = func() string { return "car-new" }
	return s, repo, cache, bus
}

func price(v int64) *int64 { return &v }

func TestCarService_ListAvailableCars(t *testing.T) {
	ctx := context.Background()
	cars := []*models.Car{{ID: "C1", Status: models.CarStatusAvailable}}

	t.Run("CacheHit", func(t *testing.T) {
		s, repo, cache, _ := newCarFixture()
		cache.On("GetAvailable", ctx).Return(cars, true, nil).Once()

		got, err := s.ListAvailableCars(ctx)
		require.NoError(t, err)
		assert.Equal(t, cars, got)
		repo.AssertNotCalled(t, "ListAvailableCars", mock.Anything)
	})

	t.Run("CacheMissFillsCache", func(t *testing.T) {
		s, repo, cache, _ := newCarFixture()
		cache.On("GetAvailable", ctx).Return(nil, false, nil).Once()
		repo.On("ListAvailableCars", ctx).Return(cars, nil).Once()
		cache.On("SetAvailable", ctx, cars).Return(nil).Once()

		got, err := s.ListAvailableCars(ctx)
		require.NoError(t, err)
		assert.Equal(t, cars, got)
		cache.AssertExpectations(t)
	})

	t.Run("CacheErrorFallsThrough", func(t *testing.T) {
		s, repo, cache, _ := newCarFixture()
		cache.On("GetAvailable", ctx).Return(nil, false, errors.New("redis down")).Once()
		repo.On("ListAvailableCars", ctx).Return(nil, nil).Once()
		cache.On("SetAvailable", ctx, []*models.Car{}).Return(errors.New("redis down")).Once()

		got, err := s.ListAvailableCars(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("StoreError", func(t *testing.T) {
		s, repo, cache, _ := newCarFixture()
		cache.On("GetAvailable", ctx).Return(nil, false, nil).Once()
		repo.On("ListAvailableCars", ctx).Return(nil, errors.New("io")).Once()

		_, err := s.ListAvailableCars(ctx)
		assert.Equal(t, KindPersistence, KindOf(err))
	})
}

func TestCarService_CreateCar(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsStatus", func(t *testing.T) {
		s, repo, cache, bus := newCarFixture()
		repo.On("CreateCar", ctx, mock.MatchedBy(func(c *models.Car) bool {
			return c.ID == "car-new" && c.Brand == "Kia" && c.Status == models.CarStatusAvailable
		})).Return(nil).Once()
		cache.On("Invalidate", ctx).Return(nil).Once()
		bus.On("PublishJSON", events.EventCarCreated, mock.Anything).Return(nil).Once()

		car, err := s.CreateCar(ctx, models.CarInput{Brand: " Kia ", Model: "Rio", PricePerDay: price(5000)})
		require.NoError(t, err)
		assert.Equal(t, "Kia", car.Brand)
		assert.Equal(t, int64(5000), car.PricePerDay)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("Validation", func(t *testing.T) {
		s, repo, _, _ := newCarFixture()
		cases := []models.CarInput{
			{Model: "Rio", PricePerDay: price(1)},
			{Brand: "Kia", Model: "  ", PricePerDay: price(1)},
			{Brand: "Kia", Model: "Rio"},
			{Brand: "Kia", Model: "Rio", PricePerDay: price(-1)},
			{Brand: "Kia", Model: "Rio", PricePerDay: price(1), Status: "broken"},
		}
		for _, in := range cases {
			_, err := s.CreateCar(ctx, in)
			assert.Equal(t, KindInvalidInput, KindOf(err), "%+v", in)
		}
		repo.AssertNotCalled(t, "CreateCar", mock.Anything, mock.Anything)
	})

	t.Run("LowercaseStatusAccepted", func(t *testing.T) {
		s, repo, cache, bus := newCarFixture()
		repo.On("CreateCar", ctx, mock.MatchedBy(func(c *models.Car) bool {
			return c.Status == models.CarStatusUnavailable
		})).Return(nil).Once()
		cache.On("Invalidate", ctx).Return(nil).Once()
		bus.On("PublishJSON", events.EventCarCreated, mock.Anything).Return(nil).Once()

		_, err := s.CreateCar(ctx, models.CarInput{Brand: "Kia", Model: "Rio", PricePerDay: price(0), Status: "unavailable"})
		require.NoError(t, err)
	})
}

func TestCarService_UpdateCar(t *testing.T) {
	ctx := context.Background()

	t.Run("KeepsStatusWhenEmpty", func(t *testing.T) {
		s, repo, cache, bus := newCarFixture()
		repo.On("GetCar", ctx, "C1").Return(&models.Car{ID: "C1", Status: models.CarStatusUnavailable}, nil).Once()
		repo.On("UpdateCar", ctx, mock.MatchedBy(func(c *models.Car) bool {
			return c.Status == models.CarStatusUnavailable && c.PricePerDay == 7000
		})).Return(nil).Once()
		cache.On("Invalidate", ctx).Return(nil).Once()
		bus.On("PublishJSON", events.EventCarUpdated, mock.Anything).Return(nil).Once()

		car, err := s.UpdateCar(ctx, "C1", models.CarInput{Brand: "Kia", Model: "Rio", PricePerDay: price(7000)})
		require.NoError(t, err)
		assert.Equal(t, "Rio", car.Model)
		repo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		s, repo, _, _ := newCarFixture()
		repo.On("GetCar", ctx, "nope").Return(nil, domain.ErrCarNotFound).Once()

		_, err := s.UpdateCar(ctx, "nope", models.CarInput{Brand: "Kia", Model: "Rio", PricePerDay: price(1)})
		assert.Equal(t, KindCarNotFound, KindOf(err))
	})
}

func TestCarService_DeleteCar(t *testing.T) {
	ctx := context.Background()

	t.Run("InUse", func(t *testing.T) {
		s, repo, _, bus := newCarFixture()
		repo.On("DeleteCar", ctx, "C1").Return(domain.ErrCarInUse).Once()

		err := s.DeleteCar(ctx, "C1")
		assert.Equal(t, KindCarInUse, KindOf(err))
		bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("Deleted", func(t *testing.T) {
		s, repo, cache, bus := newCarFixture()
		repo.On("DeleteCar", ctx, "C1").Return(nil).Once()
		cache.On("Invalidate", ctx).Return(nil).Once()
		bus.On("PublishJSON", events.EventCarDeleted, events.CarEventPayload{CarID: "C1"}).Return(nil).Once()

		require.NoError(t, s.DeleteCar(ctx, "C1"))
		bus.AssertExpectations(t)
	})

	t.Run("BlankID", func(t *testing.T) {
		s, _, _, _ := newCarFixture()
		assert.Equal(t, KindInvalidInput, KindOf(s.DeleteCar(ctx, "")))
	})
}

func TestCarService_SeedCars(t *testing.T) {
	ctx := context.Background()
	seed := []*models.Car{
		{ID: "C1", Brand: "Toyota", Model: "Camry", PricePerDay: 100000},
		{Brand: "Kia", Model: "Rio", PricePerDay: 50000, Status: models.CarStatusUnavailable},
	}

	t.Run("EmptyInventory", func(t *testing.T) {
		s, repo, cache, _ := newCarFixture()
		repo.On("CountCars", ctx).Return(0, nil).Once()
		repo.On("CreateCar", ctx, mock.MatchedBy(func(c *models.Car) bool { return c.ID == "C1" })).Return(nil).Once()
		repo.On("CreateCar", ctx, mock.MatchedBy(func(c *models.Car) bool { return c.ID == "car-new" })).Return(nil).Once()
		cache.On("Invalidate", ctx).Return(nil).Once()

		n, err := s.SeedCars(ctx, seed)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		repo.AssertExpectations(t)
	})

	t.Run("NonEmptyInventory", func(t *testing.T) {
		s, repo, _, _ := newCarFixture()
		repo.On("CountCars", ctx).Return(3, nil).Once()

		n, err := s.SeedCars(ctx, seed)
		require.NoError(t, err)
		assert.Zero(t, n)
		repo.AssertNotCalled(t, "CreateCar", mock.Anything, mock.Anything)
	})

	t.Run("InvalidSeed", func(t *testing.T) {
		s, repo, _, _ := newCarFixture()
		repo.On("CountCars", ctx).Return(0, nil).Once()

		_, err := s.SeedCars(ctx, []*models.Car{{ID: "bad"}})
		assert.Equal(t, KindInvalidInput, KindOf(err))
	})
}
