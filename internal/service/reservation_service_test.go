package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/events"
	"rentcars/internal/models"
	"rentcars/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	jan10 = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	jan12 = time.Date(2025, 1, 12, 23, 59, 59, 999000000, time.UTC)
)

type reservationFixture struct {
	repo    *mockRepo
	bus     *mockEventBus
	worker  *mockWorker
	cache   *mockCache
	service *ReservationService
}

func newReservationFixture() *reservationFixture {
	logger := zerolog.Nop()
	f := &reservationFixture{
		repo:   new(mockRepo),
		bus:    new(mockEventBus),
		worker: new(mockWorker),
		cache:  new(mockCache),
	}
	f.service = NewReservationService(f.repo, f.cache, f.bus, f.worker, &logger)
	ids := 0
	f.service.newID = func() string {
		ids++
		return []string{"u-new", "r-new"}[(ids-1)%2]
	}
	f.service.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func validInput() models.CreateReservationInput {
	return models.CreateReservationInput{
		UserEmail: " alice@example.com ",
		CarID:     "C1",
		StartDate: "2025-01-10",
		EndDate:   "2025-01-12",
	}
}

func TestReservationService_CreateReservation(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: "u-1", Email: "alice@example.com", Name: "alice", Role: models.RoleCustomer}
	car := &models.Car{ID: "C1", Brand: "Toyota", Model: "Camry", PricePerDay: 100000, Status: models.CarStatusAvailable}

	t.Run("Success", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindOrCreateUser", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "alice@example.com" && u.Name == "alice" && u.Role == models.RoleCustomer
		})).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(car, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(false, nil).Once()
		f.repo.On("CreateReservationWithLock", ctx, mock.AnythingOfType("*models.Reservation")).Return(nil).Once()
		f.bus.On("PublishJSON", events.EventReservationCreated, mock.MatchedBy(func(p events.ReservationEventPayload) bool {
			return p.ReservationID == "r-new" && p.CarBrand == "Toyota" && p.Total == 300000
		})).Return(nil).Once()
		f.worker.On("EnqueueTask", ctx, worker.TaskUpsert, mock.AnythingOfType("*models.Reservation")).Return(nil).Once()
		f.cache.On("Invalidate", ctx).Return(nil).Once()

		res, err := f.service.CreateReservation(ctx, validInput())
		require.NoError(t, err)
		assert.Equal(t, "r-new", res.ID)
		assert.Equal(t, "u-1", res.UserID)
		assert.Equal(t, 3, res.Days)
		assert.Equal(t, int64(300000), res.Total)
		assert.Equal(t, jan10, res.StartDate)
		assert.Equal(t, jan12, res.EndDate)
		assert.Equal(t, "alice@example.com", res.UserEmail)
		require.NotNil(t, res.Car)
		assert.Equal(t, models.CarStatusUnavailable, res.Car.Status)
		assert.Equal(t, models.CarStatusAvailable, car.Status)

		f.repo.AssertExpectations(t)
		f.bus.AssertExpectations(t)
		f.worker.AssertExpectations(t)
		f.cache.AssertExpectations(t)
	})

	t.Run("SideEffectFailuresDoNotFailCall", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(car, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(false, nil).Once()
		f.repo.On("CreateReservationWithLock", ctx, mock.Anything).Return(nil).Once()
		f.bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus down")).Once()
		f.worker.On("EnqueueTask", ctx, mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()
		f.cache.On("Invalidate", ctx).Return(errors.New("redis down")).Once()

		res, err := f.service.CreateReservation(ctx, validInput())
		require.NoError(t, err)
		assert.NotNil(t, res)
	})

	t.Run("InvalidDate", func(t *testing.T) {
		f := newReservationFixture()
		in := validInput()
		in.StartDate = "2025-13-45"

		_, err := f.service.CreateReservation(ctx, in)
		assert.Equal(t, KindInvalidDate, KindOf(err))
		f.repo.AssertNotCalled(t, "FindOrCreateUser", mock.Anything, mock.Anything)
	})

	t.Run("EmptyDateIsInvalidDate", func(t *testing.T) {
		f := newReservationFixture()
		in := validInput()
		in.EndDate = ""

		_, err := f.service.CreateReservation(ctx, in)
		assert.Equal(t, KindInvalidDate, KindOf(err))
	})

	t.Run("InvalidRange", func(t *testing.T) {
		f := newReservationFixture()
		in := validInput()
		in.StartDate, in.EndDate = "2025-01-12", "2025-01-10"

		_, err := f.service.CreateReservation(ctx, in)
		assert.Equal(t, KindInvalidRange, KindOf(err))
		f.repo.AssertNotCalled(t, "FindOrCreateUser", mock.Anything, mock.Anything)
	})

	t.Run("MissingEmail", func(t *testing.T) {
		f := newReservationFixture()
		in := validInput()
		in.UserEmail = "   "

		_, err := f.service.CreateReservation(ctx, in)
		assert.Equal(t, KindInvalidInput, KindOf(err))
		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Contains(t, svcErr.Message, "userEmail is required")
	})

	t.Run("CarNotFound", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(nil, domain.ErrCarNotFound).Once()

		_, err := f.service.CreateReservation(ctx, validInput())
		assert.Equal(t, KindCarNotFound, KindOf(err))
		f.repo.AssertNotCalled(t, "CreateReservationWithLock", mock.Anything, mock.Anything)
	})

	t.Run("Overlap", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(car, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(true, nil).Once()

		_, err := f.service.CreateReservation(ctx, validInput())
		assert.Equal(t, KindOverlap, KindOf(err))
	})

	t.Run("OverlapReportedBeforeUnavailable", func(t *testing.T) {
		f := newReservationFixture()
		busy := *car
		busy.Status = models.CarStatusUnavailable
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(&busy, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(true, nil).Once()

		_, err := f.service.CreateReservation(ctx, validInput())
		assert.Equal(t, KindOverlap, KindOf(err))
	})

	t.Run("Unavailable", func(t *testing.T) {
		f := newReservationFixture()
		busy := *car
		busy.Status = models.CarStatusUnavailable
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(&busy, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(false, nil).Once()

		_, err := f.service.CreateReservation(ctx, validInput())
		assert.Equal(t, KindCarUnavailable, KindOf(err))
	})

	t.Run("LostRaceInTransaction", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(car, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(false, nil).Once()
		f.repo.On("CreateReservationWithLock", ctx, mock.Anything).Return(domain.ErrOverlap).Once()

		_, err := f.service.CreateReservation(ctx, validInput())
		assert.Equal(t, KindOverlap, KindOf(err))
		f.bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})

	t.Run("WriteConflictIsPersistence", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("FindOrCreateUser", ctx, mock.Anything).Return(user, nil).Once()
		f.repo.On("GetCar", ctx, "C1").Return(car, nil).Once()
		f.repo.On("HasOverlappingReservation", ctx, "C1", jan10, jan12).Return(false, nil).Once()
		f.repo.On("CreateReservationWithLock", ctx, mock.Anything).Return(errors.New("database is locked")).Once()

		_, err := f.service.CreateReservation(ctx, validInput())
		assert.Equal(t, KindPersistence, KindOf(err))
		assert.False(t, IsClientError(err))
	})
}

func TestReservationService_ListReservationsForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("BlankEmail", func(t *testing.T) {
		f := newReservationFixture()
		_, err := f.service.ListReservationsForUser(ctx, " ")
		assert.Equal(t, KindInvalidInput, KindOf(err))
	})

	t.Run("UnknownUser", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, domain.ErrUserNotFound).Once()

		_, err := f.service.ListReservationsForUser(ctx, "ghost@example.com")
		assert.Equal(t, KindUserNotFound, KindOf(err))
		f.repo.AssertNotCalled(t, "FindOrCreateUser", mock.Anything, mock.Anything)
	})

	t.Run("EmptyHistory", func(t *testing.T) {
		f := newReservationFixture()
		f.repo.On("GetUserByEmail", ctx, "a@example.com").Return(&models.User{ID: "u-1"}, nil).Once()
		f.repo.On("GetUserReservations", ctx, "u-1").Return(nil, nil).Once()

		got, err := f.service.ListReservationsForUser(ctx, "a@example.com")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestReservationService_ListReservations(t *testing.T) {
	ctx := context.Background()

	t.Run("Window", func(t *testing.T) {
		f := newReservationFixture()
		list := []*models.Reservation{{ID: "r-1"}}
		f.repo.On("GetReservationsByDateRange", ctx, jan10, jan12).Return(list, nil).Once()

		got, err := f.service.ListReservations(ctx, "2025-01-10", "2025-01-12")
		require.NoError(t, err)
		assert.Equal(t, list, got)
	})

	t.Run("BadWindow", func(t *testing.T) {
		f := newReservationFixture()
		_, err := f.service.ListReservations(ctx, "2025-01-12", "2025-01-10")
		assert.Equal(t, KindInvalidRange, KindOf(err))
	})
}

func TestNameFromEmail(t *testing.T) {
	assert.Equal(t, "alice", nameFromEmail("alice@example.com"))
	assert.Equal(t, models.DefaultCustomerName, nameFromEmail("@example.com"))
	assert.Equal(t, "bob", nameFromEmail("bob"))
}
