package service

import (
	"context"
	"time"

	"rentcars/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListCars(ctx context.Context) ([]*models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Car), args.Error(1)
}
func (m *mockRepo) ListAvailableCars(ctx context.Context) ([]*models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Car), args.Error(1)
}
func (m *mockRepo) GetCar(ctx context.Context, id string) (*models.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}
func (m *mockRepo) CreateCar(ctx context.Context, car *models.Car) error {
	return m.Called(ctx, car).Error(0)
}
func (m *mockRepo) UpdateCar(ctx context.Context, car *models.Car) error {
	return m.Called(ctx, car).Error(0)
}
func (m *mockRepo) DeleteCar(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockRepo) CountCars(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) FindOrCreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) HasOverlappingReservation(ctx context.Context, carID string, s, e time.Time) (bool, error) {
	args := m.Called(ctx, carID, s, e)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}
func (m *mockRepo) GetUserReservations(ctx context.Context, userID string) ([]*models.Reservation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}
func (m *mockRepo) GetReservationsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Reservation, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reservation), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, tt string, r *models.Reservation) error {
	return m.Called(ctx, tt, r).Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetAvailable(ctx context.Context) ([]*models.Car, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*models.Car), args.Bool(1), args.Error(2)
}
func (m *mockCache) SetAvailable(ctx context.Context, cars []*models.Car) error {
	return m.Called(ctx, cars).Error(0)
}
func (m *mockCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
