package domain

import (
	"context"
	"time"

	"rentcars/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type CarRepository interface {
	ListCars(ctx context.Context) ([]*models.Car, error)
	ListAvailableCars(ctx context.Context) ([]*models.Car, error)
	GetCar(ctx context.Context, id string) (*models.Car, error)
	CreateCar(ctx context.Context, car *models.Car) error
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id string) error
	CountCars(ctx context.Context) (int, error)
}

type UserRepository interface {
	// FindOrCreateUser returns the user with user.Email, inserting user when no such row
	// exists. The unique email constraint guards concurrent calls.
	FindOrCreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type ReservationRepository interface {
	HasOverlappingReservation(ctx context.Context, carID string, start, end time.Time) (bool, error)
	// CreateReservationWithLock re-checks the car and the overlap, inserts the reservation
	// and marks the car UNAVAILABLE in one serializable transaction.
	CreateReservationWithLock(ctx context.Context, reservation *models.Reservation) error
	GetUserReservations(ctx context.Context, userID string) ([]*models.Reservation, error)
	GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
}

type SyncTaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type Repository interface {
	CarRepository
	UserRepository
	ReservationRepository
	SyncTaskStore
	PingContext(ctx context.Context) error
	Close() error
}

type CarCache interface {
	GetAvailable(ctx context.Context) ([]*models.Car, bool, error)
	SetAvailable(ctx context.Context, cars []*models.Car) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, reservation *models.Reservation) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type ReservationService interface {
	CreateReservation(ctx context.Context, in models.CreateReservationInput) (*models.Reservation, error)
	ListReservationsForUser(ctx context.Context, email string) ([]*models.Reservation, error)
	ListReservations(ctx context.Context, from, to string) ([]*models.Reservation, error)
}

type CarService interface {
	ListAvailableCars(ctx context.Context) ([]*models.Car, error)
	ListCars(ctx context.Context) ([]*models.Car, error)
	GetCar(ctx context.Context, id string) (*models.Car, error)
	CreateCar(ctx context.Context, in models.CarInput) (*models.Car, error)
	UpdateCar(ctx context.Context, id string, in models.CarInput) (*models.Car, error)
	DeleteCar(ctx context.Context, id string) error
}
