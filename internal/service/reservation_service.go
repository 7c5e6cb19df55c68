package service

import (
	"context"
	"strings"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/events"
	"rentcars/internal/metrics"
	"rentcars/internal/models"
	"rentcars/internal/rules"
	"rentcars/internal/worker"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReservationStore is the part of the repository the reservation workflow needs.
type ReservationStore interface {
	domain.UserRepository
	domain.ReservationRepository
	GetCar(ctx context.Context, id string) (*models.Car, error)
}

type ReservationService struct {
	repo       ReservationStore
	cache      domain.CarCache
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	validate   *validator.Validate
	logger     *zerolog.Logger

	newID func() string
	now   func() time.Time
}

func NewReservationService(
	repo ReservationStore,
	cache domain.CarCache,
	eventBus domain.EventPublisher,
	syncWorker domain.SyncWorker,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		repo:       repo,
		cache:      cache,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		validate:   NewValidator(),
		logger:     logger,
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation books a car for an inclusive range of calendar days.
func (s *ReservationService) CreateReservation(ctx context.Context, in models.CreateReservationInput) (*models.Reservation, error) {
	started := time.Now()
	reservation, err := s.createReservation(ctx, in)
	metrics.ObserveReservation(string(KindOf(err)), time.Since(started))
	if err != nil {
		return nil, err
	}

	s.afterCreate(ctx, reservation)
	return reservation, nil
}

func (s *ReservationService) createReservation(ctx context.Context, in models.CreateReservationInput) (*models.Reservation, error) {
	in.UserEmail = strings.TrimSpace(in.UserEmail)
	in.CarID = strings.TrimSpace(in.CarID)

	start := rules.StartOfDay(in.StartDate)
	end := rules.EndOfDay(in.EndDate)
	if err := rules.ValidateRange(start, end); err != nil {
		return nil, wrap(err)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, wrap(err)
	}

	user, err := s.repo.FindOrCreateUser(ctx, &models.User{
		ID:    s.newID(),
		Email: in.UserEmail,
		Name:  nameFromEmail(in.UserEmail),
		Role:  models.RoleCustomer,
	})
	if err != nil {
		return nil, wrap(err)
	}

	car, err := s.repo.GetCar(ctx, in.CarID)
	if err != nil {
		return nil, wrap(err)
	}

	overlap, err := s.repo.HasOverlappingReservation(ctx, car.ID, start.Time, end.Time)
	if err != nil {
		return nil, wrap(err)
	}
	if overlap {
		return nil, wrap(domain.ErrOverlap)
	}
	if !car.IsAvailable() {
		return nil, wrap(domain.ErrCarUnavailable)
	}

	days := rules.InclusiveDays(start.Time, end.Time)
	reservation := &models.Reservation{
		ID:        s.newID(),
		UserID:    user.ID,
		CarID:     car.ID,
		StartDate: start.Time,
		EndDate:   end.Time,
		Days:      days,
		Total:     rules.Total(car.PricePerDay, days),
		CreatedAt: s.now(),
	}

	if err := s.repo.CreateReservationWithLock(ctx, reservation); err != nil {
		return nil, wrap(err)
	}

	snapshot := *car
	snapshot.Status = models.CarStatusUnavailable
	reservation.Car = &snapshot
	reservation.UserEmail = user.Email
	return reservation, nil
}

// ListReservationsForUser returns the user's reservations, newest first.
// Unlike CreateReservation it never creates the user.
func (s *ReservationService) ListReservationsForUser(ctx context.Context, email string) ([]*models.Reservation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalidInput("userEmail is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, wrap(err)
	}

	reservations, err := s.repo.GetUserReservations(ctx, user.ID)
	if err != nil {
		return nil, wrap(err)
	}
	if reservations == nil {
		reservations = []*models.Reservation{}
	}
	return reservations, nil
}

// ListReservations returns reservations overlapping the [from, to] calendar window, by start date.
func (s *ReservationService) ListReservations(ctx context.Context, from, to string) ([]*models.Reservation, error) {
	start := rules.StartOfDay(from)
	end := rules.EndOfDay(to)
	if err := rules.ValidateRange(start, end); err != nil {
		return nil, wrap(err)
	}

	reservations, err := s.repo.GetReservationsByDateRange(ctx, start.Time, end.Time)
	if err != nil {
		return nil, wrap(err)
	}
	if reservations == nil {
		reservations = []*models.Reservation{}
	}
	return reservations, nil
}

// afterCreate runs the post-commit side effects. Failures are logged only.
func (s *ReservationService) afterCreate(ctx context.Context, reservation *models.Reservation) {
	logger := s.logger.With().Str("reservation_id", reservation.ID).Logger()
	logger.Info().
		Str("car_id", reservation.CarID).
		Str("user_id", reservation.UserID).
		Int("days", reservation.Days).
		Int64("total", reservation.Total).
		Msg("reservation created")

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventReservationCreated, reservationPayload(reservation)); err != nil {
			logger.Error().Err(err).Msg("publish event error")
		}
	}

	if s.syncWorker != nil {
		if err := s.syncWorker.EnqueueTask(ctx, worker.TaskUpsert, reservation); err != nil {
			logger.Error().Err(err).Msg("sync enqueue error")
		}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("cars cache invalidate error")
		}
	}
}

func reservationPayload(r *models.Reservation) events.ReservationEventPayload {
	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		UserEmail:     r.UserEmail,
		CarID:         r.CarID,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		Days:          r.Days,
		Total:         r.Total,
		CreatedAt:     r.CreatedAt,
	}
	if r.Car != nil {
		payload.CarBrand = r.Car.Brand
		payload.CarModel = r.Car.Model
	}
	return payload
}

func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local = strings.TrimSpace(local); local == "" {
		return models.DefaultCustomerName
	}
	return local
}
