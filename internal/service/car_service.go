package service

import (
	"context"
	"strings"

	"rentcars/internal/domain"
	"rentcars/internal/events"
	"rentcars/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CarService struct {
	repo     domain.CarRepository
	cache    domain.CarCache
	eventBus domain.EventPublisher
	validate *validator.Validate
	logger   *zerolog.Logger
	newID    func() string
}

func NewCarService(repo domain.CarRepository, cache domain.CarCache, eventBus domain.EventPublisher, logger *zerolog.Logger) *CarService {
	return &CarService{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		validate: NewValidator(),
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// ListAvailableCars reads through the cache. A broken cache only costs a store query.
func (s *CarService) ListAvailableCars(ctx context.Context) ([]*models.Car, error) {
	if s.cache != nil {
		cars, ok, err := s.cache.GetAvailable(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cars cache read error")
		} else if ok {
			return nonNilCars(cars), nil
		}
	}

	cars, err := s.repo.ListAvailableCars(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	cars = nonNilCars(cars)

	if s.cache != nil {
		if err := s.cache.SetAvailable(ctx, cars); err != nil {
			s.logger.Warn().Err(err).Msg("cars cache write error")
		}
	}
	return cars, nil
}

func (s *CarService) ListCars(ctx context.Context) ([]*models.Car, error) {
	cars, err := s.repo.ListCars(ctx)
	if err != nil {
		return nil, wrap(err)
	}
	return nonNilCars(cars), nil
}

func (s *CarService) GetCar(ctx context.Context, id string) (*models.Car, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalidInput("car id is required")
	}
	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return nil, wrap(err)
	}
	return car, nil
}

func (s *CarService) CreateCar(ctx context.Context, in models.CarInput) (*models.Car, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	car := &models.Car{
		ID:          s.newID(),
		Brand:       in.Brand,
		Model:       in.Model,
		PricePerDay: *in.PricePerDay,
		Status:      in.Status,
	}
	if car.Status == "" {
		car.Status = models.CarStatusAvailable
	}
	if err := s.repo.CreateCar(ctx, car); err != nil {
		return nil, wrap(err)
	}

	s.changed(ctx, events.EventCarCreated, car)
	return car, nil
}

// UpdateCar replaces the car's fields. An empty status keeps the current one.
func (s *CarService) UpdateCar(ctx context.Context, id string, in models.CarInput) (*models.Car, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	car, err := s.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	car.Brand = in.Brand
	car.Model = in.Model
	car.PricePerDay = *in.PricePerDay
	if in.Status != "" {
		car.Status = in.Status
	}

	if err := s.repo.UpdateCar(ctx, car); err != nil {
		return nil, wrap(err)
	}

	s.changed(ctx, events.EventCarUpdated, car)
	return car, nil
}

func (s *CarService) DeleteCar(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalidInput("car id is required")
	}
	if err := s.repo.DeleteCar(ctx, id); err != nil {
		return wrap(err)
	}

	s.changed(ctx, events.EventCarDeleted, &models.Car{ID: id})
	return nil
}

// SeedCars fills an empty inventory. It returns how many cars were inserted.
func (s *CarService) SeedCars(ctx context.Context, cars []*models.Car) (int, error) {
	count, err := s.repo.CountCars(ctx)
	if err != nil {
		return 0, wrap(err)
	}
	if count > 0 {
		s.logger.Debug().Int("count", count).Msg("inventory not empty, skipping seed")
		return 0, nil
	}

	inserted := 0
	for _, seed := range cars {
		price := seed.PricePerDay
		in, err := s.normalize(models.CarInput{
			Brand:       seed.Brand,
			Model:       seed.Model,
			PricePerDay: &price,
			Status:      seed.Status,
		})
		if err != nil {
			return inserted, err
		}

		car := &models.Car{
			ID:          strings.TrimSpace(seed.ID),
			Brand:       in.Brand,
			Model:       in.Model,
			PricePerDay: price,
			Status:      in.Status,
		}
		if car.ID == "" {
			car.ID = s.newID()
		}
		if err := s.repo.CreateCar(ctx, car); err != nil {
			return inserted, wrap(err)
		}
		inserted++
	}

	if inserted > 0 {
		s.invalidate(ctx)
		s.logger.Info().Int("count", inserted).Msg("inventory seeded")
	}
	return inserted, nil
}

func (s *CarService) normalize(in models.CarInput) (models.CarInput, error) {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if err := s.validate.Struct(in); err != nil {
		return in, wrap(err)
	}
	return in, nil
}

func (s *CarService) changed(ctx context.Context, eventType string, car *models.Car) {
	s.invalidate(ctx)

	if s.eventBus == nil {
		return
	}
	payload := events.CarEventPayload{
		CarID:       car.ID,
		Brand:       car.Brand,
		Model:       car.Model,
		PricePerDay: car.PricePerDay,
		Status:      car.Status,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("car_id", car.ID).Msg("publish event error")
	}
}

func (s *CarService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("cars cache invalidate error")
	}
}

func nonNilCars(cars []*models.Car) []*models.Car {
	if cars == nil {
		return []*models.Car{}
	}
	return cars
}
