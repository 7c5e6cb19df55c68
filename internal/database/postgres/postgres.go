// Package postgres is the PostgreSQL implementation of domain.Repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	codeUniqueViolation        = "23505"
	codeForeignKeyViolation    = "23503"
	codeExclusionViolation     = "23P01"
	codeSerializationFailure   = "40001"
	codeDeadlockDetected       = "40P01"
	constraintReservationCar   = "reservations_car_id_fkey"
	carColumns                 = "id, brand, model, price_per_day, status, created_at, updated_at"
	reservationCarJoinedSelect = `SELECT r.id, r.user_id, r.car_id, r.start_at, r.end_at, r.days, r.total, r.created_at,
       u.email,
       c.id, c.brand, c.model, c.price_per_day, c.status, c.created_at, c.updated_at
FROM reservations r
JOIN users u ON u.id = r.user_id
JOIN cars c ON c.id = r.car_id`
)

type Storage struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// New connects to PostgreSQL. The schema is managed by cmd/migrator.
func New(ctx context.Context, connString string, logger *zerolog.Logger) (*Storage, error) {
	const op = "storage.postgres.New"

	if connString == "" {
		return nil, fmt.Errorf("%s: connection string is required", op)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info().Msg("postgres storage initialized")
	return &Storage{pool: pool, logger: logger}, nil
}

func (s *Storage) PingContext(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) ListCars(ctx context.Context) ([]*models.Car, error) {
	const op = "storage.postgres.ListCars"

	cars, err := s.queryCars(ctx, "SELECT "+carColumns+" FROM cars ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cars, nil
}

func (s *Storage) ListAvailableCars(ctx context.Context) ([]*models.Car, error) {
	const op = "storage.postgres.ListAvailableCars"

	cars, err := s.queryCars(ctx,
		"SELECT "+carColumns+" FROM cars WHERE status = $1 ORDER BY created_at DESC, id DESC",
		models.CarStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cars, nil
}

func (s *Storage) GetCar(ctx context.Context, id string) (*models.Car, error) {
	const op = "storage.postgres.GetCar"

	car, err := scanCar(s.pool.QueryRow(ctx, "SELECT "+carColumns+" FROM cars WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCarNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return car, nil
}

func (s *Storage) CreateCar(ctx context.Context, car *models.Car) error {
	const op = "storage.postgres.CreateCar"

	now := time.Now().UTC()
	if car.CreatedAt.IsZero() {
		car.CreatedAt = now
	}
	car.UpdatedAt = now
	if car.Status == "" {
		car.Status = models.CarStatusAvailable
	}

	query := `INSERT INTO cars (` + carColumns + `)
              VALUES (@id, @brand, @model, @price, @status, @createdAt, @updatedAt)`
	args := pgx.NamedArgs{
		"id":        car.ID,
		"brand":     car.Brand,
		"model":     car.Model,
		"price":     car.PricePerDay,
		"status":    car.Status,
		"createdAt": car.CreatedAt,
		"updatedAt": car.UpdatedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

func (s *Storage) UpdateCar(ctx context.Context, car *models.Car) error {
	const op = "storage.postgres.UpdateCar"

	car.UpdatedAt = time.Now().UTC()
	query := `UPDATE cars SET brand = @brand, model = @model, price_per_day = @price, status = @status, updated_at = @updatedAt
              WHERE id = @id`
	tag, err := s.pool.Exec(ctx, query, pgx.NamedArgs{
		"id":        car.ID,
		"brand":     car.Brand,
		"model":     car.Model,
		"price":     car.PricePerDay,
		"status":    car.Status,
		"updatedAt": car.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

func (s *Storage) DeleteCar(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteCar"

	tag, err := s.pool.Exec(ctx, "DELETE FROM cars WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

func (s *Storage) CountCars(ctx context.Context) (int, error) {
	const op = "storage.postgres.CountCars"

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cars").Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (s *Storage) FindOrCreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.postgres.FindOrCreateUser"

	// DO UPDATE (not DO NOTHING) so RETURNING yields the existing row as well.
	query := `INSERT INTO users (id, email, name, role, created_at, updated_at)
              VALUES (@id, @email, @name, @role, now(), now())
              ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
              RETURNING id, email, name, role, created_at, updated_at`
	args := pgx.NamedArgs{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	}

	var stored models.User
	err := s.pool.QueryRow(ctx, query, args).Scan(
		&stored.ID, &stored.Email, &stored.Name, &stored.Role, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.UpdatedAt = stored.UpdatedAt.UTC()
	return &stored, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.GetUserByEmail"

	query := "SELECT id, email, name, role, created_at, updated_at FROM users WHERE email = $1"
	var user models.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func hasOverlap(ctx context.Context, q queryRower, carID string, start, end time.Time) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM reservations
                WHERE car_id = $1 AND start_at <= $2 AND end_at >= $3
              )`
	var exists bool
	if err := q.QueryRow(ctx, query, carID, end.UTC(), start.UTC()).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Storage) HasOverlappingReservation(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	const op = "storage.postgres.HasOverlappingReservation"

	exists, err := hasOverlap(ctx, s.pool, carID, start, end)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateReservationWithLock runs the re-checks and both writes in one SERIALIZABLE
// transaction. The car row is locked FOR UPDATE and the exclusion constraint on
// reservations rejects any overlap that slips past the scan.
func (s *Storage) CreateReservationWithLock(ctx context.Context, reservation *models.Reservation) error {
	const op = "storage.postgres.CreateReservationWithLock"

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var status string
	err = tx.QueryRow(ctx, "SELECT status FROM cars WHERE id = $1 FOR UPDATE", reservation.CarID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCarNotFound
		}
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	overlap, err := hasOverlap(ctx, tx, reservation.CarID, reservation.StartDate, reservation.EndDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if overlap {
		return domain.ErrOverlap
	}
	if status != models.CarStatusAvailable {
		return domain.ErrCarUnavailable
	}

	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO reservations (id, user_id, car_id, start_at, end_at, days, total, created_at)
         VALUES (@id, @userId, @carId, @startAt, @endAt, @days, @total, @createdAt)`,
		pgx.NamedArgs{
			"id":        reservation.ID,
			"userId":    reservation.UserID,
			"carId":     reservation.CarID,
			"startAt":   reservation.StartDate.UTC(),
			"endAt":     reservation.EndDate.UTC(),
			"days":      reservation.Days,
			"total":     reservation.Total,
			"createdAt": reservation.CreatedAt,
		})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	tag, err := tx.Exec(ctx,
		"UPDATE cars SET status = $1, updated_at = now() WHERE id = $2 AND status = $3",
		models.CarStatusUnavailable, reservation.CarID, models.CarStatusAvailable)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCarUnavailable
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

func (s *Storage) GetUserReservations(ctx context.Context, userID string) ([]*models.Reservation, error) {
	const op = "storage.postgres.GetUserReservations"

	list, err := s.queryReservations(ctx,
		reservationCarJoinedSelect+" WHERE r.user_id = $1 ORDER BY r.created_at DESC, r.seq DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Storage) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	const op = "storage.postgres.GetReservationsByDateRange"

	list, err := s.queryReservations(ctx,
		reservationCarJoinedSelect+" WHERE r.start_at <= $1 AND r.end_at >= $2 ORDER BY r.start_at ASC, r.seq ASC",
		end.UTC(), start.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Storage) queryCars(ctx context.Context, query string, args ...any) ([]*models.Car, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := make([]*models.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

func scanCar(row pgx.Row) (*models.Car, error) {
	var car models.Car
	if err := row.Scan(&car.ID, &car.Brand, &car.Model, &car.PricePerDay, &car.Status, &car.CreatedAt, &car.UpdatedAt); err != nil {
		return nil, err
	}
	car.CreatedAt = car.CreatedAt.UTC()
	car.UpdatedAt = car.UpdatedAt.UTC()
	return &car, nil
}

func (s *Storage) queryReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*models.Reservation, 0)
	for rows.Next() {
		var (
			r   models.Reservation
			car models.Car
		)
		err := rows.Scan(
			&r.ID, &r.UserID, &r.CarID, &r.StartDate, &r.EndDate, &r.Days, &r.Total, &r.CreatedAt,
			&r.UserEmail,
			&car.ID, &car.Brand, &car.Model, &car.PricePerDay, &car.Status, &car.CreatedAt, &car.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		r.StartDate = r.StartDate.UTC()
		r.EndDate = r.EndDate.UTC()
		r.CreatedAt = r.CreatedAt.UTC()
		car.CreatedAt = car.CreatedAt.UTC()
		car.UpdatedAt = car.UpdatedAt.UTC()
		r.Car = &car
		list = append(list, &r)
	}
	return list, rows.Err()
}

// mapError translates PostgreSQL error codes into domain errors.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeExclusionViolation:
		return domain.ErrOverlap
	case codeForeignKeyViolation:
		if pgErr.ConstraintName == constraintReservationCar {
			return domain.ErrCarInUse
		}
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrConcurrentModification, pgErr.Message)
	case codeUniqueViolation:
		return fmt.Errorf("duplicate key %s: %w", pgErr.ConstraintName, err)
	}
	return err
}
