package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/models"
)

const carColumns = `id, brand, model, price_per_day, status, created_at, updated_at`

func (db *DB) ListCars(ctx context.Context) ([]*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars ORDER BY created_at DESC, rowid DESC`
	return db.queryCars(ctx, query)
}

func (db *DB) ListAvailableCars(ctx context.Context) ([]*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE status = ? ORDER BY created_at DESC, rowid DESC`
	return db.queryCars(ctx, query, models.CarStatusAvailable)
}

func (db *DB) GetCar(ctx context.Context, id string) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = ?`
	car, err := scanCar(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return car, nil
}

func (db *DB) CreateCar(ctx context.Context, car *models.Car) error {
	now := time.Now().UTC()
	if car.CreatedAt.IsZero() {
		car.CreatedAt = now
	}
	car.UpdatedAt = now
	if car.Status == "" {
		car.Status = models.CarStatusAvailable
	}

	query := `INSERT INTO cars (` + carColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		car.ID, car.Brand, car.Model, car.PricePerDay, car.Status, car.CreatedAt, car.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("car %s already exists: %w", car.ID, err)
		}
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

func (db *DB) UpdateCar(ctx context.Context, car *models.Car) error {
	car.UpdatedAt = time.Now().UTC()
	query := `UPDATE cars SET brand = ?, model = ?, price_per_day = ?, status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		car.Brand, car.Model, car.PricePerDay, car.Status, car.UpdatedAt, car.ID)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

func (db *DB) DeleteCar(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCarInUse
		}
		return fmt.Errorf("failed to delete car: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

func (db *DB) CountCars(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cars: %w", err)
	}
	return count, nil
}

func (db *DB) queryCars(ctx context.Context, query string, args ...interface{}) ([]*models.Car, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cars: %w", err)
	}
	defer rows.Close()

	cars := make([]*models.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCar(row rowScanner) (*models.Car, error) {
	var car models.Car
	err := row.Scan(&car.ID, &car.Brand, &car.Model, &car.PricePerDay, &car.Status, &car.CreatedAt, &car.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &car, nil
}
