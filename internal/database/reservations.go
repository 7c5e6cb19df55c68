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

const reservationSelect = `SELECT r.id, r.user_id, r.car_id, r.start_at, r.end_at, r.days, r.total, r.created_at,
       u.email,
       c.id, c.brand, c.model, c.price_per_day, c.status, c.created_at, c.updated_at
FROM reservations r
JOIN users u ON u.id = r.user_id
JOIN cars c ON c.id = r.car_id`

// HasOverlappingReservation reports whether any reservation of the car intersects
// the closed interval [start, end].
func (db *DB) HasOverlappingReservation(ctx context.Context, carID string, start, end time.Time) (bool, error) {
	return hasOverlap(ctx, db.DB, carID, start, end)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func hasOverlap(ctx context.Context, q queryRower, carID string, start, end time.Time) (bool, error) {
	query := `SELECT EXISTS (
                SELECT 1 FROM reservations
                WHERE car_id = ? AND start_at <= ? AND end_at >= ?
              )`
	var exists bool
	if err := q.QueryRowContext(ctx, query, carID, toMillis(end), toMillis(start)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return exists, nil
}

// CreateReservationWithLock stores the reservation and flips the car to UNAVAILABLE.
// The transaction begins IMMEDIATE, so the checks below and the writes cannot
// interleave with another booking.
func (db *DB) CreateReservationWithLock(ctx context.Context, reservation *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM cars WHERE id = ?`, reservation.CarID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCarNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read car: %w", err)
	}

	overlap, err := hasOverlap(ctx, tx, reservation.CarID, reservation.StartDate, reservation.EndDate)
	if err != nil {
		return err
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
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (id, user_id, car_id, start_at, end_at, days, total, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		reservation.ID,
		reservation.UserID,
		reservation.CarID,
		toMillis(reservation.StartDate),
		toMillis(reservation.EndDate),
		reservation.Days,
		reservation.Total,
		reservation.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE cars SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.CarStatusUnavailable, time.Now().UTC(), reservation.CarID, models.CarStatusAvailable)
	if err != nil {
		return fmt.Errorf("failed to update car status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrCarUnavailable
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetUserReservations returns the user's reservations newest first, each with its car.
func (db *DB) GetUserReservations(ctx context.Context, userID string) ([]*models.Reservation, error) {
	query := reservationSelect + ` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.rowid DESC`
	return db.queryReservations(ctx, query, userID)
}

// GetReservationsByDateRange returns reservations intersecting [start, end] ordered by start date.
func (db *DB) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	query := reservationSelect + ` WHERE r.start_at <= ? AND r.end_at >= ? ORDER BY r.start_at ASC, r.rowid ASC`
	return db.queryReservations(ctx, query, toMillis(end), toMillis(start))
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...interface{}) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]*models.Reservation, 0)
	for rows.Next() {
		var (
			r           models.Reservation
			car         models.Car
			startMillis int64
			endMillis   int64
		)
		err := rows.Scan(
			&r.ID, &r.UserID, &r.CarID, &startMillis, &endMillis, &r.Days, &r.Total, &r.CreatedAt,
			&r.UserEmail,
			&car.ID, &car.Brand, &car.Model, &car.PricePerDay, &car.Status, &car.CreatedAt, &car.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		r.StartDate = fromMillis(startMillis)
		r.EndDate = fromMillis(endMillis)
		r.Car = &car
		reservations = append(reservations, &r)
	}
	return reservations, rows.Err()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
