package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"exclusion", &pgconn.PgError{Code: codeExclusionViolation}, domain.ErrOverlap},
		{"serialization", &pgconn.PgError{Code: codeSerializationFailure}, domain.ErrConcurrentModification},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, domain.ErrConcurrentModification},
		{"car fk", &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: constraintReservationCar}, domain.ErrCarInUse},
		{"wrapped exclusion", fmt.Errorf("commit: %w", &pgconn.PgError{Code: codeExclusionViolation}), domain.ErrOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.err), tt.want)
		})
	}

	assert.Equal(t, plain, mapError(plain))

	userFK := &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "reservations_user_id_fkey"}
	assert.Equal(t, error(userFK), mapError(userFK))

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, mapError(&pgconn.PgError{Code: codeUniqueViolation}), &pgErr)
}

func TestNew_EmptyConnString(t *testing.T) {
	logger := zerolog.Nop()
	_, err := New(context.Background(), "", &logger)
	assert.Error(t, err)
}

// setupStorage connects to the database in RENTCARS_TEST_POSTGRES_DSN with migrations applied.
func setupStorage(t *testing.T) *Storage {
	t.Helper()
	dsn := os.Getenv("RENTCARS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RENTCARS_TEST_POSTGRES_DSN is not set")
	}
	logger := zerolog.Nop()
	s, err := New(context.Background(), dsn, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorage_ReservationFlow(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	car := &models.Car{ID: uuid.NewString(), Brand: "Kia", Model: "Rio", PricePerDay: 100000}
	require.NoError(t, s.CreateCar(ctx, car))

	user, err := s.FindOrCreateUser(ctx, &models.User{
		ID: uuid.NewString(), Email: gofakeit.Email(), Name: "n", Role: models.RoleCustomer,
	})
	require.NoError(t, err)

	again, err := s.FindOrCreateUser(ctx, &models.User{
		ID: uuid.NewString(), Email: user.Email, Name: "other", Role: models.RoleCustomer,
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 12, 23, 59, 59, 999000000, time.UTC)

	require.NoError(t, s.CreateReservationWithLock(ctx, &models.Reservation{
		ID: uuid.NewString(), UserID: user.ID, CarID: car.ID, StartDate: start, EndDate: end, Days: 3, Total: 300000,
	}))

	err = s.CreateReservationWithLock(ctx, &models.Reservation{
		ID: uuid.NewString(), UserID: user.ID, CarID: car.ID, StartDate: end, EndDate: end, Days: 1, Total: 100000,
	})
	assert.ErrorIs(t, err, domain.ErrOverlap)

	list, err := s.GetUserReservations(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].EndDate.Equal(end))
	assert.Equal(t, models.CarStatusUnavailable, list[0].Car.Status)

	assert.ErrorIs(t, s.DeleteCar(ctx, car.ID), domain.ErrCarInUse)
}

func TestStorage_ConcurrentReservations(t *testing.T) {
	s := setupStorage(t)
	ctx := context.Background()

	car := &models.Car{ID: uuid.NewString(), Brand: "Kia", Model: "Ceed", PricePerDay: 1}
	require.NoError(t, s.CreateCar(ctx, car))

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := s.FindOrCreateUser(ctx, &models.User{
				ID: uuid.NewString(), Email: gofakeit.Email(), Name: "n", Role: models.RoleCustomer,
			})
			if err != nil {
				errs <- err
				return
			}
			errs <- s.CreateReservationWithLock(ctx, &models.Reservation{
				ID:        uuid.NewString(),
				UserID:    user.ID,
				CarID:     car.ID,
				StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
				Days:      2,
				Total:     2,
			})
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)
}
