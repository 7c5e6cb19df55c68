// Package rules holds the pure date and pricing rules of a reservation.
// Nothing here performs I/O or keeps state.
package rules

import (
	"errors"
	"strings"
	"time"

	"rentcars/internal/models"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("end date is before start date")
)

const day = 24 * time.Hour

// Instant is a calendar date normalized to an absolute UTC instant.
// Valid is false when the source string could not be parsed; such a value
// must be rejected by ValidateRange before it reaches any arithmetic.
type Instant struct {
	Time  time.Time
	Valid bool
}

// StartOfDay returns 00:00:00.000 UTC of the given YYYY-MM-DD date.
func StartOfDay(date string) Instant {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return Instant{}
	}
	return Instant{Time: t.UTC(), Valid: true}
}

// EndOfDay returns 23:59:59.999 UTC of the given YYYY-MM-DD date.
func EndOfDay(date string) Instant {
	start := StartOfDay(date)
	if !start.Valid {
		return start
	}
	return Instant{Time: start.Time.Add(day - time.Millisecond), Valid: true}
}

func ValidateRange(start, end Instant) error {
	if !start.Valid || !end.Valid {
		return ErrInvalidDate
	}
	if end.Time.Before(start.Time) {
		return ErrInvalidRange
	}
	return nil
}

// InclusiveDays counts calendar days between a start-of-day and an end-of-day
// instant, both ends included. Callers must pass normalized instants.
func InclusiveDays(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	return int(floorDiv(ms, day.Milliseconds())) + 1
}

func Total(pricePerDay int64, days int) int64 {
	return pricePerDay * int64(days)
}

// Overlaps is a closed-interval test: intervals that touch at a boundary overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
