package models

import "time"

type Car struct {
	ID          string    `json:"id" yaml:"id"`
	Brand       string    `json:"brand" yaml:"brand"`
	Model       string    `json:"model" yaml:"model"`
	PricePerDay int64     `json:"pricePerDay" yaml:"price_per_day"`
	Status      string    `json:"status" yaml:"status"` // AVAILABLE, UNAVAILABLE
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`
}

func (c *Car) IsAvailable() bool {
	return c != nil && c.Status == CarStatusAvailable
}

// ValidCarStatus reports whether status is one of the known car statuses.
func ValidCarStatus(status string) bool {
	switch status {
	case CarStatusAvailable, CarStatusUnavailable:
		return true
	default:
		return false
	}
}
