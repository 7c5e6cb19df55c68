package models

// CreateReservationInput carries the caller's raw reservation request.
// Dates are YYYY-MM-DD calendar dates.
type CreateReservationInput struct {
	UserEmail string `json:"userEmail" validate:"required"`
	CarID     string `json:"carId" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// CarInput is the admin payload for creating or replacing a car.
type CarInput struct {
	Brand       string `json:"brand" yaml:"brand" validate:"required"`
	Model       string `json:"model" yaml:"model" validate:"required"`
	PricePerDay *int64 `json:"pricePerDay" yaml:"price_per_day" validate:"required,gte=0"`
	Status      string `json:"status,omitempty" yaml:"status" validate:"omitempty,oneof=AVAILABLE UNAVAILABLE"`
}
