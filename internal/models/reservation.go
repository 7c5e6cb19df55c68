package models

import "time"

// Reservation is immutable once stored. Car and UserEmail are filled by read queries
// that join the owning rows; Car reflects the current car row, not a historical copy.
type Reservation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CarID     string    `json:"carId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Days      int       `json:"days"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"createdAt"`

	UserEmail string `json:"userEmail,omitempty"`
	Car       *Car   `json:"car,omitempty"`
}
