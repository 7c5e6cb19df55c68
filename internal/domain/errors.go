package domain

import "errors"

// Storage errors shared by every Repository implementation.
var (
	ErrCarNotFound            = errors.New("car not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrCarUnavailable         = errors.New("car is not available")
	ErrOverlap                = errors.New("car already has a reservation in these dates")
	ErrCarInUse               = errors.New("car has reservations")
	ErrConcurrentModification = errors.New("concurrent modification")
)
