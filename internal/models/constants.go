package models

const (
	CarStatusAvailable   = "AVAILABLE"
	CarStatusUnavailable = "UNAVAILABLE"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// DefaultCustomerName is used when the email has no local part.
const DefaultCustomerName = "Customer"

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	// DateLayout is the calendar-date format accepted from callers.
	DateLayout = "2006-01-02"

	// WorkerQueueSize размер локальной очереди воркера синхронизации
	WorkerQueueSize = 128

	// DefaultCarsCacheTTL время жизни кэша доступных машин в секундах
	DefaultCarsCacheTTL = 5 * 60

	// RateLimitRPS default per-client request rate for the API
	RateLimitRPS = 10

	// RateLimitBurst default per-client burst for the API
	RateLimitBurst = 20
)
