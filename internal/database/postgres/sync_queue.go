package postgres

import (
	"context"
	"fmt"
	"time"

	"rentcars/internal/models"

	"github.com/jackc/pgx/v5"
)

const syncTaskColumns = "id, task_type, reservation_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at"

func (s *Storage) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	const op = "storage.postgres.CreateSyncTask"

	if task.Status == "" {
		task.Status = models.SyncStatusPending
	}
	query := `INSERT INTO sync_queue (task_type, reservation_id, payload, status, retry_count, last_error, next_retry_at)
              VALUES (@type, @reservationId, @payload, @status, @retries, @lastError, @nextRetryAt)
              RETURNING id, created_at`
	args := pgx.NamedArgs{
		"type":          task.TaskType,
		"reservationId": task.ReservationID,
		"payload":       task.Payload,
		"status":        task.Status,
		"retries":       task.RetryCount,
		"lastError":     task.LastError,
		"nextRetryAt":   task.NextRetryAt,
	}
	if err := s.pool.QueryRow(ctx, query, args).Scan(&task.ID, &task.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	const op = "storage.postgres.GetPendingSyncTasks"

	query := `SELECT ` + syncTaskColumns + `
              FROM sync_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= now())
              ORDER BY created_at ASC, id ASC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		err := rows.Scan(&t.ID, &t.TaskType, &t.ReservationID, &t.Payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Storage) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	const op = "storage.postgres.UpdateSyncTaskStatus"

	var lastError *string
	if errMsg != "" {
		lastError = &errMsg
	}

	var query string
	switch status {
	case models.SyncStatusRetry:
		query = `UPDATE sync_queue SET status = $1, last_error = $2, next_retry_at = $3, retry_count = retry_count + 1 WHERE id = $4`
	case models.SyncStatusCompleted, models.SyncStatusFailed:
		query = `UPDATE sync_queue SET status = $1, last_error = $2, next_retry_at = $3, processed_at = now() WHERE id = $4`
	default:
		query = `UPDATE sync_queue SET status = $1, last_error = $2, next_retry_at = $3 WHERE id = $4`
	}

	if _, err := s.pool.Exec(ctx, query, status, lastError, nextRetryAt, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
