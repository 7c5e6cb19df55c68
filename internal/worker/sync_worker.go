package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentcars/internal/domain"
	"rentcars/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert = "upsert"

	redisQueueKey = "sync:queue"
	deadLetterKey = "sync:deadletter"
)

// Sink receives reservations mirrored out of the store. Upserts must be idempotent:
// a task can be delivered by both its queue and the store poll.
type Sink interface {
	UpsertReservation(ctx context.Context, reservation *models.Reservation) error
}

// taskPayload is persisted in SyncTask.Payload as JSON.
type taskPayload struct {
	Reservation *models.Reservation `json:"reservation"`
}

// SyncWorker consumes sync_queue tasks and applies them to the Sink.
type SyncWorker struct {
	store        domain.SyncTaskStore
	sink         Sink
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan models.SyncTask
	pollInterval time.Duration
	batchSize    int
	logger       zerolog.Logger
}

// NewSyncWorker builds a worker. redisClient may be nil.
func NewSyncWorker(
	store domain.SyncTaskStore,
	sink Sink,
	redisClient *redis.Client,
	retry RetryPolicy,
	pollInterval time.Duration,
	logger *zerolog.Logger,
) *SyncWorker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &SyncWorker{
		store:        store,
		sink:         sink,
		redis:        redisClient,
		retryPolicy:  retry.withDefaults(),
		queue:        make(chan models.SyncTask, models.WorkerQueueSize),
		pollInterval: pollInterval,
		batchSize:    20,
		logger:       logger.With().Str("component", "sync_worker").Logger(),
	}
}

// EnqueueTask persists the task and schedules it via redis or the in-memory queue.
func (w *SyncWorker) EnqueueTask(ctx context.Context, taskType string, reservation *models.Reservation) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if reservation == nil || reservation.ID == "" {
		return errors.New("reservation id is required")
	}

	payloadBytes, err := json.Marshal(taskPayload{Reservation: reservation})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:      taskType,
		ReservationID: reservation.ID,
		Payload:       string(payloadBytes),
		Status:        models.SyncStatusPending,
	}
	if err := w.store.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		err := w.pushList(ctx, redisQueueKey, &task)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, using memory queue")
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("memory queue full, task left to polling")
	}
	return nil
}

// Start runs the main loop until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	for ctx.Err() == nil {
		if !w.RunOnce(ctx) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
		}
	}
}

// RunOnce processes whatever work is available and reports whether there was any.
func (w *SyncWorker) RunOnce(ctx context.Context) bool {
	if t, ok := w.tryLocalQueue(); ok {
		w.processTask(ctx, &t)
		return true
	}

	if t, ok := w.tryRedis(ctx); ok {
		w.processTask(ctx, &t)
		return true
	}

	tasks, err := w.store.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("failed to fetch pending sync tasks")
		}
		return false
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks) > 0
}

func (w *SyncWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("redis BRPOP failed")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("failed to decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload taskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.apply(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark task completed")
	}
}

func (w *SyncWorker) apply(ctx context.Context, taskType string, payload taskPayload) error {
	switch taskType {
	case TaskUpsert:
		if payload.Reservation == nil {
			return errors.New("reservation payload missing")
		}
		return w.sink.UpsertReservation(ctx, payload.Reservation)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	nextTime := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark task for retry")
		return
	}
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", nextTime).
		Msg("sync task failed, will retry")
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("reservation_id", task.ReservationID).Msg("sync task failed")
	if err := w.store.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark task failed")
	}
	if w.redis != nil {
		if err := w.pushList(ctx, deadLetterKey, task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead letter push failed")
		}
	}
}

func (w *SyncWorker) pushList(ctx context.Context, key string, task *models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
