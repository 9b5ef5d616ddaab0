package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"salonbook/internal/database"
	"salonbook/internal/metrics"
	"salonbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TaskHandler performs one sync_queue task. A returned error schedules a retry.
type TaskHandler func(ctx context.Context, task *models.SyncTask) error

// ErrPermanent marks handler failures that must not be retried.
var ErrPermanent = errors.New("permanent task failure")

// SyncWorker consumes sync_queue tasks and dispatches them to registered handlers.
// Tasks are persisted first; redis or the in-memory channel only speed up pickup,
// and polling the table catches everything else.
type SyncWorker struct {
	db            *database.DB
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

// NewSyncWorker builds a worker with sane defaults.
func NewSyncWorker(db *database.DB, redisClient *redis.Client, retry RetryPolicy, pollInterval time.Duration, logger *zerolog.Logger) *SyncWorker {
	retry = retry.withDefaults()
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SyncWorker{
		db:            db,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "sync:queue",
		deadLetterKey: "sync:deadletter",
		pollInterval:  pollInterval,
		batchSize:     20,
		logger:        logger,
		handlers:      make(map[string]TaskHandler),
	}
}

// Register binds handler to taskType, replacing any previous one.
func (w *SyncWorker) Register(taskType string, handler TaskHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[taskType] = handler
}

func (w *SyncWorker) handler(taskType string) (TaskHandler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[taskType]
	return h, ok
}

// Handles reports whether a handler is registered for taskType.
func (w *SyncWorker) Handles(taskType string) bool {
	_, ok := w.handler(taskType)
	return ok
}

// EnqueueTask persists task to DB and schedules it via redis or in-memory queue.
func (w *SyncWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, payload interface{}) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if bookingID == 0 {
		return errors.New("booking id is required")
	}

	var raw string
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		raw = string(payloadBytes)
	}

	syncTask := models.SyncTask{
		TaskType:  taskType,
		BookingID: bookingID,
		Payload:   raw,
		Status:    models.TaskStatusPending,
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, syncTask); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", syncTask.ID).Msg("redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- syncTask:
	default:
		w.logger.Warn().Int64("task_id", syncTask.ID).Msg("memory queue full, task left to polling")
	}

	return nil
}

// Start runs the consume loop until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	if n, err := w.db.RequeueStaleTasks(ctx); err != nil {
		w.logger.Error().Err(err).Msg("requeue stale tasks")
	} else if n > 0 {
		w.logger.Info().Int64("count", n).Msg("requeued stale tasks")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		if processed := w.poll(ctx); processed > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, &t)
		case <-time.After(w.pollInterval):
		}
	}
}

// poll processes one batch of due tasks from the table and returns how many it saw.
func (w *SyncWorker) poll(ctx context.Context) int {
	tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
		}
		return 0
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks)
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
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("redis BRPOP")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task *models.SyncTask) {
	claimed, err := w.db.ClaimSyncTask(ctx, task.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("claim task")
		return
	}
	if !claimed {
		return
	}

	log := w.logger.With().
		Int64("task_id", task.ID).
		Str("task_type", task.TaskType).
		Int64("booking_id", task.BookingID).
		Logger()

	h, ok := w.handler(task.TaskType)
	if !ok {
		w.failTask(ctx, task, fmt.Errorf("unknown task type: %s", task.TaskType))
		return
	}

	if err := h(ctx, task); err != nil {
		if errors.Is(err, ErrPermanent) {
			log.Error().Err(err).Msg("task failed permanently")
			w.failTask(ctx, task, err)
			return
		}
		log.Warn().Err(err).Int("attempt", task.RetryCount+1).Msg("task failed")
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("mark completed")
	}
	metrics.IncSyncTask(task.TaskType, models.TaskStatusCompleted)
	log.Debug().Msg("task completed")
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	nextTime, ok := w.retryPolicy.NextAttempt(task.RetryCount+1, time.Now())
	if !ok {
		w.failTask(ctx, task, cause)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusRetry, cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	metrics.IncSyncTask(task.TaskType, models.TaskStatusRetry)
}

func (w *SyncWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	metrics.IncSyncTask(task.TaskType, models.TaskStatusFailed)
	w.pushDeadLetter(ctx, task)
}

func (w *SyncWorker) pushRedis(ctx context.Context, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode dead letter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("dead letter push")
	}
}
