package database

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/models"
)

const syncTaskColumns = `id, task_type, booking_id, COALESCE(payload, ''), status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	now := time.Now()
	result, err := db.ExecContext(ctx, `
        INSERT INTO sync_queue (task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetPendingSyncTasks returns due tasks, oldest first.
func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	return db.querySyncTasks(ctx, `
        SELECT `+syncTaskColumns+` FROM sync_queue
        WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
        ORDER BY created_at ASC LIMIT ?`,
		models.TaskStatusPending, models.TaskStatusRetry, time.Now(), limit)
}

func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	return db.querySyncTasks(ctx,
		`SELECT `+syncTaskColumns+` FROM sync_queue WHERE status = ? ORDER BY created_at DESC`,
		models.TaskStatusFailed)
}

// ClaimSyncTask moves a due task to processing. It returns false when another
// consumer got there first or the task is no longer runnable.
func (db *DB) ClaimSyncTask(ctx context.Context, id int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE sync_queue SET status = ? WHERE id = ? AND status IN (?, ?)`,
		models.TaskStatusProcessing, id, models.TaskStatusPending, models.TaskStatusRetry)
	if err != nil {
		return false, fmt.Errorf("failed to claim sync task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim sync task %d: %w", id, err)
	}
	return n == 1, nil
}

func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var lastError *string
	if errMsg != "" {
		lastError = &errMsg
	}

	var (
		query string
		args  []interface{}
	)
	switch status {
	case models.TaskStatusRetry:
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, id}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, time.Now(), id}
	default:
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, nextRetryAt, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update sync task status: %w", err)
	}
	return nil
}

// RequeueStaleTasks returns tasks left in processing by a crashed worker to pending.
func (db *DB) RequeueStaleTasks(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `UPDATE sync_queue SET status = ? WHERE status = ?`,
		models.TaskStatusPending, models.TaskStatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale tasks: %w", err)
	}
	return res.RowsAffected()
}

func (db *DB) querySyncTasks(ctx context.Context, query string, args ...any) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		t, err := scanSyncTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func scanSyncTask(r rowScanner) (*models.SyncTask, error) {
	var t models.SyncTask
	if err := r.Scan(&t.ID, &t.TaskType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount,
		&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt); err != nil {
		return nil, err
	}
	return &t, nil
}
