package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonbook/internal/events"
	"salonbook/internal/models"
	"salonbook/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stalledBot blocks every send until release is closed.
type stalledBot struct {
	release chan struct{}
	sent    chan int64
	err     error
}

func (b *stalledBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-b.release
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent <- msg.ChatID
	}
	return tgbotapi.Message{}, nil
}

func TestSubscribeBookingEvents_TelegramOffPublisherPath(t *testing.T) {
	db := newTestDB(t)
	w := NewSyncWorker(db, nil, RetryPolicy{}, 10*time.Millisecond, nil)

	bot := &stalledBot{release: make(chan struct{}), sent: make(chan int64, 1)}
	managers := notify.NewManagerNotifier(bot, []int64{100}, "R", nopLogger())
	w.Register(models.TaskTelegramNotify, NewManagerAlertHandler(managers, db))

	bus := events.NewEventBus(nopLogger())
	ctx := context.Background()
	SubscribeBookingEvents(ctx, bus, w, nopLogger())

	published := make(chan error, 1)
	go func() {
		published <- bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{Booking: sampleDetails()})
	}()
	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(time.Second):
		close(bot.release)
		t.Fatal("publish waited on the telegram send")
	}

	// Only the registered task type is queued.
	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.TaskTelegramNotify, pending[0].TaskType)
	assert.Equal(t, sampleDetails().ID, pending[0].BookingID)

	runCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		w.Start(runCtx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	close(bot.release)
	select {
	case chatID := <-bot.sent:
		assert.Equal(t, int64(100), chatID)
	case <-time.After(2 * time.Second):
		t.Fatal("manager alert was not delivered by the worker")
	}

	require.Eventually(t, func() bool {
		status, _, _ := loadTaskStatus(t, db, pending[0].ID)
		return status == models.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerAlertHandler_RetriesOnSendFailure(t *testing.T) {
	db := newTestDB(t)
	w := NewSyncWorker(db, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, 0, nil)

	bot := &stalledBot{release: make(chan struct{}), sent: make(chan int64, 1), err: errors.New("timeout")}
	close(bot.release)
	managers := notify.NewManagerNotifier(bot, []int64{100}, "R", nopLogger())
	w.Register(models.TaskTelegramNotify, NewManagerAlertHandler(managers, db))

	details := sampleDetails()
	ctx := context.Background()
	require.NoError(t, w.EnqueueTask(ctx, models.TaskTelegramNotify, details.ID, details))
	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	status, retryCount, _ := loadTaskStatus(t, db, task.ID)
	assert.Equal(t, models.TaskStatusRetry, status)
	assert.Equal(t, 1, retryCount)
}
