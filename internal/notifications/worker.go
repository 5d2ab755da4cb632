package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rishabhdev/roomio/internal/models"
	"github.com/sirupsen/logrus"
)

// Producer delivers one serialized notification to the downstream
// channel (message broker, push service, ...).
type Producer interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker drains the outbox with bounded backoff. A row that keeps
// failing past MaxAttempts goes to the dead-letter status and is never
// retried again.
type Worker struct {
	Store       Store
	Producer    Producer
	Logger      *logrus.Logger
	Interval    time.Duration
	Backoff     []time.Duration
	MaxAttempts int
	BatchSize   int
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessOnce(ctx, time.Now()); err != nil {
				w.Logger.WithError(err).Error("notification sweep failed")
			}
		}
	}
}

func (w *Worker) ProcessOnce(ctx context.Context, now time.Time) error {
	rows, err := w.Store.Due(ctx, now, w.batchSize())
	if err != nil {
		return err
	}

	for i := range rows {
		w.deliver(ctx, &rows[i], now)
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, row *models.Notification, now time.Time) {
	payload, err := json.Marshal(map[string]interface{}{
		"id":       row.ID,
		"user_id":  row.UserID,
		"channel":  row.Channel,
		"title":    row.Title,
		"body":     row.Body,
		"priority": row.Priority,
		"data":     json.RawMessage(row.Data),
	})
	if err != nil {
		_ = w.Store.MarkDead(ctx, row.ID, err.Error())
		return
	}

	if err := w.Producer.Publish(ctx, row.UserID.String(), payload); err != nil {
		attempts := row.Attempts + 1
		if attempts >= w.maxAttempts() {
			w.Logger.WithError(err).WithField("notification_id", row.ID).
				Warn("notification dead-lettered")
			_ = w.Store.MarkDead(ctx, row.ID, err.Error())
			return
		}
		_ = w.Store.MarkFailed(ctx, row.ID, attempts, w.NextRetry(attempts, now), err.Error())
		return
	}

	_ = w.Store.MarkSent(ctx, row.ID)
}

// NextRetry picks the backoff step for the given attempt count,
// clamping to the last step once the schedule is exhausted.
func (w *Worker) NextRetry(attempts int, now time.Time) time.Time {
	if len(w.Backoff) == 0 {
		return now.Add(5 * time.Second)
	}
	idx := attempts - 1
	if idx >= len(w.Backoff) {
		idx = len(w.Backoff) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return now.Add(w.Backoff[idx])
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return time.Second
	}
	return w.Interval
}

func (w *Worker) maxAttempts() int {
	if w.MaxAttempts <= 0 {
		return 5
	}
	return w.MaxAttempts
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 20
	}
	return w.BatchSize
}
