package jobs

import "github.com/hibiken/asynq"

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPromotionRollover advances flash sale statuses by their windows.
	TaskPromotionRollover = "promotions:rollover"
	// TaskGiftCardExpiry marks gift cards whose expiry has passed.
	TaskGiftCardExpiry = "giftcards:expire"
	// TaskIdempotencyCleanup prunes aged idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewPromotionRolloverTask constructs the rollover task. The job carries no
// payload; it always evaluates against the current time.
func NewPromotionRolloverTask() *asynq.Task {
	return asynq.NewTask(TaskPromotionRollover, nil)
}

// NewGiftCardExpiryTask constructs the expiry sweep task.
func NewGiftCardExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskGiftCardExpiry, nil)
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
