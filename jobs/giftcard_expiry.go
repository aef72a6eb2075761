package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gearhaus/gearhaus/internal/giftcards"
	jobmetrics "github.com/gearhaus/gearhaus/internal/jobs"
)

// GiftCardExpiryJob sweeps gift cards whose expiry has passed.
type GiftCardExpiryJob struct {
	service *giftcards.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewGiftCardExpiryJob constructs the job.
func NewGiftCardExpiryJob(service *giftcards.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *GiftCardExpiryJob {
	return &GiftCardExpiryJob{service: service, logger: logger, metrics: metrics}
}

// Handle processes TaskGiftCardExpiry tasks.
func (j *GiftCardExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("giftcard_expiry")
	expired, err := j.service.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("gift card expiry sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	if expired > 0 {
		j.logger.Info("gift card expiry sweep", slog.Int64("expired", expired))
	}
	return tracker.End(nil)
}
