package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/gearhaus/gearhaus/internal/jobs"
	"github.com/gearhaus/gearhaus/internal/promotions"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// rolloverLockTTL bounds how long a crashed worker can hold the lock.
const rolloverLockTTL = time.Minute

// PromotionRolloverJob advances flash sale statuses by their windows. A redis
// lock keeps concurrent workers from racing the same rollover.
type PromotionRolloverJob struct {
	service *promotions.Service
	locker  *redis.Client
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewPromotionRolloverJob constructs the job.
func NewPromotionRolloverJob(service *promotions.Service, locker *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *PromotionRolloverJob {
	return &PromotionRolloverJob{service: service, locker: locker, logger: logger, metrics: metrics}
}

// Handle processes TaskPromotionRollover tasks.
func (j *PromotionRolloverJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("promotion_rollover")

	if j.locker != nil {
		key := shared.PromotionRolloverLockKey()
		acquired, err := j.locker.SetNX(ctx, key, "1", rolloverLockTTL).Result()
		if err != nil {
			j.logger.Warn("rollover lock", slog.Any("error", err))
		} else if !acquired {
			j.logger.Info("rollover already running, skipping")
			return tracker.End(nil)
		} else {
			defer j.locker.Del(context.WithoutCancel(ctx), key)
		}
	}

	activated, ended, err := j.service.Rollover(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("promotion rollover", slog.Any("error", err))
		return tracker.End(err)
	}
	if activated > 0 || ended > 0 {
		j.logger.Info("promotion rollover",
			slog.Int64("activated", activated),
			slog.Int64("ended", ended))
	}
	return tracker.End(nil)
}
