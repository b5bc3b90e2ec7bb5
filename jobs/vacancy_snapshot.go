package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/registria/registria/internal/jobs"
	"github.com/registria/registria/internal/users"
)

// VacancySnapshotJob warms the vacant-seat analysis cache so admission
// dashboards read a precomputed answer.
type VacancySnapshotJob struct {
	Users   users.Repository
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	TTL     time.Duration
}

// NewVacancySnapshotJob wires dependencies for the snapshot handler.
func NewVacancySnapshotJob(repo users.Repository, client *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *VacancySnapshotJob {
	return &VacancySnapshotJob{
		Users:   repo,
		Redis:   client,
		Logger:  logger,
		Metrics: metrics,
		TTL:     time.Hour,
	}
}

// Handle processes vacancy snapshot tasks.
func (j *VacancySnapshotJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("vacancy snapshot: handler not configured")
	}

	tracker := j.metrics().Track(TaskEnrollmentVacancySnapshot)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting vacancy snapshot")

	rows, err := j.Users.VacantSeatAnalysis(ctx, users.VacantSeatFilters{})
	if err != nil {
		resultErr = err
		logger.Error("compute vacancy analysis", slog.Any("error", err))
		return resultErr
	}

	data, err := json.Marshal(rows)
	if err != nil {
		resultErr = err
		return resultErr
	}
	if j.Redis == nil {
		resultErr = errors.New("vacancy snapshot: redis not configured")
		return resultErr
	}
	if err := j.Redis.Set(ctx, users.VacantSeatsCacheKey, data, j.TTL).Err(); err != nil {
		resultErr = err
		logger.Error("cache vacancy snapshot", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed vacancy snapshot", slog.Int("batches", len(rows)))
	return resultErr
}

func (j *VacancySnapshotJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEnrollmentVacancySnapshot))
	}
	return slog.Default().With(slog.String("job", TaskEnrollmentVacancySnapshot))
}

func (j *VacancySnapshotJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
