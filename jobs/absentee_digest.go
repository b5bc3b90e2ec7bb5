package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registria/registria/internal/attendance"
	jobmetrics "github.com/registria/registria/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AbsenteeDigestJob rolls up one day's absentees per branch and stores the
// digest so staff dashboards can read it without scanning attendance.
type AbsenteeDigestJob struct {
	Attendance attendance.Repository
	Pool       *pgxpool.Pool
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewAbsenteeDigestJob wires dependencies for the digest handler.
func NewAbsenteeDigestJob(repo attendance.Repository, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AbsenteeDigestJob {
	return &AbsenteeDigestJob{
		Attendance: repo,
		Pool:       pool,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes absentee digest tasks.
func (j *AbsenteeDigestJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("absentee digest: handler not configured")
	}
	var payload AbsenteeDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	day := j.now().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return asynq.SkipRetry
		}
		day = parsed
	}

	tracker := j.metrics().Track(TaskAttendanceAbsenteeDigest)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("date", day.Format("2006-01-02")))
	logger.Info("starting absentee digest")

	absentees, err := j.Attendance.AbsentList(ctx, day, attendance.ReportFilters{})
	if err != nil {
		resultErr = err
		logger.Error("load absentees", slog.Any("error", err))
		return resultErr
	}

	perBranch := make(map[string]int)
	for _, row := range absentees {
		perBranch[row.Branch]++
	}

	for branchName, count := range perBranch {
		if err := j.storeDigest(ctx, day, branchName, count); err != nil {
			resultErr = err
			logger.Error("store digest", slog.String("branch", branchName), slog.Any("error", err))
			return resultErr
		}
	}

	logger.Info("completed absentee digest", slog.Int("absentees", len(absentees)), slog.Int("branches", len(perBranch)))
	return resultErr
}

func (j *AbsenteeDigestJob) storeDigest(ctx context.Context, day time.Time, branchName string, count int) error {
	if j.Pool == nil {
		return errors.New("absentee digest: pool not configured")
	}
	_, err := j.Pool.Exec(ctx, `
		INSERT INTO attendance_digests (date, branch_name, absent_count, computed_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (date, branch_name) DO UPDATE SET absent_count = EXCLUDED.absent_count, computed_at = NOW()`,
		day, branchName, count)
	return err
}

func (j *AbsenteeDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAttendanceAbsenteeDigest))
	}
	return slog.Default().With(slog.String("job", TaskAttendanceAbsenteeDigest))
}

func (j *AbsenteeDigestJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AbsenteeDigestJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
