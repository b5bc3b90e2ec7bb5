package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/registria/registria/internal/attendance"
	jobmetrics "github.com/registria/registria/internal/jobs"
)

type stubAttendanceRepo struct {
	absentees []attendance.AbsentStudent
	err       error
}

func (r *stubAttendanceRepo) CreateOne(ctx context.Context, mark attendance.Mark) (attendance.Record, error) {
	return attendance.Record{}, errors.New("not implemented")
}

func (r *stubAttendanceRepo) Edit(ctx context.Context, mark attendance.Mark) (attendance.Record, error) {
	return attendance.Record{}, errors.New("not implemented")
}

func (r *stubAttendanceRepo) Delete(ctx context.Context, studentID int64, date time.Time) (attendance.Record, error) {
	return attendance.Record{}, errors.New("not implemented")
}

func (r *stubAttendanceRepo) StudentBranch(ctx context.Context, studentID int64) (int64, error) {
	return 0, errors.New("not implemented")
}

func (r *stubAttendanceRepo) AbsentList(ctx context.Context, date time.Time, filters attendance.ReportFilters) ([]attendance.AbsentStudent, error) {
	return r.absentees, r.err
}

func (r *stubAttendanceRepo) BelowPercentage(ctx context.Context, percentage float64, filters attendance.ReportFilters) ([]attendance.PercentageRow, error) {
	return nil, errors.New("not implemented")
}

func counterValue(t *testing.T, registry *prometheus.Registry, name, jobLabel string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == jobLabel {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestAbsenteeDigestRecordsFailureMetric(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	repo := &stubAttendanceRepo{err: errors.New("connection refused")}
	job := NewAbsenteeDigestJob(repo, nil, slog.New(slog.DiscardHandler), metrics)

	task := asynq.NewTask(TaskAttendanceAbsenteeDigest, []byte(`{"date":"2026-03-01"}`))
	err := job.Handle(context.Background(), task)
	require.Error(t, err)

	failures := counterValue(t, registry, "registria_jobs_failures_total", TaskAttendanceAbsenteeDigest)
	require.Equal(t, float64(1), failures)
}

func TestAbsenteeDigestRecordsSuccessRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	repo := &stubAttendanceRepo{}
	job := NewAbsenteeDigestJob(repo, nil, slog.New(slog.DiscardHandler), metrics)

	task := asynq.NewTask(TaskAttendanceAbsenteeDigest, []byte(`{"date":"2026-03-01"}`))
	require.NoError(t, job.Handle(context.Background(), task))

	require.Equal(t, float64(0), counterValue(t, registry, "registria_jobs_failures_total", TaskAttendanceAbsenteeDigest))
	require.Equal(t, float64(1), counterValue(t, registry, "registria_jobs_total", TaskAttendanceAbsenteeDigest))
}
