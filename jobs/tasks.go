package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAttendanceAbsenteeDigest summarizes yesterday's absentees per branch.
	TaskAttendanceAbsenteeDigest = "attendance:absentee_digest"
	// TaskEnrollmentVacancySnapshot warms the vacant-seat analysis cache.
	TaskEnrollmentVacancySnapshot = "enrollment:vacancy_snapshot"
)

// AbsenteeDigestPayload selects the day to summarize. An empty date means
// the previous calendar day.
type AbsenteeDigestPayload struct {
	Date string `json:"date,omitempty"`
}

// NewAbsenteeDigestTask constructs an Asynq task.
func NewAbsenteeDigestTask(payload AbsenteeDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAttendanceAbsenteeDigest, data), nil
}

// VacancySnapshotPayload is currently empty; the snapshot always covers all
// batches.
type VacancySnapshotPayload struct{}

// NewVacancySnapshotTask constructs an Asynq task.
func NewVacancySnapshotTask() (*asynq.Task, error) {
	data, err := json.Marshal(VacancySnapshotPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEnrollmentVacancySnapshot, data), nil
}
