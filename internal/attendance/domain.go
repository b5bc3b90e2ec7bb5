// Package attendance tracks per-day presence records for students and the
// reports built on them.
package attendance

import "time"

// Record is one student's presence mark for one day. The storage layer
// enforces uniqueness of (StudentID, Date).
type Record struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"studentId"`
	Date      time.Time `json:"date"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Mark is the client-facing shape for creating or addressing a record:
// a record is keyed by student and day, never by its row ID.
type Mark struct {
	StudentID int64     `json:"studentId"`
	Date      time.Time `json:"date"`
	Present   bool      `json:"present"`
}

// FailedMark reports one rejected record of a bulk submission.
type FailedMark struct {
	Record Mark   `json:"record"`
	Error  string `json:"error"`
}

// BulkResult partitions a bulk submission into persisted and rejected
// records.
type BulkResult struct {
	SuccessRecords []Record     `json:"successRecords"`
	FailedRecords  []FailedMark `json:"failedRecords,omitempty"`
}

// ReportFilters narrows the absent-list and low-percentage reports.
// BranchID is set by the service for branch-scoped callers and is not
// client-controllable.
type ReportFilters struct {
	Branch   string
	Batch    int
	Semester int
	BranchID int64
}

// AbsentStudent is one row of the absent-list report.
type AbsentStudent struct {
	StudentName string    `json:"studentName"`
	Email       string    `json:"email"`
	Date        time.Time `json:"date"`
	Present     bool      `json:"present"`
	Batch       int       `json:"batch"`
	Branch      string    `json:"branch"`
	Semester    int       `json:"semester"`
}

// PercentageRow is one row of the below-percentage report.
type PercentageRow struct {
	StudentName          string  `json:"studentName"`
	Email                string  `json:"email"`
	Batch                int     `json:"batch"`
	Branch               string  `json:"branch"`
	Semester             int     `json:"semester"`
	AttendancePercentage float64 `json:"attendancePercentage"`
	TotalDays            int     `json:"totalDays"`
	TotalDaysPresent     int     `json:"totalDaysPresent"`
}
