package branch

import "time"

// Branch is an organizational unit holding one cohort of students. The
// (name, batch) pair is unique; both are frozen while any user references
// the branch.
type Branch struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Batch               int       `json:"batch"`
	TotalStudentsIntake int       `json:"totalStudentsIntake"`
	Description         string    `json:"description,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ListFilters narrows and orders branch listings.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
	Page    int
	Limit   int
}
