package users

import (
	"context"
	"sort"
	"strconv"
)

// BatchAnalysisRow summarizes student headcount for one admission batch,
// broken down per branch.
type BatchAnalysisRow struct {
	Batch         int            `json:"batch"`
	TotalStudents int            `json:"totalStudents"`
	Branches      map[string]int `json:"branches"`
}

// VacantSeatBranch is the per-branch slice of a vacant-seat row.
type VacantSeatBranch struct {
	TotalStudents       int `json:"totalStudents"`
	TotalStudentsIntake int `json:"totalStudentsIntake"`
	TotalVacantSeats    int `json:"totalVacantSeats"`
}

// VacantSeatRow reports remaining capacity for one batch across branches.
type VacantSeatRow struct {
	Batch               int                         `json:"batch"`
	TotalStudents       int                         `json:"totalStudents"`
	TotalStudentsIntake int                         `json:"totalStudentsIntake"`
	TotalVacantSeats    int                         `json:"totalVacantSeats"`
	Branches            map[string]VacantSeatBranch `json:"branches"`
}

// VacantSeatFilters narrows the vacant-seat analysis to one batch or branch.
type VacantSeatFilters struct {
	Batch      int
	BranchName string
}

const analysisBaseQuery = `
	SELECT u.batch, u.branch_name, COUNT(*), MAX(b.total_students_intake)
	FROM users u
	JOIN branches b ON b.id = u.branch_id
	WHERE u.role = 'student'`

// BatchAnalysis groups students by batch with per-branch headcounts.
func (r *PGRepository) BatchAnalysis(ctx context.Context) ([]BatchAnalysisRow, error) {
	rows, err := r.pool.Query(ctx, analysisBaseQuery+` GROUP BY u.batch, u.branch_name ORDER BY u.batch`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byBatch := map[int]*BatchAnalysisRow{}
	for rows.Next() {
		var batch, count, intake int
		var branchName string
		if err := rows.Scan(&batch, &branchName, &count, &intake); err != nil {
			return nil, err
		}
		row, ok := byBatch[batch]
		if !ok {
			row = &BatchAnalysisRow{Batch: batch, Branches: map[string]int{}}
			byBatch[batch] = row
		}
		row.TotalStudents += count
		row.Branches[branchName] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortedBatchRows(byBatch), nil
}

// VacantSeatAnalysis compares enrollment against branch intake per batch.
func (r *PGRepository) VacantSeatAnalysis(ctx context.Context, filters VacantSeatFilters) ([]VacantSeatRow, error) {
	query := analysisBaseQuery
	args := []interface{}{}
	if filters.BranchName != "" {
		args = append(args, filters.BranchName)
		query += ` AND u.branch_name = $` + strconv.Itoa(len(args))
	}
	if filters.Batch != 0 {
		args = append(args, filters.Batch)
		query += ` AND u.batch = $` + strconv.Itoa(len(args))
	}
	query += ` GROUP BY u.batch, u.branch_name ORDER BY u.batch`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byBatch := map[int]*VacantSeatRow{}
	for rows.Next() {
		var batch, count, intake int
		var branchName string
		if err := rows.Scan(&batch, &branchName, &count, &intake); err != nil {
			return nil, err
		}
		row, ok := byBatch[batch]
		if !ok {
			row = &VacantSeatRow{Batch: batch, Branches: map[string]VacantSeatBranch{}}
			byBatch[batch] = row
		}
		row.TotalStudents += count
		row.TotalStudentsIntake += intake
		row.TotalVacantSeats += intake - count
		row.Branches[branchName] = VacantSeatBranch{
			TotalStudents:       count,
			TotalStudentsIntake: intake,
			TotalVacantSeats:    intake - count,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]VacantSeatRow, 0, len(byBatch))
	for _, row := range byBatch {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Batch < out[j].Batch })
	return out, nil
}

func sortedBatchRows(byBatch map[int]*BatchAnalysisRow) []BatchAnalysisRow {
	out := make([]BatchAnalysisRow, 0, len(byBatch))
	for _, row := range byBatch {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Batch < out[j].Batch })
	return out
}
