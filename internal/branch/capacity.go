package branch

import "github.com/registria/registria/internal/shared"

// Capacity and immutability invariants for organizational units. Each check
// is a pure single-shot decision over point-in-time counts; callers are
// responsible for holding those counts stable (see the repository row lock)
// while acting on the result.

// CheckIntake verifies that adding delta students keeps occupancy within
// the intake capacity.
func CheckIntake(intake, occupants, delta int) error {
	if occupants+delta > intake {
		return shared.ErrCapacityExceeded
	}
	return nil
}

// CheckIdentityChange rejects renaming or rebatching a branch that users
// still reference.
func CheckIdentityChange(current Branch, newName string, newBatch int, dependents int) error {
	if newName == current.Name && newBatch == current.Batch {
		return nil
	}
	if dependents > 0 {
		return shared.ErrBranchInUse
	}
	return nil
}

// CheckIntakeShrink rejects lowering the intake below current student
// enrollment.
func CheckIntakeShrink(current Branch, newIntake, students int) error {
	if newIntake >= current.TotalStudentsIntake {
		return nil
	}
	if students > newIntake {
		return shared.ErrCapacityExceeded
	}
	return nil
}

// CheckDelete rejects deleting a branch that users still reference.
func CheckDelete(dependents int) error {
	if dependents > 0 {
		return shared.ErrBranchInUse
	}
	return nil
}
