package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden covers permission denials and field-mask violations.
	// Deliberately generic so callers cannot enumerate permissions.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCapacityExceeded indicates a branch has no vacant student seats.
	ErrCapacityExceeded = errors.New("branch intake capacity exceeded")
	// ErrBranchInUse indicates users still reference the branch.
	ErrBranchInUse = errors.New("branch is referenced by existing users")
	// ErrDuplicate indicates a uniqueness conflict on create.
	ErrDuplicate = errors.New("already exists")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps internal errors to text safe to show a client.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Resource not found."
	case errors.Is(err, ErrForbidden):
		return "Forbidden from access."
	case errors.Is(err, ErrCapacityExceeded):
		return "No vacant seats left in this branch."
	case errors.Is(err, ErrBranchInUse):
		return "Branch is in use and cannot be changed."
	case errors.Is(err, ErrDuplicate):
		return "Record already exists."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	default:
		return "Something went wrong."
	}
}
