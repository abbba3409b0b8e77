package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Completion engine
	ErrAlreadyCompleted = errors.New("task already completed")
	ErrProfileConflict  = errors.New("profile was modified concurrently")

	// Lookup misses
	ErrTaskNotFound    = errors.New("task not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrFocusNotFound   = errors.New("focus item not found")
	ErrEventNotFound   = errors.New("schedule event not found")

	// Records
	ErrUserExists   = errors.New("user already exists")
	ErrInvalidInput = errors.New("invalid input")

	// Per-user locking
	ErrLockUnavailable = errors.New("profile lock unavailable")
)
