// Package domain holds Stride's core types: tasks, profiles, planner
// records, the errors they raise and the interfaces infrastructure fulfils.
// Domain code is pure: no database, network or wall-clock access.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Priority is a task's importance. Stored as one letter.
type Priority string

const (
	PriorityLow    Priority = "L"
	PriorityMedium Priority = "M"
	PriorityHigh   Priority = "H"
)

// DefaultPriority applies when a task is created without one.
const DefaultPriority = PriorityMedium

// MaxTitleLen bounds task, focus item and event titles.
const MaxTitleLen = 200

// IsValid reports whether p is one of the three priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ParsePriority accepts the stored letter or the full name, any case.
// Empty input yields DefaultPriority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPriority, nil
	case "l", "low":
		return PriorityLow, nil
	case "m", "medium":
		return PriorityMedium, nil
	case "h", "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("invalid priority %q: want L, M or H", s)
	}
}

// Task is a to-do item owned by one user. Only the completion engine
// writes Completed.
type Task struct {
	ID          string    `json:"id"`
	Owner       string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	DueDate     *Date     `json:"due_date"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	StartTime   *string   `json:"start_time"`
	EndTime     *string   `json:"end_time"`
}

// TaskFilter narrows a task listing.
type TaskFilter struct {
	DueDate *Date
}

// NormalizeTitle trims and bounds a title.
func NormalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len([]rune(t)) > MaxTitleLen {
		return "", fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLen)
	}
	return t, nil
}

// NormalizeTask checks the fields a store needs before inserting t and
// fills in the default priority.
func NormalizeTask(t Task) (Task, error) {
	if t.ID == "" || t.Owner == "" {
		return Task{}, fmt.Errorf("%w: task id and owner are required", ErrInvalidInput)
	}
	title, err := NormalizeTitle(t.Title)
	if err != nil {
		return Task{}, err
	}
	t.Title = title
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	if !t.Priority.IsValid() {
		return Task{}, fmt.Errorf("%w: priority %q", ErrInvalidInput, t.Priority)
	}
	return t, nil
}
