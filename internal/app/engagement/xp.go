package engagement

import "github.com/stride-app/stride/internal/domain"

const (
	// BaseXP is awarded for every completion.
	BaseXP = 10

	// HighPriorityBonus is added for High priority tasks.
	HighPriorityBonus = 5

	// OnTimeBonus is added when a due date exists and today is on or before it.
	OnTimeBonus = 10
)

// AwardXP returns the XP earned for completing a task with the given
// priority and optional due date on today. Overdue completions still earn
// the base award; there is no penalty.
func AwardXP(priority domain.Priority, due *domain.Date, today domain.Date) int {
	xp := BaseXP
	if priority == domain.PriorityHigh {
		xp += HighPriorityBonus
	}
	if due != nil && !due.IsZero() && !today.After(*due) {
		xp += OnTimeBonus
	}
	return xp
}
