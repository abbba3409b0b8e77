// Package engagement implements Stride's gamification engine: XP awards,
// daily completion streaks and level progression.
package engagement

import "github.com/stride-app/stride/internal/domain"

// ResolveStreak returns the streak after a completion on today.
//
//   - First completion ever: 1.
//   - Day after the last completion: previous + 1.
//   - Two or more days after: streak broke, restart at 1.
//   - Same day, or today earlier than the recorded date: unchanged.
//
// The caller records today as the last completion date in every case.
func ResolveStreak(today domain.Date, last *domain.Date, previous int) int {
	if last == nil || last.IsZero() {
		return 1
	}

	next := last.AddDays(1)
	switch {
	case today.Equal(next):
		return previous + 1
	case today.After(next):
		return 1
	default:
		return previous
	}
}
