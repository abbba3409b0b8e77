package engagement

import (
	"math"

	"github.com/stride-app/stride/internal/domain"
)

// Threshold returns the cumulative XP at which a user at level leaves it:
// floor(100 * level^1.5). Levels below 1 are treated as 1.
//
// Computed as isqrt(10000 * level^3) so the floor is exact for every level
// rather than subject to float rounding at the boundary.
func Threshold(level int) int {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return int(isqrt(10000 * l * l * l))
}

// isqrt returns floor(sqrt(n)) for n >= 0.
func isqrt(n int64) int64 {
	r := int64(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// ResolveLevel advances level while xp meets the current threshold and
// reports how many levels were gained. The result always satisfies
// xp < Threshold(newLevel).
func ResolveLevel(xp, level int) (newLevel, gained int) {
	if level < 1 {
		level = 1
	}
	newLevel = level
	for xp >= Threshold(newLevel) {
		newLevel++
	}
	return newLevel, newLevel - level
}

// XPToNextLevel returns XP remaining until the profile's next level-up.
func XPToNextLevel(p domain.Profile) int {
	remaining := Threshold(p.Level) - p.XP
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ProgressPct returns progress toward the next level-up (0 to 100).
// XP is cumulative, so progress is measured against the whole threshold.
func ProgressPct(p domain.Profile) float64 {
	threshold := Threshold(p.Level)
	if threshold <= 0 {
		return 100.0
	}
	progress := float64(p.XP) / float64(threshold) * 100.0
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}
