package domain

// ─── Profile ────────────────────────────────────────────────────────────────

// Profile is a user's gamification state. One per user, created with the
// user and mutated only by the completion engine.
type Profile struct {
	Owner              string `json:"-"`
	XP                 int    `json:"xp"`
	Level              int    `json:"level"`
	CurrentStreak      int    `json:"current_streak"`
	LastCompletionDate *Date  `json:"last_completion_date"`

	// Version is bumped on every save and checked by the store.
	Version int64 `json:"-"`
}

// NewProfile returns the defaults a user starts with.
func NewProfile(owner string) Profile {
	return Profile{Owner: owner, XP: 0, Level: 1, CurrentStreak: 0}
}

// ─── Completion Outcome ─────────────────────────────────────────────────────

// Outcome reports what a single task completion did to the profile.
type Outcome struct {
	XPEarned      int  `json:"xp_earned"`
	CurrentXP     int  `json:"current_xp"`
	CurrentStreak int  `json:"current_streak"`
	LeveledUp     bool `json:"leveled_up"`
	NewLevel      *int `json:"new_level"` // nil unless LeveledUp
}
