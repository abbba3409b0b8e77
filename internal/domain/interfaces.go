package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Clock supplies "today". Injected so pure rules never read wall time.
type Clock interface {
	Today() Date
}

// TaskLookup is the completion engine's view of tasks.
type TaskLookup interface {
	// GetTask returns ErrTaskNotFound unless the task exists and belongs to owner.
	GetTask(ctx context.Context, id, owner string) (*Task, error)

	// SetCompleted flips the completed flag on.
	SetCompleted(ctx context.Context, id string) error
}

// ProfileAccess is the completion engine's view of profiles.
type ProfileAccess interface {
	// GetProfile returns ErrProfileNotFound if owner was never provisioned.
	GetProfile(ctx context.Context, owner string) (*Profile, error)

	// SaveProfile writes p if its Version still matches the stored one, and
	// bumps p.Version. A mismatch returns ErrProfileConflict.
	SaveProfile(ctx context.Context, p *Profile) error
}

// CompletionStore is everything one completion reads and writes.
type CompletionStore interface {
	TaskLookup
	ProfileAccess
}

// Transactor runs fn against a CompletionStore whose writes commit together
// or not at all.
type Transactor interface {
	InTx(ctx context.Context, fn func(CompletionStore) error) error
}

// Locker provides per-key mutual exclusion. The returned unlock is safe to
// call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// TaskPatch carries the user-editable task fields. Nil means unchanged;
// ClearDueDate, ClearStartTime and ClearEndTime null the field out.
type TaskPatch struct {
	Title          *string
	Description    *string
	Priority       *Priority
	DueDate        *Date
	ClearDueDate   bool
	StartTime      *string
	ClearStartTime bool
	EndTime        *string
	ClearEndTime   bool
}

// EventPatch carries the editable schedule event fields. Nil means
// unchanged; ClearEndTime nulls end_time.
type EventPatch struct {
	Title        *string
	StartTime    *string
	EndTime      *string
	ClearEndTime bool
}

// UserStore creates users. CreateUser provisions the user's Profile in the
// same transaction.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByName(ctx context.Context, name string) (*User, error)
}

// TaskStore is plain task CRUD.
type TaskStore interface {
	CreateTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id, owner string) (*Task, error)
	ListTasks(ctx context.Context, owner string, f TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, id, owner string, p TaskPatch) (*Task, error)
	DeleteTask(ctx context.Context, id, owner string) error
}

// PlannerStore holds notes, focus items and schedule events.
type PlannerStore interface {
	UpsertNote(ctx context.Context, owner string, day Date, content string) (*DailyNote, error)
	ListNotes(ctx context.Context, owner string, day Date) ([]DailyNote, error)
	GetNote(ctx context.Context, id, owner string) (*DailyNote, error)
	UpdateNote(ctx context.Context, id, owner, content string) (*DailyNote, error)
	DeleteNote(ctx context.Context, id, owner string) error

	CreateFocusItem(ctx context.Context, f FocusItem) error
	ListFocusItems(ctx context.Context, owner string, day Date) ([]FocusItem, error)
	GetFocusItem(ctx context.Context, id, owner string) (*FocusItem, error)
	UpdateFocusItem(ctx context.Context, id, owner, text string) (*FocusItem, error)
	DeleteFocusItem(ctx context.Context, id, owner string) error

	CreateEvent(ctx context.Context, e ScheduleEvent) error
	ListEvents(ctx context.Context, owner string, day Date) ([]ScheduleEvent, error)
	GetEvent(ctx context.Context, id, owner string) (*ScheduleEvent, error)
	UpdateEvent(ctx context.Context, id, owner string, p EventPatch) (*ScheduleEvent, error)
	DeleteEvent(ctx context.Context, id, owner string) error
}

// Store is a complete persistence backend.
type Store interface {
	Transactor
	UserStore
	TaskStore
	PlannerStore
	GetProfile(ctx context.Context, owner string) (*Profile, error)
	Ping(ctx context.Context) error
	Close() error
}
