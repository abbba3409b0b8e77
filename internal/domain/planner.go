package domain

import "time"

// User owns every other record. Creating one provisions its Profile.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyNote is free text for one day; at most one per owner and date.
type DailyNote struct {
	ID      string `json:"id"`
	Owner   string `json:"-"`
	Date    Date   `json:"date"`
	Content string `json:"content"`
}

// FocusItem is something the user wants to concentrate on today.
type FocusItem struct {
	ID    string `json:"id"`
	Owner string `json:"-"`
	Date  Date   `json:"date"`
	Text  string `json:"text"`
}

// ScheduleEvent is a timed entry on a day's agenda.
type ScheduleEvent struct {
	ID        string  `json:"id"`
	Owner     string  `json:"-"`
	Date      Date    `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Title     string  `json:"title"`
}
