package engagement

import (
	"fmt"
	"time"

	"github.com/stride-app/stride/internal/domain"
)

// SystemClock reads wall time in a fixed location. Calendar days roll over
// at midnight in that location, not in UTC.
type SystemClock struct {
	loc *time.Location
	now func() time.Time
}

// NewSystemClock loads the IANA zone name ("" or "Local" for the host zone).
func NewSystemClock(zone string) (*SystemClock, error) {
	loc := time.Local
	if zone != "" && zone != "Local" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", zone, err)
		}
		loc = l
	}
	return &SystemClock{loc: loc, now: time.Now}, nil
}

// Today returns the current civil date.
func (c *SystemClock) Today() domain.Date {
	return domain.DateOf(c.now().In(c.loc))
}

// Location returns the zone days are computed in.
func (c *SystemClock) Location() *time.Location { return c.loc }

// FixedClock always reports the same day. Used by tests and the CLI's
// --date override.
type FixedClock struct {
	Day domain.Date
}

// Today returns c.Day.
func (c FixedClock) Today() domain.Date { return c.Day }
