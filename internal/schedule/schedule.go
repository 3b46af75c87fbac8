// Package schedule maps wall-clock time to a feed polling interval.
package schedule

import "time"

// Policy polls more often while matches are likely being played and backs
// off overnight. Hours are evaluated in Location.
type Policy struct {
	Location *time.Location
	Peak     time.Duration
	Default  time.Duration
	Quiet    time.Duration
}

// Default intervals.
const (
	DefaultPeak    = 60 * time.Second
	DefaultDefault = 120 * time.Second
	DefaultQuiet   = 300 * time.Second
)

// Interval returns the polling interval for t:
// quiet from 01:00 to 08:59, peak on weekday evenings from 18:00 and on
// weekends from 12:00, the default interval otherwise.
func (p Policy) Interval(t time.Time) time.Duration {
	if p.Location != nil {
		t = t.In(p.Location)
	}
	hour := t.Hour()

	switch {
	case hour >= 1 && hour < 9:
		return p.Quiet
	case isWeekend(t.Weekday()) && hour >= 12:
		return p.Peak
	case hour >= 18:
		return p.Peak
	default:
		return p.Default
	}
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}
