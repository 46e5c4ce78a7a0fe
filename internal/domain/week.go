package domain

import "time"

// ─── Week Boundary ──────────────────────────────────────────────────────────

// WeekRule defines when a tracking week starts: a weekday at a wall-clock
// time in a fixed zone. Boundaries fall on the minute (seconds are zero).
type WeekRule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

// DefaultWeekRule starts weeks on Sunday at midnight, UTC.
// The daemon replaces the zone with the configured one.
func DefaultWeekRule() WeekRule {
	return WeekRule{Weekday: time.Sunday, Location: time.UTC}
}

func (r WeekRule) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Boundary returns the start of the week containing now: the latest
// occurrence of the rule's weekday and time that is not after now.
func (r WeekRule) Boundary(now time.Time) time.Time {
	loc := r.location()
	t := now.In(loc)
	back := (int(t.Weekday()) - int(r.Weekday) + 7) % 7
	b := time.Date(t.Year(), t.Month(), t.Day()-back, r.Hour, r.Minute, 0, 0, loc)
	if b.After(t) {
		b = time.Date(t.Year(), t.Month(), t.Day()-back-7, r.Hour, r.Minute, 0, 0, loc)
	}
	return b
}

// Next returns the first boundary strictly after now.
func (r WeekRule) Next(now time.Time) time.Time {
	b := r.Boundary(now)
	return time.Date(b.Year(), b.Month(), b.Day()+7, r.Hour, r.Minute, 0, 0, r.location())
}

// WeekBoundary returns the Sunday-midnight week start for now in loc.
func WeekBoundary(now time.Time, loc *time.Location) time.Time {
	return WeekRule{Weekday: time.Sunday, Location: loc}.Boundary(now)
}
