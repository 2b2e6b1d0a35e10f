// services/calendar.go - "Today" and day arithmetic in the challenge timezone
package services

import (
	"fmt"
	"time"
	_ "time/tzdata" // embedded zone database

	"lingoquest/models"
)

// Calendar projects instants into one fixed zone before taking calendar dates
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar fails when the zone cannot be loaded
func NewCalendar(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load challenge timezone %q: %w", timezone, err)
	}
	return &Calendar{loc: loc, now: time.Now}, nil
}

// WithClock returns a copy reading the current instant from now
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	return &Calendar{loc: c.loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now is the current instant in the challenge zone
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current calendar date as YYYY-MM-DD
func (c *Calendar) Today() string {
	return c.DateOf(c.now())
}

// DateOf returns the calendar date of t in the challenge zone
func (c *Calendar) DateOf(t time.Time) string {
	return t.In(c.loc).Format(models.DateLayout)
}

// DaysBetween counts calendar days from a to b in the challenge zone.
// Two instants on the same local day give 0 regardless of their UTC distance.
func (c *Calendar) DaysBetween(a, b time.Time) int {
	return civilDays(b.In(c.loc)) - civilDays(a.In(c.loc))
}

// DaysBetweenDates is DaysBetween over YYYY-MM-DD strings
func (c *Calendar) DaysBetweenDates(a, b string) (int, error) {
	da, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	db, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return civilDays(db) - civilDays(da), nil
}

// ParseDate validates a YYYY-MM-DD string
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, invalid("date", "must be YYYY-MM-DD, got %q", s)
	}
	return d, nil
}

// AddDays shifts a YYYY-MM-DD date by n calendar days
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(models.DateLayout), nil
}

// civilDays is the day number of t's wall-clock date, independent of its zone offset
func civilDays(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
