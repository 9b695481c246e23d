package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/scmhub/calendar"
)

// Scheduler handles time-based scheduling and market day validation
type Scheduler struct {
	slots    []string // HH:MM, sorted
	location *time.Location
	nyse     *calendar.Calendar
	now      func() time.Time
}

// NewScheduler creates a new scheduler for the given HH:MM slots and timezone
func NewScheduler(slots []string, timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	sorted := append([]string(nil), slots...)
	sort.Strings(sorted)
	return &Scheduler{
		slots:    sorted,
		location: loc,
		nyse:     calendar.XNYS(),
		now:      time.Now,
	}
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// DueSlot returns the slot matching the current minute, or "".
func (s *Scheduler) DueSlot() string {
	clock := s.now().In(s.location).Format("15:04")
	for _, slot := range s.slots {
		if slot == clock {
			return slot
		}
	}
	return ""
}

// LatestSlot returns the most recent slot at or before now today, or "".
func (s *Scheduler) LatestSlot() string {
	clock := s.now().In(s.location).Format("15:04")
	latest := ""
	for _, slot := range s.slots {
		if slot <= clock {
			latest = slot
		}
	}
	return latest
}

// IsTime checks if the current minute matches an HH:MM clock time
func (s *Scheduler) IsTime(clock string) bool {
	return clock != "" && s.now().In(s.location).Format("15:04") == clock
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured timezone
func (s *Scheduler) TodayDate() string {
	return s.now().In(s.location).Format("2006-01-02")
}

// IsMarketDay checks if the given date is a trading day (not weekend/holiday)
func (s *Scheduler) IsMarketDay(dateStr string) bool {
	// Parse as noon in the configured timezone to ensure correct date matching
	t, err := time.ParseInLocation("2006-01-02 15:04:05", dateStr+" 12:00:00", s.location)
	if err != nil {
		return false
	}
	return s.nyse.IsBusinessDay(t)
}

// Location returns the scheduler's timezone location
func (s *Scheduler) Location() *time.Location {
	return s.location
}
