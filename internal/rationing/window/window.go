// Package window maps a point in time to the rationing period that is active
// for an item's schedule. Everything here is a pure function of its inputs.
package window

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"prs/internal/rationing/models"
)

// ErrOutsideSchedule is returned when purchases are disallowed at the requested time.
var ErrOutsideSchedule = errors.New("outside schedule")

const (
	periodDateLayout = "2006-01-02"
	rollingPeriodID  = "rolling"
	unrationedID     = "unrationed"
)

// Period is the resolved rationing period.
//
// Fixed periods cover [Start, End) and are identified by their start date.
// Rolling periods cover [Start, End] where End is the resolution time; quota in
// a rolling period is summed from individual purchases at or after Start,
// never bucketed.
type Period struct {
	ID         string
	Start      time.Time
	End        time.Time
	Rolling    bool
	Unrationed bool
}

// Contains reports whether t lies within the period bounds.
func (p Period) Contains(t time.Time) bool {
	if t.Before(p.Start) {
		return false
	}
	if p.Rolling {
		return !t.After(p.End)
	}
	return t.Before(p.End)
}

// ClosedAt reports whether a fixed period has ended by t. Rolling periods never close.
func (p Period) ClosedAt(t time.Time) bool {
	if p.Rolling || p.Unrationed {
		return false
	}
	return !t.Before(p.End)
}

// Resolve returns the period active at `at` for schedule.
func Resolve(schedule *models.PurchaseSchedule, at time.Time) (Period, error) {
	if schedule == nil {
		return Period{}, fmt.Errorf("resolve period: schedule is required")
	}
	loc, err := location(schedule.Timezone)
	if err != nil {
		return Period{}, err
	}
	local := at.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if len(schedule.AllowedDays) > 0 && !slices.Contains(schedule.AllowedDays, local.Weekday()) {
		if schedule.OutsidePolicy == models.OutsideUnrationed {
			return Period{
				ID:         unrationedID,
				Start:      dayStart,
				End:        dayStart.AddDate(0, 0, 1),
				Unrationed: true,
			}, nil
		}
		return Period{}, ErrOutsideSchedule
	}

	switch schedule.Period {
	case models.PeriodDaily:
		return fixed(dayStart, dayStart.AddDate(0, 0, 1)), nil
	case models.PeriodWeekly:
		// ISO weeks start on Monday.
		offset := (int(local.Weekday()) + 6) % 7
		start := dayStart.AddDate(0, 0, -offset)
		return fixed(start, start.AddDate(0, 0, 7)), nil
	case models.PeriodMonthly:
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return fixed(start, start.AddDate(0, 1, 0)), nil
	case models.PeriodRolling:
		if schedule.RollingWindow <= 0 {
			return Period{}, fmt.Errorf("resolve period: rolling window must be positive")
		}
		return Period{
			ID:      rollingPeriodID,
			Start:   at.Add(-schedule.RollingWindow),
			End:     at,
			Rolling: true,
		}, nil
	default:
		return Period{}, fmt.Errorf("resolve period: unknown period type %q", schedule.Period)
	}
}

// Admits reports whether an individual born on dob may buy under schedule's
// birth-year pattern.
func Admits(schedule *models.PurchaseSchedule, dob time.Time) bool {
	if schedule == nil || len(schedule.BirthYearDigits) == 0 {
		return true
	}
	return slices.Contains(schedule.BirthYearDigits, dob.Year()%10)
}

func fixed(start, end time.Time) Period {
	return Period{
		ID:    start.Format(periodDateLayout),
		Start: start,
		End:   end,
	}
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("resolve period: load timezone %q: %w", name, err)
	}
	return loc, nil
}
