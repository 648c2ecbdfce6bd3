package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tempohq/tempo/internal/domain"
)

// NextFire computes the next wall-clock firing after now for a
// schedule. Daily schedules fire at the given time-of-day; weekly
// schedules at the given time on the configured weekdays; custom
// schedules follow a standard cron expression.
func NextFire(sched *domain.Schedule, now time.Time) (time.Time, error) {
	if sched == nil {
		return time.Time{}, fmt.Errorf("trigger.NextFire: missing schedule: %w", domain.ErrValidation)
	}

	switch sched.Type {
	case domain.ScheduleDaily:
		hour, minute, err := parseTimeOfDay(sched.Time)
		if err != nil {
			return time.Time{}, fmt.Errorf("trigger.NextFire: %w", err)
		}
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case domain.ScheduleWeekly:
		hour, minute, err := parseTimeOfDay(sched.Time)
		if err != nil {
			return time.Time{}, fmt.Errorf("trigger.NextFire: %w", err)
		}
		if len(sched.Weekdays) == 0 {
			return time.Time{}, fmt.Errorf("trigger.NextFire: weekly schedule without weekdays: %w", domain.ErrValidation)
		}
		days := make(map[time.Weekday]struct{}, len(sched.Weekdays))
		for _, d := range sched.Weekdays {
			days[d] = struct{}{}
		}
		for offset := 0; offset <= 7; offset++ {
			day := now.AddDate(0, 0, offset)
			if _, ok := days[day.Weekday()]; !ok {
				continue
			}
			next := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
			if next.After(now) {
				return next, nil
			}
		}
		return time.Time{}, fmt.Errorf("trigger.NextFire: no weekly occurrence found: %w", domain.ErrValidation)

	case domain.ScheduleCustom:
		cronSched, err := cron.ParseStandard(sched.Expression)
		if err != nil {
			return time.Time{}, fmt.Errorf("trigger.NextFire: cron %q: %w", sched.Expression, domain.ErrValidation)
		}
		return cronSched.Next(now), nil

	default:
		return time.Time{}, fmt.Errorf("trigger.NextFire: schedule type %q: %w", sched.Type, domain.ErrValidation)
	}
}

// parseTimeOfDay parses "HH:MM" in 24-hour form.
func parseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time of day %q must be HH:MM: %w", s, domain.ErrValidation)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("time of day %q: bad hour: %w", s, domain.ErrValidation)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day %q: bad minute: %w", s, domain.ErrValidation)
	}

	return hour, minute, nil
}
