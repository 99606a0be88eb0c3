// Package habits holds the recurrence engine: slot generation for a
// habit's cadence, selection of the slot eligible for a check-in, and
// the check-in itself.
package habits

import (
	"time"

	"github.com/habiter/habiter/internal/models"
	"github.com/habiter/habiter/internal/utils"
)

// periodDays returns the length in days of one tracking period,
// anchored at the period's end instant.
func periodDays(g models.Granularity, activeTo time.Time) int {
	switch g {
	case models.GranularityDaily:
		return 1
	case models.GranularityWeekly:
		return 7
	case models.GranularityMonthly:
		return utils.DaysInMonth(activeTo)
	case models.GranularityYearly:
		return 366
	default:
		return 1
	}
}

// requiredCount returns the check-ins a habit expects per period. Daily
// habits always expect exactly one; granularity_times is ignored for
// them.
func requiredCount(habit models.Habit) int {
	if habit.Granularity == models.GranularityDaily {
		return 1
	}
	if habit.GranularityTimes < 1 {
		return 1
	}
	return habit.GranularityTimes
}

// CalculateSlots expands a habit's cadence into the slot drafts covering
// the management window of ref: the calendar month containing ref, with
// a year-end horizon for yearly habits. Pure and deterministic; the same
// (habit, ref) input always yields the same ordered output.
//
// Slots are emitted walking backward from the window's end, one per
// period. Weekly steps re-align to the end of their calendar week so
// weekly periods stay calendar-aligned instead of drifting by plain
// 7-day offsets.
func CalculateSlots(habit models.Habit, ref time.Time) []models.Slot {
	if habit.ID == "" || ref.IsZero() {
		return nil
	}

	windowStart := utils.StartOfMonth(ref)
	count := requiredCount(habit)

	activeTo := utils.EndOfMonth(ref)
	if habit.Granularity == models.GranularityYearly {
		activeTo = utils.EndOfYear(ref)
	}

	var slots []models.Slot
	for !activeTo.Before(windowStart) {
		slots = append(slots, models.Slot{
			HabitID:    habit.ID,
			Count:      count,
			Completion: 0,
			EventIDs:   []string{},
			ActiveTo:   activeTo,
		})

		activeTo = activeTo.AddDate(0, 0, -periodDays(habit.Granularity, activeTo))
		if habit.Granularity == models.GranularityWeekly {
			activeTo = utils.EndOfWeek(activeTo)
		}
	}
	return slots
}

// periodCovers reports whether an instant falls inside the slot's
// period (active_to minus one period length, active_to].
func periodCovers(slot models.Slot, granularity models.Granularity, t time.Time) bool {
	start := slot.ActiveTo.AddDate(0, 0, -periodDays(granularity, slot.ActiveTo))
	return t.After(start) && !t.After(slot.ActiveTo)
}
