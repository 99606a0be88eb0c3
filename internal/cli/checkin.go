package cli

import (
	"errors"
	"fmt"
	"time"

	apperr "github.com/habiter/habiter/internal/errors"
	"github.com/habiter/habiter/internal/models"
)

type CheckinCmd struct {
	Habit string `arg:"" optional:"" help:"Habit name. Omit to list what can be checked in right now."`
	At    string `help:"Check-in instant (RFC3339). Must fall on today." default:""`
}

func (c *CheckinCmd) Run(ctx *Context) error {
	now := time.Now()
	target := now
	if c.At != "" {
		t, err := ParseInstant(c.At)
		if err != nil {
			return err
		}
		target = t
	}

	selectable, err := ctx.Service.SelectableHabits(target, now)
	if err != nil {
		return err
	}

	if c.Habit == "" {
		if len(selectable) == 0 {
			fmt.Println("Nothing to check in right now.")
			return nil
		}
		fmt.Println("Habits ready for a check-in:")
		for _, sel := range selectable {
			fmt.Printf("  %s (%d/%d until %s)\n",
				sel.Habit.Name, sel.Slot.Completion, sel.Slot.Count,
				sel.Slot.ActiveTo.Format("2006-01-02 15:04"))
		}
		return nil
	}

	for _, sel := range selectable {
		if sel.Habit.Name != c.Habit {
			continue
		}

		draft := models.Event{
			HabitID:   sel.Habit.ID,
			Datetime:  target,
			Completed: 1,
		}
		_, slot, err := ctx.Service.SaveEvent(draft, sel.Slot.ID, now)
		if errors.Is(err, apperr.ErrSlotUnavailable) {
			return fmt.Errorf("%s: %w", c.Habit, err)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Checked in %s (%d/%d)\n", c.Habit, slot.Completion, slot.Count)
		return nil
	}

	return fmt.Errorf("no open slot for habit %q today", c.Habit)
}
