package cli

import (
	"fmt"
	"time"

	"github.com/habiter/habiter/internal/models"
	"github.com/habiter/habiter/internal/utils"
)

type SlotsCmd struct {
	From string `help:"Only show slots still active at this instant (default: now)." default:""`
}

func (c *SlotsCmd) Run(ctx *Context) error {
	from, err := ParseInstant(c.From)
	if err != nil {
		return err
	}

	slots, err := ctx.Service.ActiveSlots(from)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Println("No active slots.")
		return nil
	}

	names, err := habitNames(ctx)
	if err != nil {
		return err
	}

	for _, slot := range slots {
		name := names[slot.HabitID]
		if name == "" {
			continue // slot of a deleted habit
		}
		fmt.Printf("%s  %d/%d  until %s\n",
			name, slot.Completion, slot.Count, slot.ActiveTo.Format("2006-01-02 15:04"))
	}
	return nil
}

type EventsCmd struct {
	From string `help:"Range start (YYYY-MM-DD or RFC3339, default: start of this month)." default:""`
	To   string `help:"Range end (default: now)." default:""`
}

func (c *EventsCmd) Run(ctx *Context) error {
	now := time.Now()

	from := utils.StartOfMonth(now)
	if c.From != "" {
		t, err := ParseInstant(c.From)
		if err != nil {
			return err
		}
		from = t
	}
	to := now
	if c.To != "" {
		t, err := ParseInstant(c.To)
		if err != nil {
			return err
		}
		to = utils.EndOfDay(t)
	}

	events, err := ctx.Service.EventsBetween(from, to)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events in range.")
		return nil
	}

	names, err := habitNames(ctx)
	if err != nil {
		return err
	}

	for _, event := range events {
		fmt.Printf("%s  %s\n", event.Datetime.Format("2006-01-02 15:04"), names[event.HabitID])
	}
	return nil
}

func habitNames(ctx *Context) (map[string]string, error) {
	recs, err := ctx.Service.Habits().Index(nil, nil)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(recs))
	for _, rec := range recs {
		h, err := models.HabitFromRecord(rec)
		if err != nil {
			return nil, err
		}
		names[h.ID] = h.Name
	}
	return names, nil
}
