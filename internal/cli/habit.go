package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	apperr "github.com/habiter/habiter/internal/errors"
	"github.com/habiter/habiter/internal/models"
	"github.com/habiter/habiter/internal/validation"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit (soft delete)."`
}

type HabitAddCmd struct {
	Name            string `arg:"" help:"Habit name."`
	Type            string `help:"Habit type: good or bad." default:"good"`
	Color           string `help:"Display color (hex, e.g. #22aa55)." default:""`
	Granularity     string `help:"Recurrence unit: daily, weekly, monthly or yearly." default:"daily"`
	Times           int    `help:"Required check-ins per period (ignored for daily)." default:"1"`
	IncludeWeekends bool   `help:"Track on weekends too (daily habits)." default:"true"`
	Enough          string `help:"Optional qualitative threshold (e.g. '2 glasses')." default:""`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	if _, err := ctx.FindHabitByName(c.Name); err == nil {
		return fmt.Errorf("habit with name %q already exists", c.Name)
	}

	habit := models.Habit{
		Type:             models.HabitType(c.Type),
		Name:             c.Name,
		Color:            c.Color,
		Granularity:      models.Granularity(c.Granularity),
		GranularityTimes: c.Times,
		IncludeWeekends:  c.IncludeWeekends,
		EnoughAmount:     c.Enough,
	}
	if err := validation.ValidateHabitDraft(habit); err != nil {
		return err
	}

	if _, err := ctx.Service.Habits().Create(habit.Values()); err != nil {
		return err
	}

	fmt.Printf("Added habit: %s\n", c.Name)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	recs, err := ctx.Service.Habits().Index(nil, nil)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	for _, rec := range recs {
		h, err := models.HabitFromRecord(rec)
		if err != nil {
			return err
		}

		swatch := "●"
		if h.Color != "" {
			swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(h.Color)).Render("●")
		}
		cadence := string(h.Granularity)
		if h.Granularity != models.GranularityDaily && h.GranularityTimes > 1 {
			cadence = fmt.Sprintf("%s x%d", h.Granularity, h.GranularityTimes)
		}
		fmt.Printf("%s %s (%s, %s)\n", swatch, h.Name, h.Type, cadence)
	}

	return nil
}

type HabitDeleteCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	habit, err := ctx.FindHabitByName(c.Name)
	if err != nil {
		return err
	}

	if err := ctx.Service.Habits().Delete(habit.ID); err != nil {
		if apperr.IsNotFound(err) {
			return fmt.Errorf("habit %q not found or already deleted", c.Name)
		}
		return err
	}

	fmt.Printf("Deleted habit: %s\n", c.Name)
	return nil
}
