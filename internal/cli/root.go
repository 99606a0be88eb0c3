package cli

import (
	"fmt"
	"time"

	"github.com/habiter/habiter/internal/constants"
	"github.com/habiter/habiter/internal/habits"
	"github.com/habiter/habiter/internal/models"
	"github.com/habiter/habiter/internal/storage"
)

// Context carries the shared dependencies into every command's Run.
type Context struct {
	Store   *storage.Store
	Service *habits.Service
}

// FindHabitByName resolves a live habit by its (exact) name.
func (c *Context) FindHabitByName(name string) (models.Habit, error) {
	recs, err := c.Service.Habits().Index(nil, nil)
	if err != nil {
		return models.Habit{}, err
	}
	for _, rec := range recs {
		h, err := models.HabitFromRecord(rec)
		if err != nil {
			return models.Habit{}, err
		}
		if h.Name == name {
			return h, nil
		}
	}
	return models.Habit{}, fmt.Errorf("habit %q not found", name)
}

// ParseInstant parses a user-supplied instant: either a full RFC3339
// timestamp or a plain date (interpreted at local midnight). Empty input
// means now.
func ParseInstant(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.ParseInLocation(constants.DateFormat, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid instant %q (expected YYYY-MM-DD or RFC3339)", s)
	}
	return t, nil
}
