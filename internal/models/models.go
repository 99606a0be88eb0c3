package models

import (
	"time"

	"github.com/habiter/habiter/internal/storage"
)

type HabitType string

const (
	HabitGood HabitType = "good"
	HabitBad  HabitType = "bad"
)

type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// Granularities lists every recurrence unit a habit can use.
var Granularities = []Granularity{
	GranularityDaily,
	GranularityWeekly,
	GranularityMonthly,
	GranularityYearly,
}

// Habit is a recurring behavior tracked by the user.
//
// ManageFrom is the generation watermark: the date up to which slots
// have already been created. The zero value means generation never ran
// for this habit. Only the recurrence engine advances it.
type Habit struct {
	ID               string
	Type             HabitType
	Name             string
	Color            string
	Granularity      Granularity
	GranularityTimes int
	IncludeWeekends  bool
	EnoughAmount     string
	ManageFrom       time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Slot is one time-boxed tracking period instance for a habit.
// ActiveTo marks the period's end and doubles as its identity key
// within the habit.
type Slot struct {
	ID         string
	HabitID    string
	Count      int
	Completion int
	EventIDs   []string
	ActiveTo   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// Expired reports whether the slot's period ended before now.
func (s Slot) Expired(now time.Time) bool {
	return now.After(s.ActiveTo)
}

// Full reports whether the slot reached its target count.
func (s Slot) Full() bool {
	return s.Completion >= s.Count
}

// Event is a single recorded check-in instant against a slot.
type Event struct {
	ID        string
	HabitID   string
	Datetime  time.Time
	Completed int
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Option is a cross-session key/value flag. Keys are case-insensitive.
type Option = storage.Option
