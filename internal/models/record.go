package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/habiter/habiter/internal/constants"
	"github.com/habiter/habiter/internal/repo"
)

// Statically declared field sets per entity. The repository derives its
// permitted keys from these once, at startup.
var (
	HabitsSchema = repo.Schema{
		Table: "habits",
		Fields: []string{
			"type", "name", "color", "granularity", "granularity_times",
			"include_weekends", "enough_amount", "manage_from",
		},
	}
	SlotsSchema = repo.Schema{
		Table: "slots",
		Fields: []string{
			"habit_id", "count", "completion", "event_ids", "active_to",
		},
	}
	EventsSchema = repo.Schema{
		Table:  "events",
		Fields: []string{"habit_id", "datetime", "completed"},
	}
)

// Values returns the habit's business fields as a creation payload.
func (h Habit) Values() repo.Record {
	return repo.Record{
		"type":              string(h.Type),
		"name":              h.Name,
		"color":             h.Color,
		"granularity":       string(h.Granularity),
		"granularity_times": h.GranularityTimes,
		"include_weekends":  h.IncludeWeekends,
		"enough_amount":     h.EnoughAmount,
		"manage_from":       encodeTime(h.ManageFrom),
	}
}

func HabitFromRecord(rec repo.Record) (Habit, error) {
	h := Habit{
		ID:               recString(rec, "id"),
		Type:             HabitType(recString(rec, "type")),
		Name:             recString(rec, "name"),
		Color:            recString(rec, "color"),
		Granularity:      Granularity(recString(rec, "granularity")),
		GranularityTimes: recInt(rec, "granularity_times"),
		IncludeWeekends:  recBool(rec, "include_weekends"),
		EnoughAmount:     recString(rec, "enough_amount"),
	}
	var err error
	if h.ManageFrom, err = recTime(rec, "manage_from"); err != nil {
		return Habit{}, fmt.Errorf("habit %s: %w", h.ID, err)
	}
	if err = auditFromRecord(rec, &h.CreatedAt, &h.UpdatedAt, &h.DeletedAt); err != nil {
		return Habit{}, fmt.Errorf("habit %s: %w", h.ID, err)
	}
	return h, nil
}

// Values returns the slot's business fields as a creation payload.
func (s Slot) Values() repo.Record {
	return repo.Record{
		"habit_id":   s.HabitID,
		"count":      s.Count,
		"completion": s.Completion,
		"event_ids":  EncodeEventIDs(s.EventIDs),
		"active_to":  encodeTime(s.ActiveTo),
	}
}

func SlotFromRecord(rec repo.Record) (Slot, error) {
	s := Slot{
		ID:         recString(rec, "id"),
		HabitID:    recString(rec, "habit_id"),
		Count:      recInt(rec, "count"),
		Completion: recInt(rec, "completion"),
	}
	var err error
	if s.EventIDs, err = decodeEventIDs(recString(rec, "event_ids")); err != nil {
		return Slot{}, fmt.Errorf("slot %s: %w", s.ID, err)
	}
	if s.ActiveTo, err = recTime(rec, "active_to"); err != nil {
		return Slot{}, fmt.Errorf("slot %s: %w", s.ID, err)
	}
	if err = auditFromRecord(rec, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt); err != nil {
		return Slot{}, fmt.Errorf("slot %s: %w", s.ID, err)
	}
	return s, nil
}

// Values returns the event's business fields as a creation payload.
func (e Event) Values() repo.Record {
	return repo.Record{
		"habit_id":  e.HabitID,
		"datetime":  encodeTime(e.Datetime),
		"completed": e.Completed,
	}
}

func EventFromRecord(rec repo.Record) (Event, error) {
	e := Event{
		ID:        recString(rec, "id"),
		HabitID:   recString(rec, "habit_id"),
		Completed: recInt(rec, "completed"),
	}
	var err error
	if e.Datetime, err = recTime(rec, "datetime"); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	if err = auditFromRecord(rec, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt); err != nil {
		return Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	return e, nil
}

// EncodeEventIDs serializes a slot's linked event ids for storage.
func EncodeEventIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func decodeEventIDs(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to parse event_ids: %w", err)
	}
	return ids, nil
}

// EncodeTime formats an instant for storage; the zero value maps to the
// empty string ("never set").
func EncodeTime(t time.Time) string {
	return encodeTime(t)
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(constants.TimestampFormat)
}

func auditFromRecord(rec repo.Record, createdAt, updatedAt *time.Time, deletedAt **time.Time) error {
	var err error
	if *createdAt, err = recTime(rec, "created_at"); err != nil {
		return err
	}
	if *updatedAt, err = recTime(rec, "updated_at"); err != nil {
		return err
	}
	t, err := recTime(rec, "deleted_at")
	if err != nil {
		return err
	}
	if !t.IsZero() {
		*deletedAt = &t
	}
	return nil
}

func recString(rec repo.Record, key string) string {
	s, _ := rec[key].(string)
	return s
}

func recInt(rec repo.Record, key string) int {
	switch v := rec[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func recBool(rec repo.Record, key string) bool {
	switch v := rec[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

func recTime(rec repo.Record, key string) (time.Time, error) {
	raw, ok := rec[key].(string)
	if !ok || raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(constants.TimestampFormat, raw)
	if err != nil {
		// Tolerate plain RFC3339 written by older versions.
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse %s: %w", key, err)
		}
	}
	return t, nil
}
