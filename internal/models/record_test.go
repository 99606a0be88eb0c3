package models

import (
	"testing"
	"time"

	"github.com/habiter/habiter/internal/repo"
)

func TestEncodeTimeZeroValue(t *testing.T) {
	if got := EncodeTime(time.Time{}); got != "" {
		t.Errorf("zero time encodes to %q, want empty string", got)
	}

	at := time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC)
	if got := EncodeTime(at); got != "2025-09-01T08:00:00.000000000Z" {
		t.Errorf("got %q", got)
	}
}

func TestEncodedTimesOrderLexicographically(t *testing.T) {
	// Range predicates compare encoded strings directly, so the encoding
	// must keep chronological and lexicographic order in agreement.
	earlier := EncodeTime(time.Date(2025, time.September, 9, 23, 0, 0, 0, time.UTC))
	later := EncodeTime(time.Date(2025, time.September, 10, 1, 0, 0, 0, time.UTC))
	if !(earlier < later) {
		t.Errorf("%q should sort before %q", earlier, later)
	}
}

func TestEventIDsRoundTrip(t *testing.T) {
	if got := EncodeEventIDs(nil); got != "[]" {
		t.Errorf("nil ids encode to %q, want []", got)
	}

	ids, err := decodeEventIDs("")
	if err != nil || len(ids) != 0 {
		t.Errorf("empty string decodes to (%v, %v), want empty slice", ids, err)
	}

	encoded := EncodeEventIDs([]string{"a", "b"})
	ids, err = decodeEventIDs(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("round trip gave %v", ids)
	}

	if _, err := decodeEventIDs("{not json"); err == nil {
		t.Error("expected malformed event_ids to error")
	}
}

func TestHabitFromRecord(t *testing.T) {
	rec := repo.Record{
		"id":                "h1",
		"type":              "good",
		"name":              "Run",
		"granularity":       "weekly",
		"granularity_times": int64(3), // driver integers arrive as int64
		"include_weekends":  int64(1),
		"manage_from":       "",
		"created_at":        "2025-09-01T08:00:00.000000000Z",
		"updated_at":        nil,
		"deleted_at":        nil,
	}

	h, err := HabitFromRecord(rec)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if h.GranularityTimes != 3 {
		t.Errorf("granularity_times = %d, want 3", h.GranularityTimes)
	}
	if !h.IncludeWeekends {
		t.Error("expected include_weekends true")
	}
	if !h.ManageFrom.IsZero() {
		t.Errorf("empty manage_from decoded to %v, want zero", h.ManageFrom)
	}
	if h.DeletedAt != nil {
		t.Error("expected nil deleted_at")
	}
}

func TestRecTimeToleratesRFC3339(t *testing.T) {
	rec := repo.Record{
		"id":         "e1",
		"habit_id":   "h1",
		"datetime":   "2025-09-01T08:00:00Z", // plain RFC3339, no fixed-width fraction
		"completed":  int64(1),
		"created_at": "2025-09-01T08:00:00.000000000Z",
	}
	e, err := EventFromRecord(rec)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if e.Datetime.Hour() != 8 {
		t.Errorf("datetime = %v", e.Datetime)
	}
}

func TestSlotExpiredAndFull(t *testing.T) {
	end := time.Date(2025, time.September, 14, 23, 59, 59, 0, time.UTC)
	slot := Slot{Count: 2, Completion: 1, ActiveTo: end}

	if slot.Expired(end) {
		t.Error("a slot is still active at its own active_to instant")
	}
	if !slot.Expired(end.Add(time.Second)) {
		t.Error("expected the slot to be expired past active_to")
	}
	if slot.Full() {
		t.Error("1 of 2 is not full")
	}
	slot.Completion = 2
	if !slot.Full() {
		t.Error("2 of 2 is full")
	}
}
