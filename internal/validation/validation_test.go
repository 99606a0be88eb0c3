package validation

import (
	"strings"
	"testing"

	"github.com/habiter/habiter/internal/models"
)

func validDraft() models.Habit {
	return models.Habit{
		Type:             models.HabitGood,
		Name:             "Meditate",
		Color:            "#aabbcc",
		Granularity:      models.GranularityDaily,
		GranularityTimes: 1,
	}
}

func TestValidateHabitDraft(t *testing.T) {
	if err := ValidateHabitDraft(validDraft()); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*models.Habit)
		wantErr string
	}{
		{"empty name", func(h *models.Habit) { h.Name = "" }, "name"},
		{"bad type", func(h *models.Habit) { h.Type = "neutral" }, "type"},
		{"bad granularity", func(h *models.Habit) { h.Granularity = "fortnightly" }, "granularity"},
		{"zero times", func(h *models.Habit) { h.GranularityTimes = 0 }, "granularity_times"},
		{"negative times", func(h *models.Habit) { h.GranularityTimes = -3 }, "granularity_times"},
		{"bad color", func(h *models.Habit) { h.Color = "blue" }, "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := validDraft()
			tt.mutate(&h)
			err := ValidateHabitDraft(h)
			if err == nil {
				t.Fatal("expected the draft to be rejected")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not name field %q", err, tt.wantErr)
			}
		})
	}
}

func TestHexColor(t *testing.T) {
	for _, ok := range []string{"", "#abc", "#AABBCC", "#123456"} {
		if err := HexColor(ok); err != nil {
			t.Errorf("HexColor(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"abc", "#ab", "#abcd", "#gggggg", "red"} {
		if err := HexColor(bad); err == nil {
			t.Errorf("HexColor(%q) = nil, want an error", bad)
		}
	}
}

func TestRequired(t *testing.T) {
	if err := Required(""); err == nil {
		t.Error("expected an empty string to be rejected")
	}
	if err := Required(nil); err == nil {
		t.Error("expected nil to be rejected")
	}
	if err := Required("x"); err != nil {
		t.Errorf("Required(\"x\") = %v, want nil", err)
	}
}

func TestMin(t *testing.T) {
	atLeastOne := Min(1)
	if err := atLeastOne(0); err == nil {
		t.Error("expected 0 to be rejected")
	}
	if err := atLeastOne(1); err != nil {
		t.Errorf("Min(1)(1) = %v, want nil", err)
	}
	if err := atLeastOne("1"); err == nil {
		t.Error("expected a non-integer to be rejected")
	}
}

func TestApplyReportsField(t *testing.T) {
	rules := FieldRules{"count": {Min(1)}}
	err := Apply(rules, map[string]any{"count": 0})
	if err == nil || !strings.Contains(err.Error(), "count") {
		t.Errorf("error %v does not name the failing field", err)
	}
}
