// Package validation holds the field-level business rules applied at
// the data-entry boundary. The repositories only enforce structural
// schema compliance; everything value-shaped lives here, composed as
// named validators per field so the engine stays rule-free.
package validation

import (
	"fmt"
	"regexp"

	"github.com/habiter/habiter/internal/models"
)

// Validator checks a single field value.
type Validator func(value any) error

// FieldRules maps a field name to the validators applied to it.
type FieldRules map[string][]Validator

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Required rejects empty strings and nil values.
func Required(value any) error {
	switch v := value.(type) {
	case nil:
		return fmt.Errorf("this field is required")
	case string:
		if v == "" {
			return fmt.Errorf("this field is required")
		}
	}
	return nil
}

// OneOf restricts a string field to a fixed set of values.
func OneOf(allowed ...string) Validator {
	return func(value any) error {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", allowed)
	}
}

// HexColor accepts #RGB and #RRGGBB color strings; empty is allowed.
func HexColor(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !hexColorRe.MatchString(s) {
		return fmt.Errorf("must be a hex color like #aabbcc")
	}
	return nil
}

// Min rejects integers below n.
func Min(n int) Validator {
	return func(value any) error {
		i, ok := value.(int)
		if !ok {
			return fmt.Errorf("must be a number")
		}
		if i < n {
			return fmt.Errorf("must be at least %d", n)
		}
		return nil
	}
}

// Apply runs every rule against the matching field value and collects
// the first failure per field.
func Apply(rules FieldRules, values map[string]any) error {
	for field, validators := range rules {
		for _, validate := range validators {
			if err := validate(values[field]); err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
		}
	}
	return nil
}

// HabitRules are the rules applied to habit drafts at the boundary.
var HabitRules = FieldRules{
	"name":              {Required},
	"type":              {OneOf(string(models.HabitGood), string(models.HabitBad))},
	"granularity":       {OneOf(granularityNames()...)},
	"granularity_times": {Min(1)},
	"color":             {HexColor},
}

func granularityNames() []string {
	names := make([]string, len(models.Granularities))
	for i, g := range models.Granularities {
		names[i] = string(g)
	}
	return names
}

// ValidateHabitDraft checks a habit draft before it reaches the
// repository.
func ValidateHabitDraft(h models.Habit) error {
	return Apply(HabitRules, map[string]any{
		"name":              h.Name,
		"type":              string(h.Type),
		"granularity":       string(h.Granularity),
		"granularity_times": h.GranularityTimes,
		"color":             h.Color,
	})
}
