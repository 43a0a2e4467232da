package sequence

import (
	"errors"
	"fmt"
)

// LabelSet is the class order of a model's output and the display name of each class.
type LabelSet struct {
	Classes []string `json:"classes"`
	Display []string `json:"display"`
	// Nothing is the class meaning "no gesture in progress".
	Nothing string `json:"nothing"`
	// Version identifies the model the order was exported with.
	Version string `json:"version"`
}

// DefaultLabels returns the class order of the shipped model.
func DefaultLabels() LabelSet {
	return LabelSet{
		Classes: []string{"Hello", "I_Love_You", "Nothing", "Thank_You", "YES", "NO", "SORRY", "HELP", "PEACE"},
		Display: []string{"Hello", "I Love You", "Nothing", "Thank You", "Yes", "No", "Sorry", "Help", "Peace"},
		Nothing: "Nothing",
		Version: "lstm-v1",
	}
}

// Validate checks that the set is usable.
func (l LabelSet) Validate() error {
	if len(l.Classes) == 0 {
		return errors.New("label set has no classes")
	}
	if len(l.Display) != 0 && len(l.Display) != len(l.Classes) {
		return fmt.Errorf("label set has %d classes but %d display names", len(l.Classes), len(l.Display))
	}
	seen := make(map[string]struct{}, len(l.Classes))
	for _, c := range l.Classes {
		if _, ok := seen[c]; ok {
			return fmt.Errorf("duplicate class %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Len returns the number of classes.
func (l LabelSet) Len() int {
	return len(l.Classes)
}

// DisplayName returns the human-readable name of class i.
func (l LabelSet) DisplayName(i int) string {
	if i < len(l.Display) {
		return l.Display[i]
	}
	return l.Classes[i]
}

// NothingDisplay returns the display name of the Nothing class, or "" if there is none.
func (l LabelSet) NothingDisplay() string {
	for i, c := range l.Classes {
		if c == l.Nothing {
			return l.DisplayName(i)
		}
	}
	return ""
}
