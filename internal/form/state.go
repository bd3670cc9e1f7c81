// Package form derives field errors and whole-form validity from a caller-owned
// snapshot of field values. Nothing here owns state: every query is recomputed
// from the snapshot the Controller was built with.
package form

import (
	"maps"
	"slices"

	"formfields/internal/rules"
)

// FieldError is one message attached to a field.
type FieldError struct {
	Message string `json:"message"`
}

// FieldEntry is a field's raw input plus any errors attached by an external
// source (for example a server-side rejection) before local rules run.
type FieldEntry struct {
	Value  string       `json:"value"`
	Errors []FieldError `json:"errors,omitempty"`
}

// State maps every known field to its entry.
//
// Callers must include an entry, even an empty one, for every field they want
// validated: IsFormValid skips registry fields that have no entry here.
type State map[rules.FieldID]FieldEntry

// Entry returns the entry for id and whether it exists.
func (s State) Entry(id rules.FieldID) (FieldEntry, bool) {
	entry, ok := s[id]
	return entry, ok
}

// Apply returns a copy of s with id's value replaced. External errors already
// attached to the field are kept.
func (s State) Apply(id rules.FieldID, value string) State {
	next := make(State, len(s)+1)
	maps.Copy(next, s)

	entry := next[id]
	next[id] = FieldEntry{
		Value:  value,
		Errors: slices.Clone(entry.Errors),
	}
	return next
}

// IDs returns the fields present in s in sorted order.
func (s State) IDs() []rules.FieldID {
	return slices.Sorted(maps.Keys(s))
}
