// Package validator checks request payloads before they reach the form controller.
// It collects one message per payload key, in the style of "Let's Go Further".
package validator

import (
	"regexp"
	"slices"
	"unicode/utf8"
)

// FieldIDRX is the accepted shape of a field identifier.
var FieldIDRX = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// Validator collects payload errors keyed by payload path.
// Designed for a single request, not for concurrent use.
type Validator struct {
	errors map[string]string
}

// New creates a Validator with no errors.
func New() *Validator {
	return &Validator{
		errors: make(map[string]string),
	}
}

// Valid returns true if no errors were recorded.
func (v *Validator) Valid() bool {
	return len(v.errors) == 0
}

// AddError records message for key unless key already has an error.
// The first failure for a key is the one reported.
func (v *Validator) AddError(key, message string) {
	if v.errors == nil {
		v.errors = make(map[string]string)
	}
	if _, exists := v.errors[key]; !exists {
		v.errors[key] = message
	}
}

// Check adds message for key when ok is false.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// ErrorMap returns a copy of the recorded errors, or nil when there are none.
func (v *Validator) ErrorMap() map[string]string {
	if len(v.errors) == 0 {
		return nil
	}

	errorsCopy := make(map[string]string, len(v.errors))
	for key, message := range v.errors {
		errorsCopy[key] = message
	}
	return errorsCopy
}

// PermittedValue returns true if value is one of permittedValues.
func PermittedValue[T comparable](value T, permittedValues ...T) bool {
	return slices.Contains(permittedValues, value)
}

// Matches returns true if value matches pattern. A nil pattern never matches.
func Matches(value string, pattern *regexp.Regexp) bool {
	if pattern == nil {
		return false
	}
	return pattern.MatchString(value)
}

// MaxChars returns true if value has at most n characters.
func MaxChars(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}
