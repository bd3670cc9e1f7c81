// Package rules holds the per-field validation rules for the form fields.
// A Registry maps a field identifier to a pure Rule; it is built once and never mutated.
package rules

import (
	"regexp"
	"unicode/utf8"
)

// FieldID identifies one form input, e.g. "email".
type FieldID string

const (
	CardCVC              FieldID = "card_cvc"
	CardExpiry           FieldID = "card_expiry"
	CardName             FieldID = "card_name"
	CardNumber           FieldID = "card_number"
	Email                FieldID = "email"
	FirstName            FieldID = "first_name"
	LastName             FieldID = "last_name"
	Line1                FieldID = "line_1"
	Line2                FieldID = "line_2"
	Name                 FieldID = "name"
	Password             FieldID = "password"
	PhoneNumber          FieldID = "phone_number"
	Postcode             FieldID = "postcode"
	RecipientName        FieldID = "recipient_name"
	RecipientPhoneNumber FieldID = "recipient_phone_number"
)

// Result is the verdict of a Rule. Message is only set when OK is false.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Valid is the passing Result.
func Valid() Result {
	return Result{OK: true}
}

// Invalid returns a failing Result carrying message.
func Invalid(message string) Result {
	return Result{OK: false, Message: message}
}

// Rule validates a raw field value. Rules are pure and must not panic.
type Rule func(value string) Result

// Check turns a predicate into a Rule that fails with message.
func Check(pred func(string) bool, message string) Rule {
	return func(value string) Result {
		if pred == nil || !pred(value) {
			return Invalid(message)
		}
		return Valid()
	}
}

// Required fails on an empty value.
func Required(message string) Rule {
	return MinLength(1, message)
}

// MinLength passes when value has at least n characters.
func MinLength(n int, message string) Rule {
	return Check(func(value string) bool {
		return value != "" && utf8.RuneCountInString(value) >= n
	}, message)
}

// ExactLength passes when value has exactly n characters.
func ExactLength(n int, message string) Rule {
	return Check(func(value string) bool {
		return value != "" && utf8.RuneCountInString(value) == n
	}, message)
}

// Pattern passes when value matches re. A nil pattern never matches.
func Pattern(re *regexp.Regexp, message string) Rule {
	return Check(func(value string) bool {
		if re == nil {
			return false
		}
		return re.MatchString(value)
	}, message)
}
