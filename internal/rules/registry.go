package rules

import (
	"regexp"
	"slices"
)

var (
	EmailRX      = regexp.MustCompile(`.+@.+\..+`)
	CardExpiryRX = regexp.MustCompile(`^(0?[1-9]|1[012])/20[1-9][0-9]$`)
	CardNumberRX = regexp.MustCompile(`^[1-4][0-9]{13,}`)
)

// Registry is an immutable FieldID -> Rule table.
type Registry struct {
	rules map[FieldID]Rule
	ids   []FieldID
}

// NewRegistry copies table into a new Registry. Nil rules are dropped.
func NewRegistry(table map[FieldID]Rule) *Registry {
	r := &Registry{
		rules: make(map[FieldID]Rule, len(table)),
		ids:   make([]FieldID, 0, len(table)),
	}

	for id, rule := range table {
		if rule == nil {
			continue
		}
		r.rules[id] = rule
		r.ids = append(r.ids, id)
	}
	slices.Sort(r.ids)

	return r
}

// Lookup returns the rule registered for id by exact match.
// The boolean is false when no rule is registered.
func (r *Registry) Lookup(id FieldID) (Rule, bool) {
	if r == nil {
		return nil, false
	}
	rule, ok := r.rules[id]
	return rule, ok
}

// Has reports whether a rule is registered for id.
func (r *Registry) Has(id FieldID) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Evaluate runs the rule for id against value.
// The boolean is false when no rule is registered, in which case the Result is zero.
func (r *Registry) Evaluate(id FieldID, value string) (Result, bool) {
	rule, ok := r.Lookup(id)
	if !ok {
		return Result{}, false
	}
	return rule(value), true
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []FieldID {
	if r == nil {
		return nil
	}
	return slices.Clone(r.ids)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// Default returns the registry used by the checkout and address forms.
func Default() *Registry {
	return NewRegistry(map[FieldID]Rule{
		CardCVC:              ExactLength(3, "Please enter a valid CVC"),
		CardExpiry:           Pattern(CardExpiryRX, "Please enter a valid expiry date"),
		CardName:             Required("Please enter a valid name"),
		CardNumber:           Pattern(CardNumberRX, "Please enter a valid card number"),
		Email:                Pattern(EmailRX, "Please enter a valid email address"),
		FirstName:            Required("Please enter a valid first name"),
		LastName:             Required("Please enter a valid last name"),
		Line1:                MinLength(2, "Please enter a valid address"),
		Line2:                MinLength(4, "Please enter a valid address"),
		Name:                 Required("Please enter a valid name"),
		Password:             MinLength(10, "Passwords must be more than 10 numbers and characters long"),
		PhoneNumber:          MinLength(6, "Please enter a valid phone number"),
		Postcode:             Required("Postcode is wrong"),
		RecipientName:        MinLength(2, "Please enter a valid name"),
		RecipientPhoneNumber: MinLength(6, "Please enter a valid phone number"),
	})
}
