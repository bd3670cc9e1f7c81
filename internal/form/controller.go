package form

import (
	"slices"

	"formfields/internal/rules"
)

// ChangeFunc receives value change requests. The caller applies them to its
// own State.
type ChangeFunc func(id rules.FieldID, value string)

// ChangeEvent is the raw input event produced by an edit.
type ChangeEvent struct {
	Value string `json:"value"`
}

// Props is everything the caller hands to a Controller.
type Props struct {
	Values          State
	AsyncValidating bool
	OnValuesChange  ChangeFunc

	// Manual entry mode is not interpreted here, only passed on to presentation.
	IsManualEntryMode  func() bool
	SetManualEntryMode func(bool)
}

// Controller answers validation queries over one State snapshot.
type Controller struct {
	registry *rules.Registry
	props    Props
}

// New builds a Controller. A nil registry means rules.Default().
func New(registry *rules.Registry, props Props) *Controller {
	if registry == nil {
		registry = rules.Default()
	}
	return &Controller{
		registry: registry,
		props:    props,
	}
}

// HasRule reports whether id is validated at all. A field without a rule never
// has errors, which is indistinguishable from a valid field otherwise.
func (c *Controller) HasRule(id rules.FieldID) bool {
	return c.registry.Has(id)
}

// ErrorsForField returns the errors to show for id: the entry's external
// errors first, then the local rule's message if the rule fails. Fields with
// no registered rule have no errors.
func (c *Controller) ErrorsForField(id rules.FieldID) []FieldError {
	rule, ok := c.registry.Lookup(id)
	if !ok {
		return []FieldError{}
	}

	entry, _ := c.props.Values.Entry(id)
	errs := make([]FieldError, 0, len(entry.Errors)+1)
	errs = append(errs, entry.Errors...)

	result := rule(entry.Value)
	if !result.OK {
		errs = append(errs, FieldError{Message: result.Message})
	}
	return errs
}

// ValueForField returns the current value of id, or "" when there is no entry.
func (c *Controller) ValueForField(id rules.FieldID) string {
	entry, ok := c.props.Values.Entry(id)
	if !ok {
		return ""
	}
	return entry.Value
}

// Applicable returns the fields that take part in IsFormValid: those with a
// registered rule AND an entry in the State, sorted.
func (c *Controller) Applicable() []rules.FieldID {
	ids := c.registry.IDs()
	return slices.DeleteFunc(ids, func(id rules.FieldID) bool {
		_, ok := c.props.Values.Entry(id)
		return !ok
	})
}

// IsFormValid is false while an async validation is pending, or when any
// applicable field has errors.
func (c *Controller) IsFormValid() bool {
	if c.props.AsyncValidating {
		return false
	}
	for _, id := range c.Applicable() {
		if len(c.ErrorsForField(id)) > 0 {
			return false
		}
	}
	return true
}

// RequestValueChange forwards the edit to the caller's OnValuesChange. The
// snapshot is never modified here.
func (c *Controller) RequestValueChange(id rules.FieldID, event ChangeEvent) {
	if c.props.OnValuesChange == nil {
		return
	}
	c.props.OnValuesChange(id, event.Value)
}

// Report is a whole-form summary.
type Report struct {
	Fields  map[rules.FieldID][]FieldError `json:"fields"`
	Valid   bool                           `json:"valid"`
	Pending bool                           `json:"pending"`
}

// Report collects the errors of every applicable field that has any.
func (c *Controller) Report() Report {
	report := Report{
		Fields:  make(map[rules.FieldID][]FieldError),
		Pending: c.props.AsyncValidating,
	}
	for _, id := range c.Applicable() {
		if errs := c.ErrorsForField(id); len(errs) > 0 {
			report.Fields[id] = errs
		}
	}
	report.Valid = !report.Pending && len(report.Fields) == 0
	return report
}
