package form

import "formfields/internal/rules"

// Capabilities is the bundle of functions handed to the presentation layer.
// The manual entry members are copied from Props and may be nil.
type Capabilities struct {
	ErrorsForField     func(id rules.FieldID) []FieldError
	IsFormValid        func() bool
	ValueForField      func(id rules.FieldID) string
	SetValueForField   func(id rules.FieldID, event ChangeEvent)
	IsManualEntryMode  func() bool
	SetManualEntryMode func(bool)
}

// Capabilities returns the controller's operations as a Capabilities bundle.
func (c *Controller) Capabilities() Capabilities {
	return Capabilities{
		ErrorsForField:     c.ErrorsForField,
		IsFormValid:        c.IsFormValid,
		ValueForField:      c.ValueForField,
		SetValueForField:   c.RequestValueChange,
		IsManualEntryMode:  c.props.IsManualEntryMode,
		SetManualEntryMode: c.props.SetManualEntryMode,
	}
}
