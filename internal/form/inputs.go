package form

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"formfields/internal/rules"
)

// InputKind is the HTML input type a field is rendered with.
type InputKind string

const (
	InputText  InputKind = "text"
	InputEmail InputKind = "email"
)

// Input is presentation metadata for one field. The controller never reads it.
type Input struct {
	Label          string        `json:"label" yaml:"label"`
	Name           rules.FieldID `json:"name" yaml:"name"`
	Type           InputKind     `json:"type" yaml:"type"`
	ShowInAutoMode bool          `json:"show_in_auto_mode" yaml:"show_in_auto_mode"`
}

// Inputs is an ordered input table.
type Inputs []Input

// DefaultInputs returns the contact and address inputs in display order.
func DefaultInputs() Inputs {
	return Inputs{
		{Label: "Name", Name: rules.Name, Type: InputText, ShowInAutoMode: true},
		{Label: "Phone number", Name: rules.PhoneNumber, Type: InputText, ShowInAutoMode: true},
		{Label: "First name", Name: rules.FirstName, Type: InputText, ShowInAutoMode: true},
		{Label: "Last name", Name: rules.LastName, Type: InputText, ShowInAutoMode: true},
		{Label: "Email", Name: rules.Email, Type: InputEmail, ShowInAutoMode: true},
		{Label: "Address 1", Name: rules.Line1, Type: InputText, ShowInAutoMode: false},
		{Label: "Address 2", Name: rules.Line2, Type: InputText, ShowInAutoMode: false},
		{Label: "Post code", Name: rules.Postcode, Type: InputText, ShowInAutoMode: true},
	}
}

// ForMode returns the inputs shown in auto mode when auto is true, and every
// input otherwise.
func (in Inputs) ForMode(auto bool) Inputs {
	if !auto {
		return append(Inputs(nil), in...)
	}
	out := make(Inputs, 0, len(in))
	for _, input := range in {
		if input.ShowInAutoMode {
			out = append(out, input)
		}
	}
	return out
}

// EmptyState returns a State holding an empty entry for every input, which is
// what callers should start from so that every shown field is validated.
func (in Inputs) EmptyState() State {
	state := make(State, len(in))
	for _, input := range in {
		state[input.Name] = FieldEntry{}
	}
	return state
}

var ErrEmptyInputs = errors.New("input table is empty")

// LoadInputs reads a YAML list of inputs. Type defaults to "text".
func LoadInputs(r io.Reader) (Inputs, error) {
	var inputs Inputs
	if err := yaml.NewDecoder(r).Decode(&inputs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInputs
		}
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	seen := make(map[rules.FieldID]struct{}, len(inputs))
	for i := range inputs {
		input := &inputs[i]
		input.Label = strings.TrimSpace(input.Label)
		if input.Name == "" {
			return nil, fmt.Errorf("input %d: name is required", i)
		}
		if input.Label == "" {
			return nil, fmt.Errorf("input %q: label is required", input.Name)
		}
		if _, dup := seen[input.Name]; dup {
			return nil, fmt.Errorf("input %q: duplicate name", input.Name)
		}
		seen[input.Name] = struct{}{}
		if input.Type == "" {
			input.Type = InputText
		}
	}
	return inputs, nil
}
