// Package data holds the service's request and response models and the
// validation failure statistics store.
package data

import (
	"fmt"

	"formfields/internal/form"
	"formfields/internal/rules"
)

// ValidateInput is the body of POST /v1/validate.
type ValidateInput struct {
	// Values is the caller's full field snapshot
	Values form.State `json:"values"`
	// AsyncValidating is true while the caller waits on an out-of-band check
	AsyncValidating bool `json:"async_validating"`
}

// String returns a summary of the input for logging. Values are left out.
func (v ValidateInput) String() string {
	return fmt.Sprintf("ValidateInput{fields=%d, async_validating=%t}", len(v.Values), v.AsyncValidating)
}

// ChangeInput is the body of POST /v1/change.
type ChangeInput struct {
	Values          form.State    `json:"values"`
	AsyncValidating bool          `json:"async_validating"`
	Field           rules.FieldID `json:"field"`
	Value           string        `json:"value"`
}

// ChangeOutput is the state after applying a change, with the changed field's
// errors and the resulting form validity.
type ChangeOutput struct {
	Values form.State        `json:"values"`
	Errors []form.FieldError `json:"errors"`
	Valid  bool              `json:"valid"`
}

// FieldsOutput describes the input table and which fields carry a rule.
type FieldsOutput struct {
	Inputs    form.Inputs     `json:"inputs"`
	Validated []rules.FieldID `json:"validated"`
}

// HealthCheckResponse represents the health check response structure.
type HealthCheckResponse struct {
	Status     string           `json:"status"`
	SystemInfo SystemInfo       `json:"system_info"`
	Store      *StoreHealthInfo `json:"store,omitempty"`
}

// SystemInfo contains basic application information for health checks.
type SystemInfo struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Timestamp   string `json:"timestamp"`
}

// StoreHealthInfo describes the statistics store.
type StoreHealthInfo struct {
	Backend        string `json:"backend"`
	Status         string `json:"status"`
	CircuitState   string `json:"circuit_state,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	ActiveConns    int32  `json:"active_connections,omitempty"`
	IdleConns      int32  `json:"idle_connections,omitempty"`
	MaxConns       int32  `json:"max_connections,omitempty"`
}
