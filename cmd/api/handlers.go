package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"formfields/internal/data"
	"formfields/internal/form"
	"formfields/internal/rules"
	"formfields/internal/validator"
)

const (
	maxValueChars   = 1024
	maxErrorsPerKey = 20
	maxMessageChars = 500
	defaultTopN     = 5
	maxTopN         = 100
)

func (app *application) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	healthResponse := data.HealthCheckResponse{
		Status: "available",
		SystemInfo: data.SystemInfo{
			Environment: app.config.Env,
			Version:     version,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		},
	}

	statusCode := http.StatusOK
	if app.statistics != nil {
		storeHealth, err := app.statistics.Health(ctx)
		healthResponse.Store = &storeHealth
		if err != nil {
			// validation still works without the store
			app.logger.WarnWithContext(ctx, "statistics store health check failed",
				"error", err,
				"response_time_ms", time.Since(start).Milliseconds())
			healthResponse.Status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	err := app.writeJSON(w, statusCode, envelope{"data": healthResponse}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// fieldsHandler returns the input table, filtered with ?mode=auto, and the
// identifiers that have a validation rule.
func (app *application) fieldsHandler(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "all"
	}

	v := validator.New()
	v.Check(validator.PermittedValue(mode, "all", "auto"), "mode", "must be one of all, auto")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.ErrorMap())
		return
	}

	output := data.FieldsOutput{
		Inputs:    app.inputs.ForMode(mode == "auto"),
		Validated: app.registry.IDs(),
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"data": output}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) validateHandler(w http.ResponseWriter, r *http.Request) {
	var input data.ValidateInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	validateValues(v, input.Values)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.ErrorMap())
		return
	}

	controller := form.New(app.registry, form.Props{
		Values:          input.Values,
		AsyncValidating: input.AsyncValidating,
	})
	report := controller.Report()

	app.recordFailures(r.Context(), report)

	app.logger.DebugWithContext(r.Context(), "form validated",
		"input", input.String(),
		"valid", report.Valid,
		"failing_fields", len(report.Fields))

	err = app.writeJSON(w, http.StatusOK, envelope{"data": report}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// changeHandler applies one edit through the controller's change callback and
// returns the new snapshot with the edited field's errors.
func (app *application) changeHandler(w http.ResponseWriter, r *http.Request) {
	var input data.ChangeInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Field != "", "field", "must be provided")
	v.Check(input.Field == "" || validator.Matches(string(input.Field), validator.FieldIDRX), "field", "must be a valid field identifier")
	v.Check(validator.MaxChars(input.Value, maxValueChars), "value", "must not be more than 1024 characters")
	validateValues(v, input.Values)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.ErrorMap())
		return
	}

	next := input.Values
	controller := form.New(app.registry, form.Props{
		Values:          input.Values,
		AsyncValidating: input.AsyncValidating,
		OnValuesChange: func(id rules.FieldID, value string) {
			next = next.Apply(id, value)
		},
	})
	controller.RequestValueChange(input.Field, form.ChangeEvent{Value: input.Value})

	updated := form.New(app.registry, form.Props{
		Values:          next,
		AsyncValidating: input.AsyncValidating,
	})
	output := data.ChangeOutput{
		Values: next,
		Errors: updated.ErrorsForField(input.Field),
		Valid:  updated.IsFormValid(),
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"data": output}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// statisticsHandler returns the most frequent validation failures.
func (app *application) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultTopN
	v := validator.New()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		v.Check(err == nil, "limit", "must be an integer")
		v.Check(err != nil || (n >= 1 && n <= maxTopN), "limit", "must be between 1 and 100")
		limit = n
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.ErrorMap())
		return
	}

	// without a statistics store there is nothing to report
	var mostFrequent *data.FailureEntry
	top := []*data.FailureEntry{}
	if app.statistics != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		var err error
		mostFrequent, err = app.statistics.GetMostFrequent(ctx)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		top, err = app.statistics.GetTopN(ctx, limit)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	responseData := envelope{
		"most_frequent_failure": mostFrequent,
		"top":                   top,
	}

	err := app.writeJSON(w, http.StatusOK, envelope{"data": responseData}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// recordFailures stores the report's failures. Statistics never affect the response.
func (app *application) recordFailures(ctx context.Context, report form.Report) {
	if app.statistics == nil || len(report.Fields) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := app.statistics.RecordReport(ctx, report)
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.WarnWithContext(ctx, "statistics recording failed",
			"error", err,
			"failing_fields", len(report.Fields))
	}
}

// validateValues checks the shape of a submitted snapshot.
func validateValues(v *validator.Validator, values form.State) {
	for _, id := range values.IDs() {
		key := "values." + string(id)
		entry := values[id]

		v.Check(validator.Matches(string(id), validator.FieldIDRX), key, "must be a valid field identifier")
		v.Check(validator.MaxChars(entry.Value, maxValueChars), key, "value must not be more than 1024 characters")
		v.Check(len(entry.Errors) <= maxErrorsPerKey, key, "must not carry more than 20 errors")
		for _, fieldErr := range entry.Errors {
			v.Check(fieldErr.Message != "", key, "error messages must not be empty")
			v.Check(validator.MaxChars(fieldErr.Message, maxMessageChars), key, "error messages must not be more than 500 characters")
		}
	}
}
