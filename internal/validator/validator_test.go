package validator

import (
	"regexp"
	"strings"
	"testing"
)

// TestValidatorBasicFunctionality tests core Validator functionality
func TestValidatorBasicFunctionality(t *testing.T) {
	t.Run("new validator is valid", func(t *testing.T) {
		v := New()
		if !v.Valid() {
			t.Error("New validator should be valid")
		}

		if errorMap := v.ErrorMap(); errorMap != nil {
			t.Errorf("New validator should have nil error map, got %v", errorMap)
		}
	})

	t.Run("adding error makes validator invalid", func(t *testing.T) {
		v := New()
		v.AddError("values.email", "error message")

		if v.Valid() {
			t.Error("Validator should be invalid after adding error")
		}

		errorMap := v.ErrorMap()
		if len(errorMap) != 1 {
			t.Errorf("Expected 1 error, got %d", len(errorMap))
		}
		if errorMap["values.email"] != "error message" {
			t.Errorf("Expected 'error message', got %v", errorMap["values.email"])
		}
	})

	t.Run("check with true condition does not add error", func(t *testing.T) {
		v := New()
		v.Check(true, "field", "should not appear")

		if !v.Valid() {
			t.Error("Validator should remain valid after successful check")
		}
	})

	t.Run("zero value validator accepts errors", func(t *testing.T) {
		var v Validator
		v.AddError("field", "message")
		if v.Valid() {
			t.Error("zero value validator should record errors")
		}
	})
}

func TestValidatorFirstErrorWins(t *testing.T) {
	v := New()
	v.Check(false, "field", "must be provided")
	v.Check(false, "field", "must not be more than 10 characters")

	if got := v.ErrorMap()["field"]; got != "must be provided" {
		t.Errorf("expected first message to be kept, got %q", got)
	}
}

func TestErrorMapIsACopy(t *testing.T) {
	v := New()
	v.AddError("field", "original")

	errorMap := v.ErrorMap()
	errorMap["field"] = "modified"
	errorMap["other"] = "added"

	fresh := v.ErrorMap()
	if fresh["field"] != "original" || len(fresh) != 1 {
		t.Errorf("internal state changed through returned map: %v", fresh)
	}
}

func TestPermittedValue(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		permitted []string
		expected  bool
	}{
		{"value in list", "auto", []string{"auto", "all"}, true},
		{"value not in list", "manual", []string{"auto", "all"}, false},
		{"empty list", "auto", nil, false},
		{"case sensitive", "AUTO", []string{"auto"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PermittedValue(tt.value, tt.permitted...); got != tt.expected {
				t.Errorf("PermittedValue(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"simple id", "email", true},
		{"underscores and digits", "line_1", true},
		{"uppercase rejected", "Email", false},
		{"leading digit rejected", "1line", false},
		{"empty rejected", "", false},
		{"spaces rejected", "first name", false},
		{"too long rejected", "a" + strings.Repeat("b", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.value, FieldIDRX); got != tt.expected {
				t.Errorf("Matches(%q) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}

	t.Run("nil pattern returns false", func(t *testing.T) {
		if Matches("anything", nil) {
			t.Error("nil pattern should never match")
		}
	})

	t.Run("custom pattern", func(t *testing.T) {
		if !Matches("abc", regexp.MustCompile(`^a`)) {
			t.Error("expected match")
		}
	})
}

func TestMaxChars(t *testing.T) {
	if !MaxChars("héllo", 5) {
		t.Error("MaxChars should count runes, not bytes")
	}
	if MaxChars("hello!", 5) {
		t.Error("MaxChars should reject values over the limit")
	}
}
