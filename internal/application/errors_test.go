package application

import "testing"

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"madhab": "unsupported madhab"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected generic message, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	var nilErr *ValidationError
	if nilErr.HasErrors() {
		t.Fatalf("expected HasErrors to report false for nil error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"entries": "required"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("calculation_method", "calculation_method is required")
	base.add("calculation_method", "second message")
	if got := base.FieldErrors["calculation_method"]; got != "calculation_method is required" {
		t.Fatalf("expected first message to win, got %q", got)
	}

	personal := &ValidationError{}
	personal.add("birth_date", "birth_date is required")
	base.merge("personal_data", personal)
	if got := base.FieldErrors["personal_data.birth_date"]; got != "birth_date is required" {
		t.Fatalf("expected prefixed field after merge, got %#v", base.FieldErrors)
	}

	base.merge("ignored", nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}
