package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidState wraps every validation failure so callers can test for
// the category with errors.Is while still inspecting the ValidationError.
var ErrInvalidState = errors.New("invalid graph state")

// Validation rule identifiers reported in ValidationError.Rule.
const (
	RuleRequired     = "required"
	RuleFormat       = "format"
	RulePrefixMatch  = "prefix_match"
	RuleFlagConflict = "flag_conflict"
	RuleEmptyValue   = "empty_value"
	RuleUnknownValue = "unknown_value"
)

// ValidationError names the offending field and the rule it violated.
// Invariant violations are never silently dropped or auto-corrected.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Field, e.Rule, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidState.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidState
}

func invalid(field, rule, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}
