package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of Schematron compilation or validation failure.
type ErrorCode string

const (
	// ErrSchemaNotLoaded indicates validation was attempted without a compiled schema.
	ErrSchemaNotLoaded ErrorCode = "sch-schema-not-loaded"
	// ErrXMLParse indicates the subject document could not be parsed.
	ErrXMLParse ErrorCode = "xml-parse-error"
	// ErrSchemaParse indicates the ruleset document could not be parsed.
	ErrSchemaParse ErrorCode = "sch-parse-error"
	// ErrNoRoot indicates the subject document has no root element.
	ErrNoRoot ErrorCode = "xml-no-root"

	// ErrRuleMissingTest indicates an assert or report carries no test attribute.
	ErrRuleMissingTest ErrorCode = "sch-rule-no-test"
	// ErrRuleMissingContext indicates a rule carries no context attribute.
	ErrRuleMissingContext ErrorCode = "sch-rule-no-context"
	// ErrDuplicatePrefix indicates the same namespace prefix was bound twice.
	ErrDuplicatePrefix ErrorCode = "sch-duplicate-prefix"

	// ErrInvalidContext indicates a rule context path could not be compiled.
	ErrInvalidContext ErrorCode = "sch-context-invalid"
	// ErrInvalidTest indicates a check test expression could not be evaluated.
	ErrInvalidTest ErrorCode = "sch-test-invalid"
)

// Validation describes one compilation or validation failure with an error
// code and optional rule context and line/column position.
//
//nolint:errname // public API name uses the Schematron domain term.
type Validation struct {
	Code    string
	Message string
	Context string
	Line    int
	Column  int
}

// ValidationList is an error that wraps one or more validation errors.
type ValidationList []Validation //nolint:errname // public API name, keep for compatibility.

// Error returns a compact summary of the validation errors.
func (v ValidationList) Error() string {
	switch len(v) {
	case 0:
		return "no validation errors"
	case 1:
		return v[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
	}
}

// Error formats the validation for display, including code, message, and position.
func (v *Validation) Error() string {
	if v == nil {
		return "validation <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", v.Code, v.Message))
	if v.Context != "" {
		b.WriteString(fmt.Sprintf(" in rule %q", v.Context))
	}
	if v.Line > 0 && v.Column > 0 {
		b.WriteString(fmt.Sprintf(" at line %d, column %d", v.Line, v.Column))
	}
	return b.String()
}

// NewValidation builds a Validation with a code, message, and optional rule context.
func NewValidation(code ErrorCode, msg, context string) Validation {
	return Validation{Code: string(code), Message: msg, Context: context}
}

// NewValidationf formats a message and builds a Validation.
func NewValidationf(code ErrorCode, context, format string, args ...any) Validation {
	return NewValidation(code, fmt.Sprintf(format, args...), context)
}

// NewValidationAt builds a Validation carrying a 1-based source position.
func NewValidationAt(code ErrorCode, msg string, line, column int) Validation {
	return Validation{Code: string(code), Message: msg, Line: line, Column: column}
}

// AsValidations extracts validation errors from an error returned by the engine.
func AsValidations(err error) ([]Validation, bool) {
	list, ok := asValidationList(err)
	if !ok {
		return nil, false
	}
	return []Validation(list), true
}

func asValidationList(err error) (ValidationList, bool) {
	if err == nil {
		return nil, false
	}
	var list ValidationList
	if errors.As(err, &list) {
		return list, true
	}

	var listPtr *ValidationList
	if errors.As(err, &listPtr) && listPtr != nil {
		return *listPtr, true
	}

	return nil, false
}
