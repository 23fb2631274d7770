package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		v    Validation
		want string
	}{
		{
			name: "code and message",
			v:    NewValidation(ErrInvalidTest, "bad test", ""),
			want: `[sch-test-invalid] bad test`,
		},
		{
			name: "with rule context",
			v:    NewValidation(ErrInvalidContext, "bad path", "book"),
			want: `[sch-context-invalid] bad path in rule "book"`,
		},
		{
			name: "with position",
			v:    NewValidationAt(ErrXMLParse, "unexpected EOF", 3, 7),
			want: `[xml-parse-error] unexpected EOF at line 3, column 7`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Error(); got != tt.want {
				t.Fatalf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationListError(t *testing.T) {
	if got := (ValidationList{}).Error(); got != "no validation errors" {
		t.Fatalf("empty list = %q", got)
	}
	list := ValidationList{
		NewValidation(ErrRuleMissingTest, "first", ""),
		NewValidation(ErrRuleMissingTest, "second", ""),
	}
	if got := list.Error(); got != "[sch-rule-no-test] first (and 1 more)" {
		t.Fatalf("list = %q", got)
	}
}

func TestAsValidations(t *testing.T) {
	list := ValidationList{NewValidation(ErrSchemaParse, "boom", "")}

	got, ok := AsValidations(fmt.Errorf("compile: %w", list))
	if !ok || len(got) != 1 || got[0].Code != string(ErrSchemaParse) {
		t.Fatalf("AsValidations() = %v, %v", got, ok)
	}

	if _, ok := AsValidations(errors.New("plain")); ok {
		t.Fatal("plain error should not convert")
	}
	if _, ok := AsValidations(nil); ok {
		t.Fatal("nil error should not convert")
	}
}
