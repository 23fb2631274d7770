package xpath

import (
	"errors"
	"testing"
)

func TestCompileSteps(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		absolute bool
		steps    int
	}{
		{name: "single name", expr: "book", steps: 1},
		{name: "absolute path", expr: "/library/book", absolute: true, steps: 2},
		{name: "descendant prefix", expr: "//book", absolute: true, steps: 2},
		{name: "relative descendant", expr: ".//book", steps: 2},
		{name: "mid-path descendant", expr: "library//book", steps: 3},
		{name: "wildcard", expr: "*", steps: 1},
		{name: "dot", expr: ".", steps: 1},
		{name: "explicit child axis", expr: "child::book", steps: 1},
		{name: "whitespace tolerated", expr: "  /library/book  ", absolute: true, steps: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := Compile(tt.expr, nil)
			if err != nil {
				t.Fatalf("Compile(%q) error = %v", tt.expr, err)
			}
			if len(compiled.Paths) != 1 {
				t.Fatalf("paths = %d, want 1", len(compiled.Paths))
			}
			path := compiled.Paths[0]
			if path.Absolute != tt.absolute {
				t.Fatalf("absolute = %v, want %v", path.Absolute, tt.absolute)
			}
			if len(path.Steps) != tt.steps {
				t.Fatalf("steps = %d, want %d", len(path.Steps), tt.steps)
			}
		})
	}
}

func TestCompilePredicates(t *testing.T) {
	compiled, err := Compile(`book[@lang='en'][@id][title][2]`, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	preds := compiled.Paths[0].Steps[0].Predicates
	if len(preds) != 4 {
		t.Fatalf("predicates = %d, want 4", len(preds))
	}
	wantKinds := []PredicateKind{PredAttrEquals, PredAttrExists, PredChildExists, PredPosition}
	for i, pred := range preds {
		if pred.Kind != wantKinds[i] {
			t.Fatalf("predicate %d kind = %v, want %v", i, pred.Kind, wantKinds[i])
		}
	}
	if preds[0].Value != "en" {
		t.Fatalf("predicate value = %q, want en", preds[0].Value)
	}
	if preds[3].Position != 2 {
		t.Fatalf("predicate position = %d, want 2", preds[3].Position)
	}
}

func TestCompileAttributePath(t *testing.T) {
	compiled, err := Compile("book/@id", nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	path := compiled.Paths[0]
	if path.Attribute == nil || path.Attribute.Local != "id" {
		t.Fatalf("attribute = %+v, want id", path.Attribute)
	}
	if len(path.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(path.Steps))
	}
}

func TestCompilePrefixes(t *testing.T) {
	ns := map[string]string{"cda": "urn:hl7-org:v3"}
	compiled, err := Compile("cda:ClinicalDocument/cda:code", ns)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	step := compiled.Paths[0].Steps[0]
	if step.Test.Namespace != "urn:hl7-org:v3" || step.Test.Local != "ClinicalDocument" {
		t.Fatalf("test = %+v, want ClinicalDocument in urn:hl7-org:v3", step.Test)
	}
	if !step.Test.NamespaceSpecified {
		t.Fatal("namespace should be specified")
	}
}

func TestCompileUnion(t *testing.T) {
	compiled, err := Compile("title | author", nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(compiled.Paths) != 2 {
		t.Fatalf("paths = %d, want 2", len(compiled.Paths))
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ns   map[string]string
	}{
		{name: "empty", expr: ""},
		{name: "lone slash", expr: "/"},
		{name: "double separator", expr: "a///b"},
		{name: "undeclared prefix", expr: "cda:doc"},
		{name: "bad qname", expr: "1book"},
		{name: "unterminated predicate", expr: "book[@id"},
		{name: "unterminated literal", expr: "book[@id=']"},
		{name: "comparison without quotes", expr: "book[@id=1]"},
		{name: "empty union branch", expr: "a | | b"},
		{name: "attribute mid-path", expr: "@id/book"},
		{name: "disallowed axis", expr: "ancestor::book"},
		{name: "function call", expr: "book[position()]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr, tt.ns)
			if err == nil {
				t.Fatalf("Compile(%q) expected error", tt.expr)
			}
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("error = %v, want ErrInvalidPath", err)
			}
		})
	}
}
