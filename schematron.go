// Package schematron validates XML documents against Schematron rulesets.
//
// A ruleset is compiled once into a *Schema; the compiled schema is
// immutable and safe for concurrent use, so many documents can be
// validated in parallel against the same rules. Validation is a pure
// in-memory computation: the engine performs no I/O beyond draining the
// two readers it is handed.
package schematron

import (
	"fmt"
	"io"
	"strings"

	scherrors "github.com/jacoelho/schematron/errors"
	"github.com/jacoelho/schematron/internal/expr"
	"github.com/jacoelho/schematron/internal/schema"
	"github.com/jacoelho/schematron/internal/xpath"
)

// Schema is a compiled ruleset ready to validate documents.
// It is safe for concurrent use by multiple goroutines.
type Schema struct {
	doc      *schema.Document
	patterns []*compiledPattern
}

type compiledPattern struct {
	label string
	rules []*compiledRule
}

type compiledRule struct {
	context    string
	expr       xpath.Expression
	contextErr error
	checks     []*compiledCheck
}

type compiledCheck struct {
	kind    schema.CheckKind
	test    string
	expr    *expr.Compiled
	testErr error
	message []compiledPart
}

type compiledPart struct {
	kind schema.TemplatePartKind
	text string
	sel  xpath.Expression
	ok   bool
}

// Compile parses and compiles a Schematron ruleset. Structural errors
// (malformed markup, a rule without context, a check without test) are
// fatal and returned as a ValidationList. Syntax errors local to one
// rule's context or one check's test are not fatal here; they surface as
// diagnostic findings when the schema is used (see Validate).
func Compile(r io.Reader) (*Schema, error) {
	if r == nil {
		return nil, scherrors.ValidationList{
			scherrors.NewValidation(scherrors.ErrSchemaParse, "nil reader", ""),
		}
	}
	doc, err := schema.Parse(r)
	if err != nil {
		return nil, err
	}
	return compileDocument(doc), nil
}

// CompileString compiles a ruleset held in memory.
func CompileString(rules string) (*Schema, error) {
	doc, err := schema.ParseString(rules)
	if err != nil {
		return nil, err
	}
	return compileDocument(doc), nil
}

// Document returns the parsed rule model backing the compiled schema.
func (s *Schema) Document() *schema.Document {
	if s == nil {
		return nil
	}
	return s.doc
}

// Write serialises the ruleset; re-parsing the output compiles to a
// schema producing identical findings.
func (s *Schema) Write(w io.Writer) error {
	if s == nil || s.doc == nil {
		return fmt.Errorf("write schema: schema not loaded")
	}
	return s.doc.Write(w)
}

func compileDocument(doc *schema.Document) *Schema {
	nsContext := doc.NamespaceContext()
	compiled := &Schema{doc: doc}
	for _, pattern := range doc.Patterns {
		cp := &compiledPattern{label: patternLabel(pattern)}
		for _, rule := range pattern.Rules {
			cp.rules = append(cp.rules, compileRule(rule, nsContext))
		}
		compiled.patterns = append(compiled.patterns, cp)
	}
	return compiled
}

func compileRule(rule *schema.Rule, nsContext map[string]string) *compiledRule {
	cr := &compiledRule{context: rule.Context}
	cr.expr, cr.contextErr = compileContext(rule.Context, nsContext)
	for _, check := range rule.Checks {
		cr.checks = append(cr.checks, compileCheck(check, nsContext))
	}
	return cr
}

// compileContext compiles a rule context and rejects paths that select
// attributes: a rule fires on elements only.
func compileContext(context string, nsContext map[string]string) (xpath.Expression, error) {
	compiled, err := xpath.Compile(context, nsContext)
	if err != nil {
		return xpath.Expression{}, err
	}
	for _, path := range compiled.Paths {
		if path.Attribute != nil {
			return xpath.Expression{}, fmt.Errorf("%w: rule context must select elements: %s", xpath.ErrInvalidPath, context)
		}
	}
	return compiled, nil
}

func compileCheck(check *schema.Check, nsContext map[string]string) *compiledCheck {
	cc := &compiledCheck{kind: check.Kind, test: check.Test}
	cc.expr, cc.testErr = expr.Compile(check.Test, nsContext)
	for _, part := range check.Message.Parts {
		cc.message = append(cc.message, compilePart(part, nsContext))
	}
	return cc
}

func compilePart(part schema.TemplatePart, nsContext map[string]string) compiledPart {
	cp := compiledPart{kind: part.Kind, text: part.Text}
	if part.Kind != schema.ValueOfPart {
		cp.ok = true
		return cp
	}
	sel, err := xpath.Compile(part.Select, nsContext)
	if err == nil {
		cp.sel = sel
		cp.ok = true
	}
	return cp
}

func patternLabel(pattern *schema.Pattern) string {
	switch {
	case pattern.ID != "":
		return pattern.ID
	case pattern.Title != "":
		return pattern.Title
	default:
		return ""
	}
}

// collapseSpace normalises rendered message whitespace to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
