package schematron

import (
	"errors"
	"fmt"
	"io"
	"strings"

	scherrors "github.com/jacoelho/schematron/errors"
	"github.com/jacoelho/schematron/internal/schema"
	"github.com/jacoelho/schematron/internal/xmldoc"
	"github.com/jacoelho/schematron/internal/xpath"
)

// successMessage is the aggregate finding appended when a run produced no
// error finding.
const successMessage = "document is valid"

// Validate is the one-shot entry point: it compiles the ruleset,
// validates the document, and folds every failure into the returned
// findings. Fatal failures (ruleset or document not usable) yield a
// single error finding. The result always contains at least one finding.
func Validate(rulesText, xmlText string) []Finding {
	compiled, err := CompileString(rulesText)
	if err != nil {
		return fatalFindings(err)
	}
	findings, err := compiled.ValidateString(xmlText)
	if err != nil {
		return fatalFindings(err)
	}
	return findings
}

// Validate validates one subject document against the compiled schema.
// The returned findings follow ruleset document order: patterns, then
// rules, then matched nodes in subject document order, then checks.
// When no error finding was produced, one aggregate success finding is
// appended. A document that cannot be parsed is a fatal error.
func (s *Schema) Validate(r io.Reader) ([]Finding, error) {
	if s == nil || s.doc == nil {
		return nil, scherrors.ValidationList{
			scherrors.NewValidation(scherrors.ErrSchemaNotLoaded, "schema not loaded", ""),
		}
	}
	if r == nil {
		return nil, scherrors.ValidationList{
			scherrors.NewValidation(scherrors.ErrXMLParse, "nil reader", ""),
		}
	}
	doc, err := xmldoc.Parse(r)
	if err != nil {
		return nil, documentFailure(err)
	}
	return s.run(doc), nil
}

// ValidateString validates an in-memory subject document.
func (s *Schema) ValidateString(xmlText string) ([]Finding, error) {
	if s == nil || s.doc == nil {
		return nil, scherrors.ValidationList{
			scherrors.NewValidation(scherrors.ErrSchemaNotLoaded, "schema not loaded", ""),
		}
	}
	doc, err := xmldoc.ParseString(xmlText)
	if err != nil {
		return nil, documentFailure(err)
	}
	return s.run(doc), nil
}

func documentFailure(err error) error {
	var pe *xmldoc.ParseError
	if errors.As(err, &pe) {
		return scherrors.ValidationList{
			scherrors.NewValidationAt(scherrors.ErrXMLParse, pe.Reason, pe.Line, pe.Column),
		}
	}
	return scherrors.ValidationList{
		scherrors.NewValidation(scherrors.ErrXMLParse, err.Error(), ""),
	}
}

// fatalFindings renders a fatal error as the sole finding of a run.
func fatalFindings(err error) []Finding {
	if validations, ok := scherrors.AsValidations(err); ok && len(validations) > 0 {
		v := validations[0]
		f := Finding{Severity: SeverityError, Message: v.Error(), Rule: v.Context}
		if v.Line > 0 {
			f.Location = &Location{Line: v.Line, Column: v.Column}
		}
		return []Finding{f}
	}
	return []Finding{{Severity: SeverityError, Message: err.Error()}}
}

// run walks patterns, rules, matched nodes, and checks in order,
// isolating failures local to one rule or one check.
func (s *Schema) run(doc *xmldoc.Document) []Finding {
	sel := xpath.NewSelector(doc)
	var findings []Finding

	for _, pattern := range s.patterns {
		for _, rule := range pattern.rules {
			findings = s.runRule(pattern, rule, sel, findings)
		}
	}

	if !HasErrors(findings) {
		findings = append(findings, Finding{
			Severity: SeveritySuccess,
			Message:  successMessage,
		})
	}
	return findings
}

func (s *Schema) runRule(pattern *compiledPattern, rule *compiledRule, sel *xpath.Selector, findings []Finding) []Finding {
	if rule.contextErr != nil {
		return append(findings, Finding{
			Severity: SeverityError,
			Message: fmt.Sprintf("[%s] rule context %q cannot be parsed: %v",
				scherrors.ErrInvalidContext, rule.context, rule.contextErr),
			Pattern: pattern.label,
			Rule:    rule.context,
		})
	}

	matched := sel.SelectContexts(rule.expr)
	if len(matched) == 0 {
		// The rule did not fire; a context matching nothing is not an error.
		return findings
	}

	reportedBadCheck := make(map[*compiledCheck]bool)
	for _, node := range matched {
		for _, check := range rule.checks {
			if check.testErr != nil {
				if !reportedBadCheck[check] {
					reportedBadCheck[check] = true
					findings = append(findings, Finding{
						Severity: SeverityError,
						Message: fmt.Sprintf("[%s] %s test %q cannot be evaluated: %v",
							scherrors.ErrInvalidTest, check.kind, check.test, check.testErr),
						Pattern: pattern.label,
						Rule:    rule.context,
						Check:   check.kind.String(),
					})
				}
				continue
			}

			result := check.expr.Evaluate(sel, node)
			fires := result == (check.kind == schema.Report)
			if !fires {
				continue
			}
			findings = append(findings, Finding{
				Severity: SeverityError,
				Message:  s.renderMessage(check, sel, node),
				Location: &Location{Line: node.Pos.Line, Column: node.Pos.Column},
				Pattern:  pattern.label,
				Rule:     rule.context,
				Check:    check.kind.String(),
			})
		}
	}
	return findings
}

// renderMessage renders the check's message template against the matched
// node; whitespace is collapsed after substitution. A check without
// message text falls back to naming its test.
func (s *Schema) renderMessage(check *compiledCheck, sel *xpath.Selector, node *xmldoc.Element) string {
	var sb strings.Builder
	for _, part := range check.message {
		switch part.kind {
		case schema.TextPart:
			sb.WriteString(part.text)
		case schema.NamePart:
			sb.WriteString(node.Local)
		case schema.ValueOfPart:
			if !part.ok {
				continue
			}
			if values := sel.Values(part.sel, node); len(values) > 0 {
				sb.WriteString(values[0])
			}
		}
	}
	message := collapseSpace(sb.String())
	if message == "" {
		if check.kind == schema.Report {
			return fmt.Sprintf("report test matched: %s", check.test)
		}
		return fmt.Sprintf("assertion failed: %s", check.test)
	}
	return message
}
