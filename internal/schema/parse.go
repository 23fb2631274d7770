package schema

import (
	"io"
	"strings"

	schemaerrors "github.com/jacoelho/schematron/errors"
	"github.com/jacoelho/schematron/internal/xmldoc"
)

// Parse reads a Schematron ruleset. Structural failures are fatal: a
// ruleset that is not well-formed, a rule without a context, or a check
// without a test all abort parsing with a ValidationList error.
func Parse(r io.Reader) (*Document, error) {
	tree, err := xmldoc.Parse(r)
	if err != nil {
		return nil, parseFailure(err)
	}
	return fromTree(tree)
}

// ParseString reads a ruleset from an in-memory document.
func ParseString(rules string) (*Document, error) {
	tree, err := xmldoc.ParseString(rules)
	if err != nil {
		return nil, parseFailure(err)
	}
	return fromTree(tree)
}

// parseFailure maps well-formedness violations to the XML parse code;
// structural ruleset defects keep the schema parse code.
func parseFailure(err error) error {
	if pe, ok := err.(*xmldoc.ParseError); ok {
		return schemaerrors.ValidationList{
			schemaerrors.NewValidationAt(schemaerrors.ErrXMLParse, pe.Reason, pe.Line, pe.Column),
		}
	}
	return schemaerrors.ValidationList{
		schemaerrors.NewValidation(schemaerrors.ErrSchemaParse, err.Error(), ""),
	}
}

func fromTree(tree *xmldoc.Document) (*Document, error) {
	root := tree.Root()
	if !isSchematronElement(root, "schema") {
		return nil, schemaerrors.ValidationList{
			schemaerrors.NewValidationf(schemaerrors.ErrSchemaParse, "",
				"root element must be a schematron schema, found %s", root.Local),
		}
	}

	doc := &Document{}
	seenPrefixes := make(map[string]bool)

	for _, child := range root.Children() {
		switch {
		case isSchematronElement(child, "title"):
			doc.Title = strings.TrimSpace(child.TextContent())
		case isSchematronElement(child, "ns"):
			ns := Namespace{
				Prefix: child.GetAttribute("prefix"),
				URI:    child.GetAttribute("uri"),
			}
			if ns.Prefix == "" || ns.URI == "" {
				return nil, schemaerrors.ValidationList{
					schemaerrors.NewValidationAt(schemaerrors.ErrSchemaParse,
						"ns declaration requires prefix and uri attributes", child.Pos.Line, child.Pos.Column),
				}
			}
			if seenPrefixes[ns.Prefix] {
				return nil, schemaerrors.ValidationList{
					schemaerrors.NewValidationf(schemaerrors.ErrDuplicatePrefix, "",
						"namespace prefix %q is bound more than once", ns.Prefix),
				}
			}
			seenPrefixes[ns.Prefix] = true
			doc.Namespaces = append(doc.Namespaces, ns)
		case isSchematronElement(child, "pattern"):
			pattern, err := parsePattern(child)
			if err != nil {
				return nil, err
			}
			doc.Patterns = append(doc.Patterns, pattern)
		}
	}

	return doc, nil
}

func parsePattern(elem *xmldoc.Element) (*Pattern, error) {
	pattern := &Pattern{
		ID:    elem.GetAttribute("id"),
		Title: elem.GetAttribute("name"),
	}

	for _, child := range elem.Children() {
		switch {
		case isSchematronElement(child, "title"):
			pattern.Title = strings.TrimSpace(child.TextContent())
		case isSchematronElement(child, "rule"):
			ordinal := len(pattern.Rules) + 1
			rule, err := parseRule(child, pattern, ordinal)
			if err != nil {
				return nil, err
			}
			pattern.Rules = append(pattern.Rules, rule)
		}
	}

	return pattern, nil
}

func parseRule(elem *xmldoc.Element, pattern *Pattern, ordinal int) (*Rule, error) {
	context := elem.GetAttribute("context")
	if strings.TrimSpace(context) == "" {
		return nil, schemaerrors.ValidationList{
			schemaerrors.NewValidationf(schemaerrors.ErrRuleMissingContext, "",
				"rule %d of pattern %s has no context attribute", ordinal, patternLabel(pattern)),
		}
	}

	rule := &Rule{Context: context, Pos: elem.Pos}
	for _, child := range elem.Children() {
		var kind CheckKind
		switch {
		case isSchematronElement(child, "assert"):
			kind = Assert
		case isSchematronElement(child, "report"):
			kind = Report
		default:
			continue
		}

		test := child.GetAttribute("test")
		if strings.TrimSpace(test) == "" {
			return nil, schemaerrors.ValidationList{
				schemaerrors.NewValidationf(schemaerrors.ErrRuleMissingTest, context,
					"%s %d has no test attribute", kind, len(rule.Checks)+1),
			}
		}
		rule.Checks = append(rule.Checks, &Check{
			Kind:    kind,
			Test:    test,
			Message: parseTemplate(child),
			Pos:     child.Pos,
		})
	}

	return rule, nil
}

// parseTemplate reads the mixed content of an assert or report: literal
// text interleaved with value-of and name elements.
func parseTemplate(elem *xmldoc.Element) Template {
	// Text runs are kept raw; whitespace is collapsed only when the final
	// message is rendered, so spacing around embedded values survives.
	var parts []TemplatePart
	appendText := func(text string) {
		if text != "" {
			parts = append(parts, TemplatePart{Kind: TextPart, Text: text})
		}
	}

	runs := elem.TextSegments()
	next := 0
	for i, child := range elem.Children() {
		for next < len(runs) && runs[next].After <= i {
			appendText(runs[next].Text)
			next++
		}
		switch {
		case isSchematronElement(child, "value-of"):
			parts = append(parts, TemplatePart{Kind: ValueOfPart, Select: child.GetAttribute("select")})
		case isSchematronElement(child, "name"):
			parts = append(parts, TemplatePart{Kind: NamePart})
		}
	}
	for ; next < len(runs); next++ {
		appendText(runs[next].Text)
	}
	return Template{Parts: parts}
}

func patternLabel(pattern *Pattern) string {
	switch {
	case pattern.ID != "":
		return pattern.ID
	case pattern.Title != "":
		return pattern.Title
	default:
		return "(unnamed)"
	}
}

func isSchematronElement(elem *xmldoc.Element, local string) bool {
	if elem == nil || elem.Local != local {
		return false
	}
	switch elem.Namespace {
	case "", ISONamespace, LegacyNamespace:
		return true
	default:
		return false
	}
}

