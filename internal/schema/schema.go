// Package schema models a parsed Schematron ruleset: namespace bindings
// and patterns holding rules with assert and report checks, all in
// document order.
package schema

import "github.com/jacoelho/schematron/internal/xmldoc"

// Namespace URIs under which Schematron elements are recognised. A zero
// namespace is also accepted so hand-written rulesets without an xmlns
// declaration still parse.
const (
	ISONamespace    = "http://purl.oclc.org/dsdl/schematron"
	LegacyNamespace = "http://www.ascc.net/xml/schematron"
)

// Document is one parsed ruleset.
type Document struct {
	Title      string
	Namespaces []Namespace
	Patterns   []*Pattern
}

// Namespace binds a prefix to a namespace URI for use in contexts and tests.
type Namespace struct {
	Prefix string
	URI    string
}

// Pattern is an ordered group of rules. Patterns are independent of each
// other; their order is evaluation order.
type Pattern struct {
	ID    string
	Title string
	Rules []*Rule
}

// Rule selects context nodes and applies its checks to each of them.
type Rule struct {
	Context string
	Checks  []*Check
	Pos     xmldoc.Position
}

// CheckKind distinguishes asserts from reports.
type CheckKind int

const (
	// Assert fires a finding when its test is false.
	Assert CheckKind = iota
	// Report fires a finding when its test is true.
	Report
)

// String returns the ruleset element name of the kind.
func (k CheckKind) String() string {
	if k == Report {
		return "report"
	}
	return "assert"
}

// Check is one assert or report inside a rule.
type Check struct {
	Kind    CheckKind
	Test    string
	Message Template
	Pos     xmldoc.Position
}

// Template is the mixed content of an assert or report message.
type Template struct {
	Parts []TemplatePart
}

// TemplatePartKind discriminates template parts.
type TemplatePartKind int

const (
	// TextPart is literal message text.
	TextPart TemplatePartKind = iota
	// ValueOfPart embeds the value selected by a path expression.
	ValueOfPart
	// NamePart embeds the name of the context node.
	NamePart
)

// TemplatePart is one piece of a message template.
type TemplatePart struct {
	Kind   TemplatePartKind
	Text   string
	Select string
}

// NamespaceContext returns the prefix-to-URI map used to compile contexts
// and tests.
func (d *Document) NamespaceContext() map[string]string {
	if len(d.Namespaces) == 0 {
		return nil
	}
	ctx := make(map[string]string, len(d.Namespaces))
	for _, ns := range d.Namespaces {
		ctx[ns.Prefix] = ns.URI
	}
	return ctx
}
