package schema

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Write serialises the ruleset as an ISO Schematron document. Re-parsing
// the output yields a document producing identical findings.
func (d *Document) Write(w io.Writer) error {
	b := &writer{w: w}

	b.printf("<schema xmlns=\"%s\">\n", ISONamespace)
	if d.Title != "" {
		b.printf("  <title>%s</title>\n", escapeText(d.Title))
	}
	for _, ns := range d.Namespaces {
		b.printf("  <ns prefix=\"%s\" uri=\"%s\"/>\n", escapeAttr(ns.Prefix), escapeAttr(ns.URI))
	}
	for _, pattern := range d.Patterns {
		b.writePattern(pattern)
	}
	b.printf("</schema>\n")

	return b.err
}

type writer struct {
	w   io.Writer
	err error
}

func (b *writer) printf(format string, args ...any) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.w, format, args...)
}

func (b *writer) writePattern(pattern *Pattern) {
	b.printf("  <pattern")
	if pattern.ID != "" {
		b.printf(" id=\"%s\"", escapeAttr(pattern.ID))
	}
	if pattern.Title != "" {
		b.printf(" name=\"%s\"", escapeAttr(pattern.Title))
	}
	b.printf(">\n")
	for _, rule := range pattern.Rules {
		b.writeRule(rule)
	}
	b.printf("  </pattern>\n")
}

func (b *writer) writeRule(rule *Rule) {
	b.printf("    <rule context=\"%s\">\n", escapeAttr(rule.Context))
	for _, check := range rule.Checks {
		b.writeCheck(check)
	}
	b.printf("    </rule>\n")
}

func (b *writer) writeCheck(check *Check) {
	b.printf("      <%s test=\"%s\">", check.Kind, escapeAttr(check.Test))
	for _, part := range check.Message.Parts {
		switch part.Kind {
		case TextPart:
			b.printf("%s", escapeText(part.Text))
		case ValueOfPart:
			b.printf("<value-of select=\"%s\"/>", escapeAttr(part.Select))
		case NamePart:
			b.printf("<name/>")
		}
	}
	b.printf("</%s>\n", check.Kind)
}

func escapeText(s string) string {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

func escapeAttr(s string) string {
	return escapeText(s)
}
