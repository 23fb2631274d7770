// Package xmldoc parses subject documents into the minimal DOM the
// validation engine walks: namespace-resolved element names, ordered
// attributes and children, parent backreferences, and the 1-based
// line/column of every start tag.
package xmldoc

import "strings"

// XMLNSNamespace is the namespace URI of xmlns declarations.
const XMLNSNamespace = "http://www.w3.org/2000/xmlns/"

// Position is a 1-based line/column source position.
type Position struct {
	Line   int
	Column int
}

// Document holds one parsed subject document.
type Document struct {
	root *Element
}

// Root returns the document element.
func (d *Document) Root() *Element {
	if d == nil {
		return nil
	}
	return d.root
}

// Element is one element of the parsed tree. Names are namespace-resolved:
// Namespace holds the URI the original prefix was bound to, never the prefix.
type Element struct {
	Namespace string
	Local     string
	Pos       Position

	attrs    []Attr
	children []*Element
	parent   *Element
	text     string
	runs     []TextSegment
}

// TextSegment is one run of direct text, positioned after the first
// After child elements. Runs preserve the interleaving of text and
// child elements inside mixed content.
type TextSegment struct {
	After int
	Text  string
}

// Attr is one attribute with a namespace-resolved name.
type Attr struct {
	Namespace string
	Local     string
	Value     string
}

// Parent returns the parent element, or nil for the root.
func (e *Element) Parent() *Element {
	return e.parent
}

// Children returns the child elements in document order.
func (e *Element) Children() []*Element {
	return e.children
}

// Attributes returns the attributes in document order.
func (e *Element) Attributes() []Attr {
	return e.attrs
}

// GetAttribute returns the value of the first attribute with the given
// local name, ignoring namespaces. Missing attributes yield "".
func (e *Element) GetAttribute(local string) string {
	for _, a := range e.attrs {
		if a.Local == local {
			return a.Value
		}
	}
	return ""
}

// GetAttributeNS returns the value of the attribute with the given
// namespace URI and local name.
func (e *Element) GetAttributeNS(ns, local string) string {
	for _, a := range e.attrs {
		if a.Namespace == ns && a.Local == local {
			return a.Value
		}
	}
	return ""
}

// HasAttribute reports whether an attribute with the given local name exists.
func (e *Element) HasAttribute(local string) bool {
	for _, a := range e.attrs {
		if a.Local == local {
			return true
		}
	}
	return false
}

// HasAttributeNS reports whether an attribute with the given namespace URI
// and local name exists.
func (e *Element) HasAttributeNS(ns, local string) bool {
	for _, a := range e.attrs {
		if a.Namespace == ns && a.Local == local {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of the element subtree.
func (e *Element) TextContent() string {
	var sb strings.Builder
	e.collectText(&sb)
	return sb.String()
}

// DirectTextContent returns only the text directly under the element.
func (e *Element) DirectTextContent() string {
	return e.text
}

// TextSegments returns the direct text runs in document order.
func (e *Element) TextSegments() []TextSegment {
	return e.runs
}

// collectText interleaves direct text runs with child subtrees so mixed
// content keeps its document order.
func (e *Element) collectText(sb *strings.Builder) {
	next := 0
	for i, child := range e.children {
		for next < len(e.runs) && e.runs[next].After <= i {
			sb.WriteString(e.runs[next].Text)
			next++
		}
		child.collectText(sb)
	}
	for next < len(e.runs) {
		sb.WriteString(e.runs[next].Text)
		next++
	}
}
