package xpath

import (
	"github.com/jacoelho/schematron/internal/xmldoc"
)

// Selector evaluates compiled expressions against one parsed document.
// The zero value is not usable; construct with NewSelector.
type Selector struct {
	root *xmldoc.Element
}

// NewSelector binds a selector to a document root.
func NewSelector(doc *xmldoc.Document) *Selector {
	return &Selector{root: doc.Root()}
}

// SelectContexts evaluates a rule context against the whole document.
// Both absolute and relative paths start at the document node, the
// virtual parent of the root element. Results are in document order
// with duplicates removed.
func (s *Selector) SelectContexts(expr Expression) []*xmldoc.Element {
	seen := make(map[*xmldoc.Element]bool)
	for _, path := range expr.Paths {
		for _, elem := range s.evalPath(path, nil) {
			seen[elem] = true
		}
	}
	return s.documentOrder(seen)
}

// SelectFrom evaluates an expression relative to a context node.
// Absolute paths restart at the document node. Results are in document
// order with duplicates removed.
func (s *Selector) SelectFrom(expr Expression, node *xmldoc.Element) []*xmldoc.Element {
	seen := make(map[*xmldoc.Element]bool)
	for _, path := range expr.Paths {
		start := node
		if path.Absolute {
			start = nil
		}
		for _, elem := range s.evalPath(path, start) {
			seen[elem] = true
		}
	}
	return s.documentOrder(seen)
}

// Exists reports whether the expression selects at least one element or
// attribute when evaluated relative to node.
func (s *Selector) Exists(expr Expression, node *xmldoc.Element) bool {
	for _, path := range expr.Paths {
		start := node
		if path.Absolute {
			start = nil
		}
		targets := s.evalPath(path, start)
		if path.Attribute == nil {
			if len(targets) > 0 {
				return true
			}
			continue
		}
		for _, elem := range targets {
			if hasMatchingAttr(elem, *path.Attribute) {
				return true
			}
		}
	}
	return false
}

// Values returns the string-values selected by the expression relative to
// node: attribute values for attribute paths, subtree text otherwise.
func (s *Selector) Values(expr Expression, node *xmldoc.Element) []string {
	var values []string
	for _, path := range expr.Paths {
		start := node
		if path.Absolute {
			start = nil
		}
		targets := s.evalPath(path, start)
		if path.Attribute == nil {
			for _, elem := range targets {
				values = append(values, elem.TextContent())
			}
			continue
		}
		for _, elem := range targets {
			values = append(values, matchingAttrValues(elem, *path.Attribute)...)
		}
	}
	return values
}

// evalPath walks the path steps from start; a nil start is the document node.
func (s *Selector) evalPath(path Path, start *xmldoc.Element) []*xmldoc.Element {
	current := []*xmldoc.Element{start}
	for _, step := range path.Steps {
		var next []*xmldoc.Element
		seen := make(map[*xmldoc.Element]bool)
		for _, node := range current {
			for _, result := range s.evalStep(step, node) {
				if !seen[result] {
					seen[result] = true
					next = append(next, result)
				}
			}
		}
		current = next
		if len(current) == 0 {
			return nil
		}
	}

	// A path of only an attribute step selects the context node itself.
	if len(path.Steps) == 0 {
		if start == nil {
			return nil
		}
		return []*xmldoc.Element{start}
	}
	return current
}

func (s *Selector) evalStep(step Step, node *xmldoc.Element) []*xmldoc.Element {
	var candidates []*xmldoc.Element
	switch step.Axis {
	case AxisSelf:
		if node != nil && matchesTest(node, step.Test) {
			candidates = append(candidates, node)
		}
	case AxisChild:
		for _, child := range s.childrenOf(node) {
			if matchesTest(child, step.Test) {
				candidates = append(candidates, child)
			}
		}
	case AxisDescendant:
		candidates = s.collectDescendants(node, step.Test, candidates)
	case AxisDescendantOrSelf:
		if node != nil && matchesTest(node, step.Test) {
			candidates = append(candidates, node)
		}
		candidates = s.collectDescendants(node, step.Test, candidates)
	}
	return applyPredicates(candidates, step.Predicates)
}

// childrenOf treats a nil node as the document node whose only child is
// the root element.
func (s *Selector) childrenOf(node *xmldoc.Element) []*xmldoc.Element {
	if node == nil {
		if s.root == nil {
			return nil
		}
		return []*xmldoc.Element{s.root}
	}
	return node.Children()
}

func (s *Selector) collectDescendants(node *xmldoc.Element, test NodeTest, results []*xmldoc.Element) []*xmldoc.Element {
	for _, child := range s.childrenOf(node) {
		if matchesTest(child, test) {
			results = append(results, child)
		}
		results = s.collectDescendants(child, test, results)
	}
	return results
}

func applyPredicates(candidates []*xmldoc.Element, preds []Predicate) []*xmldoc.Element {
	for _, pred := range preds {
		var kept []*xmldoc.Element
		for i, elem := range candidates {
			if matchesPredicate(elem, pred, i+1) {
				kept = append(kept, elem)
			}
		}
		candidates = kept
	}
	return candidates
}

func matchesPredicate(elem *xmldoc.Element, pred Predicate, position int) bool {
	switch pred.Kind {
	case PredAttrExists:
		return hasMatchingAttr(elem, pred.Test)
	case PredAttrEquals:
		for _, value := range matchingAttrValues(elem, pred.Test) {
			if value == pred.Value {
				return true
			}
		}
		return false
	case PredChildExists:
		for _, child := range elem.Children() {
			if matchesTest(child, pred.Test) {
				return true
			}
		}
		return false
	case PredPosition:
		return position == pred.Position
	}
	return false
}

// matchesTest checks an element against a name test by expanded name, so
// matching is independent of the prefixes either document declares.
func matchesTest(elem *xmldoc.Element, test NodeTest) bool {
	if test.Any {
		return true
	}
	if test.Local != "*" && elem.Local != test.Local {
		return false
	}
	if test.NamespaceSpecified && elem.Namespace != test.Namespace {
		return false
	}
	return true
}

func hasMatchingAttr(elem *xmldoc.Element, test NodeTest) bool {
	for _, a := range elem.Attributes() {
		if matchesAttr(a, test) {
			return true
		}
	}
	return false
}

func matchingAttrValues(elem *xmldoc.Element, test NodeTest) []string {
	var values []string
	for _, a := range elem.Attributes() {
		if matchesAttr(a, test) {
			values = append(values, a.Value)
		}
	}
	return values
}

// matchesAttr checks an attribute against a name test. Unprefixed
// attribute tests match by local name regardless of the attribute's
// namespace, mirroring how unprefixed attributes are usually written.
func matchesAttr(a xmldoc.Attr, test NodeTest) bool {
	if test.Any {
		return true
	}
	if test.Local != "*" && a.Local != test.Local {
		return false
	}
	if test.Namespace != "" && a.Namespace != test.Namespace {
		return false
	}
	return true
}

// documentOrder returns the members of set in pre-order of the tree.
func (s *Selector) documentOrder(set map[*xmldoc.Element]bool) []*xmldoc.Element {
	if len(set) == 0 {
		return nil
	}
	ordered := make([]*xmldoc.Element, 0, len(set))
	var walk func(*xmldoc.Element)
	walk = func(e *xmldoc.Element) {
		if set[e] {
			ordered = append(ordered, e)
		}
		for _, child := range e.Children() {
			walk(child)
		}
	}
	if s.root != nil {
		walk(s.root)
	}
	return ordered
}
