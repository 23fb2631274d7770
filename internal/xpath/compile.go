// Package xpath compiles and evaluates the location-path subset used by
// rule contexts and test expressions: absolute and relative child paths,
// descendant steps, wildcard and prefixed name tests, and predicates for
// attribute existence, attribute equality, child existence, and position.
package xpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Axis describes the axis of a single step.
type Axis int

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisDescendantOrSelf
	AxisSelf
)

// AxisAttribute is only used internally while parsing attribute steps.
const AxisAttribute Axis = -1

// NodeTest matches element or attribute names. When NamespaceSpecified is
// false the test matches by local name in any namespace.
type NodeTest struct {
	Any                bool
	Local              string
	Namespace          string
	NamespaceSpecified bool
}

// PredicateKind discriminates the supported predicate forms.
type PredicateKind int

const (
	// PredAttrExists matches elements carrying the attribute.
	PredAttrExists PredicateKind = iota
	// PredAttrEquals matches elements whose attribute equals a literal.
	PredAttrEquals
	// PredChildExists matches elements with at least one matching child.
	PredChildExists
	// PredPosition matches the n-th candidate of the step, 1-based.
	PredPosition
)

// Predicate is one filter applied to the candidates of a step.
type Predicate struct {
	Kind     PredicateKind
	Test     NodeTest
	Value    string
	Position int
}

// Step is a single location step.
type Step struct {
	Axis       Axis
	Test       NodeTest
	Predicates []Predicate
}

// Path is one compiled location path. Attribute, when set, is a final
// attribute selection step.
type Path struct {
	Absolute  bool
	Steps     []Step
	Attribute *NodeTest
}

// Expression is a union of paths.
type Expression struct {
	Paths []Path
}

// ErrInvalidPath reports that an expression does not conform to the
// restricted location-path syntax.
var ErrInvalidPath = errors.New("invalid path")

func pathErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidPath}, args...)...)
}

// Compile parses a location-path expression into a union of paths.
// Prefixed name tests are resolved against nsContext at compile time;
// an undeclared prefix is an error.
func Compile(expr string, nsContext map[string]string) (Expression, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Expression{}, pathErrorf("path cannot be empty")
	}

	parts, err := splitUnion(expr)
	if err != nil {
		return Expression{}, err
	}
	paths := make([]Path, 0, len(parts))
	for _, raw := range parts {
		part := strings.TrimSpace(raw)
		if part == "" {
			return Expression{}, pathErrorf("path contains empty union branch: %s", expr)
		}
		path, err := parsePath(part, nsContext)
		if err != nil {
			return Expression{}, err
		}
		paths = append(paths, path)
	}

	return Expression{Paths: paths}, nil
}

// splitUnion splits on '|' outside quoted predicate literals.
func splitUnion(expr string) ([]string, error) {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '|':
			parts = append(parts, expr[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, pathErrorf("path has unterminated string literal: %s", expr)
	}
	return append(parts, expr[start:]), nil
}

func parsePath(expr string, nsContext map[string]string) (Path, error) {
	var path Path
	reader := &pathReader{input: expr}

	reader.skipSpace()
	switch {
	case reader.peekDoubleSlash():
		reader.pos += 2
		path.Absolute = true
		path.Steps = append(path.Steps, Step{Axis: AxisDescendantOrSelf, Test: NodeTest{Any: true}})
	case reader.peekSlash():
		reader.pos++
		path.Absolute = true
		if reader.atEnd() {
			return Path{}, pathErrorf("path step is missing a node test: %s", expr)
		}
	case reader.consumeDotSlashSlashPrefix():
		path.Steps = append(path.Steps, Step{Axis: AxisDescendantOrSelf, Test: NodeTest{Any: true}})
	}

	for {
		done, err := parseNextStep(reader, &path, expr, nsContext)
		if err != nil {
			return Path{}, err
		}
		if done {
			return path, nil
		}
	}
}

func parseNextStep(reader *pathReader, path *Path, expr string, nsContext map[string]string) (bool, error) {
	reader.skipSpace()
	if reader.atEnd() {
		if len(path.Steps) == 0 && path.Attribute == nil {
			return true, pathErrorf("path must contain at least one step: %s", expr)
		}
		return true, nil
	}

	if reader.peekSlash() {
		return false, pathErrorf("path step is missing a node test: %s", expr)
	}

	token := reader.readToken()
	step, attr, err := parseStep(reader, token, nsContext)
	if err != nil {
		return false, err
	}
	if attr != nil {
		path.Attribute = attr
	} else {
		preds, err := parsePredicates(reader, nsContext)
		if err != nil {
			return false, err
		}
		step.Predicates = preds
		path.Steps = append(path.Steps, step)
	}

	reader.skipSpace()
	if reader.atEnd() {
		return true, nil
	}
	if path.Attribute != nil {
		return false, pathErrorf("path attribute step must be final: %s", expr)
	}
	if reader.peekDoubleSlash() {
		reader.pos += 2
		path.Steps = append(path.Steps, Step{Axis: AxisDescendantOrSelf, Test: NodeTest{Any: true}})
		return false, nil
	}
	if reader.consumeSlash() {
		return false, nil
	}
	return false, pathErrorf("path has invalid trailing content: %s", expr)
}

func parseStep(reader *pathReader, token string, nsContext map[string]string) (Step, *NodeTest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Step{}, nil, pathErrorf("path step is missing a node test")
	}

	if token == "." {
		return Step{Axis: AxisSelf, Test: NodeTest{Any: true}}, nil, nil
	}

	if token == "@" {
		token += reader.readToken()
	}
	if name, ok := strings.CutPrefix(token, "@"); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return Step{}, nil, pathErrorf("path step is missing a node test: %s", token)
		}
		attr, err := parseNodeTest(name, nsContext, true)
		if err != nil {
			return Step{}, nil, err
		}
		return Step{}, &attr, nil
	}

	if before, after, ok := strings.Cut(token, "::"); ok {
		axis, err := axisFromName(before)
		if err != nil {
			return Step{}, nil, err
		}
		node := strings.TrimSpace(after)
		if node == "" {
			node = reader.readToken()
			if node == "" {
				return Step{}, nil, pathErrorf("path step is missing a node test")
			}
		}
		if axis == AxisAttribute {
			attr, err := parseNodeTest(node, nsContext, true)
			if err != nil {
				return Step{}, nil, err
			}
			return Step{}, &attr, nil
		}
		test, err := parseNodeTest(node, nsContext, false)
		if err != nil {
			return Step{}, nil, err
		}
		return Step{Axis: axis, Test: test}, nil, nil
	}

	test, err := parseNodeTest(token, nsContext, false)
	if err != nil {
		return Step{}, nil, err
	}
	return Step{Axis: AxisChild, Test: test}, nil, nil
}

func parsePredicates(reader *pathReader, nsContext map[string]string) ([]Predicate, error) {
	var preds []Predicate
	for {
		reader.skipSpace()
		if !reader.peekByte('[') {
			return preds, nil
		}
		reader.pos++
		content, err := reader.readUntilBracketClose()
		if err != nil {
			return nil, err
		}
		pred, err := parsePredicate(content, nsContext)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
}

func parsePredicate(content string, nsContext map[string]string) (Predicate, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Predicate{}, pathErrorf("predicate cannot be empty")
	}

	if n, err := strconv.Atoi(content); err == nil {
		if n < 1 {
			return Predicate{}, pathErrorf("predicate position must be positive: %d", n)
		}
		return Predicate{Kind: PredPosition, Position: n}, nil
	}

	if name, ok := strings.CutPrefix(content, "@"); ok {
		if lhs, rhs, found := cutComparison(name); found {
			test, err := parseNodeTest(strings.TrimSpace(lhs), nsContext, true)
			if err != nil {
				return Predicate{}, err
			}
			value, err := parseLiteral(rhs)
			if err != nil {
				return Predicate{}, err
			}
			return Predicate{Kind: PredAttrEquals, Test: test, Value: value}, nil
		}
		test, err := parseNodeTest(strings.TrimSpace(name), nsContext, true)
		if err != nil {
			return Predicate{}, err
		}
		return Predicate{Kind: PredAttrExists, Test: test}, nil
	}

	if strings.ContainsAny(content, "=<>()") {
		return Predicate{}, pathErrorf("unsupported predicate: %s", content)
	}

	test, err := parseNodeTest(content, nsContext, false)
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Kind: PredChildExists, Test: test}, nil
}

func cutComparison(s string) (string, string, bool) {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '=':
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func parseLiteral(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], nil
		}
	}
	return "", pathErrorf("predicate comparison requires a quoted literal: %s", s)
}

func parseNodeTest(token string, nsContext map[string]string, attribute bool) (NodeTest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return NodeTest{}, pathErrorf("path step is missing a node test")
	}
	if token == "*" {
		return NodeTest{Any: true}, nil
	}

	if !isValidQName(token) {
		return NodeTest{}, pathErrorf("path step has invalid QName %q", token)
	}

	prefix, local, hasPrefix := SplitQName(token)
	if hasPrefix {
		nsURI, ok := nsContext[prefix]
		if !ok {
			return NodeTest{}, pathErrorf("path step uses undeclared prefix %q", prefix)
		}
		return NodeTest{
			Local:              local,
			Namespace:          nsURI,
			NamespaceSpecified: true,
		}, nil
	}

	if attribute {
		// Unprefixed attributes are in no namespace.
		return NodeTest{Local: local, NamespaceSpecified: true}, nil
	}
	if len(nsContext) == 0 {
		return NodeTest{Local: local}, nil
	}
	return NodeTest{Local: local, NamespaceSpecified: true}, nil
}

func axisFromName(name string) (Axis, error) {
	switch strings.TrimSpace(name) {
	case "child":
		return AxisChild, nil
	case "descendant":
		return AxisDescendant, nil
	case "descendant-or-self":
		return AxisDescendantOrSelf, nil
	case "self":
		return AxisSelf, nil
	case "attribute":
		return AxisAttribute, nil
	default:
		return AxisChild, pathErrorf("path uses disallowed axis '%s::'", name)
	}
}

// SplitQName splits a QName into prefix and local parts.
func SplitQName(name string) (prefix, local string, hasPrefix bool) {
	if idx := strings.Index(name, ":"); idx >= 0 && idx < len(name)-1 {
		return name[:idx], name[idx+1:], true
	}
	return "", name, false
}

func isValidQName(name string) bool {
	if name == "" || strings.HasSuffix(name, ":") {
		return false
	}
	if strings.Count(name, ":") > 1 {
		return false
	}
	prefix, local, hasPrefix := SplitQName(name)
	if hasPrefix && !isValidNCName(prefix) {
		return false
	}
	return isValidNCName(local)
}

func isValidNCName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 {
			if !isNameStart(r) {
				return false
			}
			continue
		}
		if !isNameStart(r) && !isNameExtra(r) {
			return false
		}
	}
	return true
}

func isNameStart(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		return true
	case r >= 0xC0 && r <= 0xD6, r >= 0xD8 && r <= 0xF6, r >= 0xF8 && r <= 0x2FF:
		return true
	case r >= 0x370 && r <= 0x37D, r >= 0x37F && r <= 0x1FFF:
		return true
	case r >= 0x200C && r <= 0x200D, r >= 0x2070 && r <= 0x218F:
		return true
	case r >= 0x2C00 && r <= 0x2FEF, r >= 0x3001 && r <= 0xD7FF:
		return true
	case r >= 0xF900 && r <= 0xFDCF, r >= 0xFDF0 && r <= 0xFFFD:
		return true
	case r >= 0x10000 && r <= 0xEFFFF:
		return true
	}
	return false
}

func isNameExtra(r rune) bool {
	switch {
	case r == '-', r == '.', r >= '0' && r <= '9', r == 0xB7:
		return true
	case r >= 0x300 && r <= 0x36F, r >= 0x203F && r <= 0x2040:
		return true
	}
	return false
}

type pathReader struct {
	input string
	pos   int
}

func (r *pathReader) readToken() string {
	r.skipSpace()
	start := r.pos
	for r.pos < len(r.input) {
		ch := r.input[r.pos]
		if isPathWhitespace(ch) || ch == '/' || ch == '|' || ch == '[' {
			break
		}
		r.pos++
	}
	return strings.TrimSpace(r.input[start:r.pos])
}

func (r *pathReader) readUntilBracketClose() (string, error) {
	start := r.pos
	var quote byte
	for r.pos < len(r.input) {
		ch := r.input[r.pos]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ']':
			content := r.input[start:r.pos]
			r.pos++
			return content, nil
		}
		r.pos++
	}
	return "", pathErrorf("predicate is missing closing bracket: %s", r.input)
}

func (r *pathReader) consumeSlash() bool {
	r.skipSpace()
	if r.peekSlash() && !r.peekDoubleSlash() {
		r.pos++
		return true
	}
	return false
}

func (r *pathReader) consumeDotSlashSlashPrefix() bool {
	r.skipSpace()
	start := r.pos
	if r.pos >= len(r.input) || r.input[r.pos] != '.' {
		return false
	}
	r.pos++
	r.skipSpace()
	if r.peekDoubleSlash() {
		r.pos += 2
		return true
	}
	r.pos = start
	return false
}

func (r *pathReader) peekByte(b byte) bool {
	return r.pos < len(r.input) && r.input[r.pos] == b
}

func (r *pathReader) peekSlash() bool {
	return r.peekByte('/')
}

func (r *pathReader) peekDoubleSlash() bool {
	return r.pos+1 < len(r.input) && r.input[r.pos] == '/' && r.input[r.pos+1] == '/'
}

func (r *pathReader) skipSpace() {
	for r.pos < len(r.input) && isPathWhitespace(r.input[r.pos]) {
		r.pos++
	}
}

func (r *pathReader) atEnd() bool {
	r.skipSpace()
	return r.pos >= len(r.input)
}

func isPathWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}
