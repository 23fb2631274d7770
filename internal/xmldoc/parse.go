package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"unicode"
)

// ParseError reports the first well-formedness violation encountered, with
// the 1-based position of the offending input when known.
type ParseError struct {
	Line   int
	Column int
	Reason string
}

// Error formats the parse failure with its position when known.
func (e *ParseError) Error() string {
	if e == nil {
		return "xml parse <nil>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Reason)
	}
	return e.Reason
}

// Parse builds the minimal DOM from XML input. Parsing stops at the first
// well-formedness violation; no error recovery is attempted.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("read input: %v", err)}
	}
	return ParseBytes(data)
}

// ParseString builds the minimal DOM from an in-memory document.
func ParseString(s string) (*Document, error) {
	return ParseBytes([]byte(s))
}

// ParseBytes builds the minimal DOM from an in-memory document.
func ParseBytes(data []byte) (*Document, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	cursor := positionCursor{data: data, line: 1, column: 1}

	var stack []*Element
	var root *Element
	rootClosed := false

	for {
		tokenOffset := decoder.InputOffset()
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			pos := cursor.positionAt(decoder.InputOffset())
			return nil, &ParseError{Line: pos.Line, Column: pos.Column, Reason: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			pos := cursor.positionAt(tokenOffset)
			if rootClosed {
				return nil, &ParseError{
					Line:   pos.Line,
					Column: pos.Column,
					Reason: fmt.Sprintf("unexpected element %s after document end", t.Name.Local),
				}
			}
			elem := &Element{
				Namespace: t.Name.Space,
				Local:     t.Name.Local,
				Pos:       pos,
				attrs:     convertAttrs(t.Attr),
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, elem)
				elem.parent = parent
			} else {
				root = elem
			}
			stack = append(stack, elem)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 && root != nil {
					rootClosed = true
				}
			}

		case xml.CharData:
			if len(stack) == 0 {
				if !isIgnorableOutsideRoot(string(t)) {
					pos := cursor.positionAt(tokenOffset)
					return nil, &ParseError{
						Line:   pos.Line,
						Column: pos.Column,
						Reason: "unexpected character data outside root element",
					}
				}
				continue
			}
			top := stack[len(stack)-1]
			top.text += string(t)
			after := len(top.children)
			if n := len(top.runs); n > 0 && top.runs[n-1].After == after {
				top.runs[n-1].Text += string(t)
			} else {
				top.runs = append(top.runs, TextSegment{After: after, Text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, &ParseError{Line: 1, Column: 1, Reason: "document has no root element"}
	}

	return &Document{root: root}, nil
}

func isIgnorableOutsideRoot(data string) bool {
	for _, r := range data {
		if r == '\uFEFF' {
			continue
		}
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func convertAttrs(xmlAttrs []xml.Attr) []Attr {
	attrs := make([]Attr, 0, len(xmlAttrs))
	for _, a := range xmlAttrs {
		namespace := a.Name.Space
		if namespace == "xmlns" || (namespace == "" && a.Name.Local == "xmlns") {
			namespace = XMLNSNamespace
		}
		attrs = append(attrs, Attr{
			Namespace: namespace,
			Local:     a.Name.Local,
			Value:     a.Value,
		})
	}
	return attrs
}

// positionCursor translates byte offsets into 1-based line/column positions.
// Offsets are visited in nondecreasing order, so the scan resumes from the
// previous offset instead of restarting at the input head.
type positionCursor struct {
	data   []byte
	offset int64
	line   int
	column int
}

func (c *positionCursor) positionAt(offset int64) Position {
	if offset < c.offset {
		c.offset, c.line, c.column = 0, 1, 1
	}
	limit := offset
	if limit > int64(len(c.data)) {
		limit = int64(len(c.data))
	}
	for i := c.offset; i < limit; i++ {
		switch {
		case c.data[i] == '\n':
			c.line++
			c.column = 1
		case c.data[i]&0xC0 == 0x80:
			// UTF-8 continuation byte, same column.
		default:
			c.column++
		}
	}
	c.offset = limit
	return Position{Line: c.line, Column: c.column}
}
