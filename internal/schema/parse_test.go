package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scherrors "github.com/jacoelho/schematron/errors"
)

const bookRules = `<schema xmlns="http://purl.oclc.org/dsdl/schematron">
  <title>Book constraints</title>
  <ns prefix="dc" uri="http://purl.org/dc/elements/1.1/"/>
  <pattern id="required" name="Required Elements">
    <rule context="book">
      <assert test="title">Each book must have a title</assert>
      <assert test="author">Each book must have an author</assert>
      <report test="@draft">Book <name/> is still a draft</report>
    </rule>
  </pattern>
  <pattern id="codes">
    <rule context="//code">
      <assert test="@value">Code value is <value-of select="@value"/>.</assert>
    </rule>
  </pattern>
</schema>`

func TestParseRuleset(t *testing.T) {
	doc, err := ParseString(bookRules)
	require.NoError(t, err)

	assert.Equal(t, "Book constraints", doc.Title)
	require.Len(t, doc.Namespaces, 1)
	assert.Equal(t, Namespace{Prefix: "dc", URI: "http://purl.org/dc/elements/1.1/"}, doc.Namespaces[0])

	require.Len(t, doc.Patterns, 2)
	first := doc.Patterns[0]
	assert.Equal(t, "required", first.ID)
	assert.Equal(t, "Required Elements", first.Title)
	require.Len(t, first.Rules, 1)

	rule := first.Rules[0]
	assert.Equal(t, "book", rule.Context)
	require.Len(t, rule.Checks, 3)
	assert.Equal(t, Assert, rule.Checks[0].Kind)
	assert.Equal(t, "title", rule.Checks[0].Test)
	assert.Equal(t, Report, rule.Checks[2].Kind)

	// Checks carry parse positions for diagnostics.
	assert.Greater(t, rule.Checks[0].Pos.Line, 1)
}

func TestParsePreservesDocumentOrder(t *testing.T) {
	doc, err := ParseString(bookRules)
	require.NoError(t, err)

	var contexts []string
	for _, pattern := range doc.Patterns {
		for _, rule := range pattern.Rules {
			contexts = append(contexts, rule.Context)
		}
	}
	assert.Equal(t, []string{"book", "//code"}, contexts)
}

func TestParseMessageTemplate(t *testing.T) {
	doc, err := ParseString(bookRules)
	require.NoError(t, err)

	report := doc.Patterns[0].Rules[0].Checks[2]
	require.Len(t, report.Message.Parts, 3)
	assert.Equal(t, TextPart, report.Message.Parts[0].Kind)
	assert.Equal(t, "Book ", report.Message.Parts[0].Text)
	assert.Equal(t, NamePart, report.Message.Parts[1].Kind)
	assert.Equal(t, TextPart, report.Message.Parts[2].Kind)

	valueOf := doc.Patterns[1].Rules[0].Checks[0].Message.Parts[1]
	assert.Equal(t, ValueOfPart, valueOf.Kind)
	assert.Equal(t, "@value", valueOf.Select)
}

func TestParseAcceptsLegacyAndBareNamespaces(t *testing.T) {
	for _, xmlns := range []string{"", ` xmlns="http://www.ascc.net/xml/schematron"`} {
		rules := `<schema` + xmlns + `><pattern><rule context="a"><assert test="b">m</assert></rule></pattern></schema>`
		doc, err := ParseString(rules)
		require.NoError(t, err)
		require.Len(t, doc.Patterns, 1)
	}
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		code  scherrors.ErrorCode
	}{
		{
			name:  "not well formed",
			rules: `<schema><pattern>`,
			code:  scherrors.ErrXMLParse,
		},
		{
			name:  "wrong root",
			rules: `<rules/>`,
			code:  scherrors.ErrSchemaParse,
		},
		{
			name:  "rule without context",
			rules: `<schema><pattern><rule><assert test="a">m</assert></rule></pattern></schema>`,
			code:  scherrors.ErrRuleMissingContext,
		},
		{
			name:  "assert without test",
			rules: `<schema><pattern><rule context="a"><assert>m</assert></rule></pattern></schema>`,
			code:  scherrors.ErrRuleMissingTest,
		},
		{
			name:  "report with empty test",
			rules: `<schema><pattern><rule context="a"><report test="  ">m</report></rule></pattern></schema>`,
			code:  scherrors.ErrRuleMissingTest,
		},
		{
			name:  "ns without uri",
			rules: `<schema><ns prefix="p"/></schema>`,
			code:  scherrors.ErrSchemaParse,
		},
		{
			name:  "duplicate prefix",
			rules: `<schema><ns prefix="p" uri="urn:a"/><ns prefix="p" uri="urn:b"/></schema>`,
			code:  scherrors.ErrDuplicatePrefix,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.rules)
			require.Error(t, err)
			validations, ok := scherrors.AsValidations(err)
			require.True(t, ok, "error should be a ValidationList")
			require.Len(t, validations, 1)
			assert.Equal(t, string(tt.code), validations[0].Code)
		})
	}
}

func TestMissingTestNamesRuleAndOrdinal(t *testing.T) {
	rules := `<schema><pattern><rule context="book">
	  <assert test="title">ok</assert>
	  <assert>missing</assert>
	</rule></pattern></schema>`
	_, err := ParseString(rules)
	require.Error(t, err)
	validations, _ := scherrors.AsValidations(err)
	require.Len(t, validations, 1)
	assert.Equal(t, "book", validations[0].Context)
	assert.True(t, strings.Contains(validations[0].Message, "2"), "message should name the check ordinal: %s", validations[0].Message)
}

func TestNamespaceContext(t *testing.T) {
	doc := &Document{Namespaces: []Namespace{{Prefix: "a", URI: "urn:a"}, {Prefix: "b", URI: "urn:b"}}}
	ctx := doc.NamespaceContext()
	assert.Equal(t, map[string]string{"a": "urn:a", "b": "urn:b"}, ctx)

	empty := &Document{}
	assert.Nil(t, empty.NamespaceContext())
}
