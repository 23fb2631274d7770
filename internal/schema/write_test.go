package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRoundTrip(t *testing.T) {
	doc, err := ParseString(bookRules)
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, doc.Write(&out))

	reparsed, err := ParseString(out.String())
	require.NoError(t, err)

	assert.Equal(t, doc.Title, reparsed.Title)
	assert.Equal(t, doc.Namespaces, reparsed.Namespaces)
	require.Len(t, reparsed.Patterns, len(doc.Patterns))
	for i, pattern := range doc.Patterns {
		got := reparsed.Patterns[i]
		assert.Equal(t, pattern.ID, got.ID)
		require.Len(t, got.Rules, len(pattern.Rules))
		for j, rule := range pattern.Rules {
			assert.Equal(t, rule.Context, got.Rules[j].Context)
			require.Len(t, got.Rules[j].Checks, len(rule.Checks))
			for k, check := range rule.Checks {
				assert.Equal(t, check.Kind, got.Rules[j].Checks[k].Kind)
				assert.Equal(t, check.Test, got.Rules[j].Checks[k].Test)
			}
		}
	}
}

func TestWriteEscapesSpecialCharacters(t *testing.T) {
	doc := &Document{
		Patterns: []*Pattern{{
			Rules: []*Rule{{
				Context: `item[@name='a<b']`,
				Checks: []*Check{{
					Kind: Assert,
					Test: `@x='1' and not(@y)`,
					Message: Template{Parts: []TemplatePart{
						{Kind: TextPart, Text: "value < 1 & > 0"},
					}},
				}},
			}},
		}},
	}

	var out strings.Builder
	require.NoError(t, doc.Write(&out))

	reparsed, err := ParseString(out.String())
	require.NoError(t, err)
	rule := reparsed.Patterns[0].Rules[0]
	assert.Equal(t, `item[@name='a<b']`, rule.Context)
	assert.Equal(t, `@x='1' and not(@y)`, rule.Checks[0].Test)
}
