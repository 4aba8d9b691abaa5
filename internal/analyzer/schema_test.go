package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spider-crawler/siteaudit/internal/testutil"
)

func ldJSON(body string) string {
	return `<script type="application/ld+json">` + body + `</script>`
}

func TestSchemaInvalidJSON(t *testing.T) {
	markup := testutil.NewHTMLBuilder().Head(ldJSON(`{"@type": "Organization",`)).Build()

	r, err := NewSchemaAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
	require.NoError(t, err)

	assert.Equal(t, 1, countKind(r, KindError))
	assert.Contains(t, issueCodes(r), IssueInvalidJSONLD)
	assert.Equal(t, 30, r.Score)

	d := r.Detail.(*SchemaDetail)
	require.Len(t, d.Scripts, 1)
	assert.False(t, d.Scripts[0].Valid)
	assert.NotEmpty(t, d.Scripts[0].Error)
}

func TestSchemaTypes(t *testing.T) {
	markup := testutil.NewHTMLBuilder().
		Head(ldJSON(`{"@context":"https://schema.org","@graph":[
			{"@type":"WebSite","name":"Example","url":"https://example.com"},
			{"@type":["Organization","Brand"],"name":"Example Inc"}
		]}`)).
		Head(ldJSON(`[{"@type":"Article","headline":"Hello"}]`)).
		Body(`<div itemscope itemtype="https://schema.org/Product"></div>`).
		Build()

	r, err := NewSchemaAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
	require.NoError(t, err)
	d := r.Detail.(*SchemaDetail)

	assert.Equal(t, 90, r.Score)
	assert.Equal(t, []string{"WebSite", "Organization", "Brand", "Article"}, d.Types)
	assert.Equal(t, []string{"Product"}, d.ItemTypes)
	assert.Equal(t, []MissingProperty{
		{Type: "Article", Property: "author"},
		{Type: "Article", Property: "datePublished"},
	}, d.Missing)
	assert.Zero(t, countKind(r, KindError))
	assert.Equal(t, 2, countKind(r, KindWarning))
}

func TestSchemaMissing(t *testing.T) {
	r, err := NewSchemaAnalyzer().Analyze(newTestContext(t, "https://example.com/", "<p>no schema</p>"))
	require.NoError(t, err)

	assert.Equal(t, 30, r.Score)
	assert.Equal(t, []string{IssueNoSchema}, issueCodes(r))
	assert.Equal(t, KindWarning, r.Issues[0].Kind)
}

func TestSchemaMicrodataOnly(t *testing.T) {
	markup := testutil.NewHTMLBuilder().
		Body(`<div itemscope itemtype="http://schema.org/LocalBusiness"></div>`).
		Build()

	r, err := NewSchemaAnalyzer().Analyze(newTestContext(t, "https://example.com/", markup))
	require.NoError(t, err)
	assert.Equal(t, 90, r.Score)
	assert.Empty(t, r.Issues)
}
