package turtle_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/rdfizer/turtle"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

func TestRdfizeParsesPrefixedTriplesWithLists(t *testing.T) {
	t.Parallel()

	input := `
@prefix foaf: <http://xmlns.com/foaf/0.1/> .
<https://ex/a> foaf:name "Alice" ; foaf:knows <https://ex/b>, <https://ex/c> .
`

	var got []statement.Statement
	handler := statement.HandlerFunc(func(_ context.Context, s statement.Statement) error {
		got = append(got, s)
		return nil
	})

	status := turtle.New().Rdfize(context.Background(), strings.NewReader(input), handler, "https://ex/a")
	require.Equal(t, rdfizer.Success, status)
	require.Len(t, got, 3)

	assert.Equal(t, "http://xmlns.com/foaf/0.1/name", got[0].Predicate.Value)
	assert.Equal(t, "https://ex/b", got[1].Object.Value)
	assert.Equal(t, "https://ex/c", got[2].Object.Value)
}

func TestRdfizeRdfTypeShorthand(t *testing.T) {
	t.Parallel()

	input := `@prefix ex: <https://ex/> .
ex:a a ex:Thing .
`

	var got []statement.Statement
	handler := statement.HandlerFunc(func(_ context.Context, s statement.Statement) error {
		got = append(got, s)
		return nil
	})

	status := turtle.New().Rdfize(context.Background(), strings.NewReader(input), handler, "https://ex/a")
	require.Equal(t, rdfizer.Success, status)
	require.Len(t, got, 1)
	assert.Equal(t, "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", got[0].Predicate.Value)
}

func TestRdfizeUnknownPrefixIsParseError(t *testing.T) {
	t.Parallel()

	input := `ex:a ex:p "v" .`
	handler := statement.HandlerFunc(func(context.Context, statement.Statement) error { return nil })

	status := turtle.New().Rdfize(context.Background(), strings.NewReader(input), handler, "https://ex/a")
	assert.Equal(t, rdfizer.ParseError, status)
}
