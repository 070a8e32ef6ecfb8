package ntriples_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/rdfizer/ntriples"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

func TestRdfizeParsesStatements(t *testing.T) {
	t.Parallel()

	input := `<https://ex/a> <https://ex/p> "hello"@en .
<https://ex/a> <https://ex/q> <https://ex/b> .
_:b0 <https://ex/r> "42"^^<https://ex/int> .
`

	var got []statement.Statement
	handler := statement.HandlerFunc(func(_ context.Context, s statement.Statement) error {
		got = append(got, s)
		return nil
	})

	status := ntriples.New().Rdfize(context.Background(), strings.NewReader(input), handler, "https://ex/a")
	require.Equal(t, rdfizer.Success, status)
	require.Len(t, got, 3)

	assert.Equal(t, "hello", got[0].Object.Value)
	assert.Equal(t, "en", got[0].Object.Lang)
	assert.True(t, got[2].Subject.IsBlankNode())
	assert.Equal(t, "https://ex/int", got[2].Object.Datatype)
}

func TestRdfizeEmptyInputIsFailure(t *testing.T) {
	t.Parallel()

	handler := statement.HandlerFunc(func(context.Context, statement.Statement) error { return nil })

	status := ntriples.New().Rdfize(context.Background(), strings.NewReader(""), handler, "https://ex/a")
	assert.Equal(t, rdfizer.Failure, status)
}

func TestRdfizeMalformedLineIsParseError(t *testing.T) {
	t.Parallel()

	handler := statement.HandlerFunc(func(context.Context, statement.Statement) error { return nil })

	status := ntriples.New().Rdfize(context.Background(), strings.NewReader("not valid ntriples"), handler, "https://ex/a")
	assert.Equal(t, rdfizer.ParseError, status)
}
