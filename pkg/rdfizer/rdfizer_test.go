package rdfizer_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/rdfizer"
	"github.com/ripplecache/ripplecache/pkg/statement"
)

type stubRDFizer struct{}

func (stubRDFizer) Rdfize(context.Context, io.Reader, statement.Handler, string) rdfizer.Status {
	return rdfizer.Success
}

func TestRegisterRejectsOutOfRangeQuality(t *testing.T) {
	t.Parallel()

	reg := rdfizer.NewRegistry()

	err := reg.Register(context.Background(), "text/turtle", "turtle", stubRDFizer{}, 0)
	assert.ErrorIs(t, err, rdfizer.ErrQualityOutOfRange)

	err = reg.Register(context.Background(), "text/turtle", "turtle", stubRDFizer{}, 1.5)
	assert.ErrorIs(t, err, rdfizer.ErrQualityOutOfRange)
}

func TestAcceptHeaderSortsByDescendingQualityOmittingQ1(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := rdfizer.NewRegistry()

	require.NoError(t, reg.Register(ctx, "application/rdf+xml", "rdfxml", stubRDFizer{}, 1.0))
	require.NoError(t, reg.Register(ctx, "text/turtle", "turtle", stubRDFizer{}, 0.5))
	require.NoError(t, reg.Register(ctx, "text/xml", "rdfxml", stubRDFizer{}, 0.25))

	assert.Equal(t, "application/rdf+xml, text/turtle;q=0.5, text/xml;q=0.25", reg.AcceptHeader())
}

func TestAcceptHeaderCachedUntilMutation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := rdfizer.NewRegistry()
	require.NoError(t, reg.Register(ctx, "text/turtle", "turtle", stubRDFizer{}, 0.5))

	first := reg.AcceptHeader()

	require.NoError(t, reg.Register(ctx, "image/jpeg", "exif", stubRDFizer{}, 0.4))
	second := reg.AcceptHeader()

	assert.NotEqual(t, first, second)
}

func TestLookupReturnsRegisteredRDFizer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := rdfizer.NewRegistry()
	require.NoError(t, reg.Register(ctx, "text/turtle", "turtle", stubRDFizer{}, 1))

	_, name, ok := reg.Lookup("text/turtle")
	assert.True(t, ok)
	assert.Equal(t, "turtle", name)

	_, _, ok = reg.Lookup("application/json")
	assert.False(t, ok)
}

func TestLookupReturnsSharedNameForAliasedMediaTypes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := rdfizer.NewRegistry()
	require.NoError(t, reg.Register(ctx, "application/rdf+xml", "rdfxml", stubRDFizer{}, 1.0))
	require.NoError(t, reg.Register(ctx, "text/xml", "rdfxml", stubRDFizer{}, 0.25))

	_, nameA, ok := reg.Lookup("application/rdf+xml")
	require.True(t, ok)

	_, nameB, ok := reg.Lookup("text/xml")
	require.True(t, ok)

	assert.Equal(t, nameA, nameB, "two media types served by the same RDFizer must share one symbolic name")
}
