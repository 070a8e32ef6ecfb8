package dereference_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripplecache/ripplecache/pkg/dereference"
)

func TestRegistryLooksUpByScheme(t *testing.T) {
	t.Parallel()

	reg := dereference.NewRegistry()
	reg.Register("HTTP", dereference.DereferencerFunc(
		func(_ context.Context, iri string) (*dereference.Representation, error) {
			return &dereference.Representation{MediaType: "text/turtle", Body: io.NopCloser(strings.NewReader(""))}, nil
		},
	))

	d, ok := reg.Lookup("http", "https://example.org/doc.ttl")
	require.True(t, ok)

	rep, err := d.Dereference(context.Background(), "https://example.org/doc.ttl")
	require.NoError(t, err)
	assert.Equal(t, "text/turtle", rep.MediaType)
}

func TestRegistryMissingSchemeNotFound(t *testing.T) {
	t.Parallel()

	reg := dereference.NewRegistry()

	_, ok := reg.Lookup("ftp", "ftp://example.org/doc")
	assert.False(t, ok)
}

func TestRegistryBlocksKnownBinaryExtensions(t *testing.T) {
	t.Parallel()

	reg := dereference.NewRegistry()
	reg.Register("http", dereference.DereferencerFunc(
		func(_ context.Context, _ string) (*dereference.Representation, error) { return nil, nil },
	))

	_, ok := reg.Lookup("http", "https://example.org/image.png")
	assert.False(t, ok)
}
