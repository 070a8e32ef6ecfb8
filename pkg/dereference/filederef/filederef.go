// Package filederef implements the file-scheme Dereferencer: a direct
// filesystem read with a media type guessed from the path's extension.
package filederef

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ripplecache/ripplecache/pkg/dereference"
)

// DefaultMediaType is used when the path's extension maps to no known
// media type.
const DefaultMediaType = "application/octet-stream"

// Dereferencer reads local files named by a file:// IRI.
type Dereferencer struct{}

// New returns a file-scheme Dereferencer.
func New() *Dereferencer { return &Dereferencer{} }

// Dereference opens the local file named by iri.
func (d *Dereferencer) Dereference(_ context.Context, iri string) (*dereference.Representation, error) {
	u, err := url.Parse(iri)
	if err != nil {
		return nil, fmt.Errorf("filederef: parsing %q: %w", iri, err)
	}

	path := u.Path

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("filederef: opening %q: %w", path, err)
	}

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = DefaultMediaType
	}

	return &dereference.Representation{MediaType: mediaType, Body: f}, nil
}
