// Package dereference implements the Dereferencer Registry (C4):
// scheme-keyed lookup of the collaborator that turns an IRI into a raw
// Representation, and the registry's blocked-extension short-circuit.
package dereference

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"
)

// Representation is an opaque, read-once value produced by a
// Dereferencer: a declared media type plus a byte-stream handle.
// Consumers must read to EOF or Close; re-reads are not permitted.
type Representation struct {
	MediaType string
	Body      io.ReadCloser
}

// Dereferencer fetches the document at iri. It returns (nil, nil) to
// signal "no new work" — the orchestrator treats that as
// memo.RedirectsToCached. Any other error is a DereferencerError.
type Dereferencer interface {
	Dereference(ctx context.Context, iri string) (*Representation, error)
}

// DereferencerFunc adapts a function to a Dereferencer.
type DereferencerFunc func(ctx context.Context, iri string) (*Representation, error)

// Dereference calls f.
func (f DereferencerFunc) Dereference(ctx context.Context, iri string) (*Representation, error) {
	return f(ctx, iri)
}

// DefaultBlockedExtensions lists file extensions the registry refuses to
// dereference outright — binary/media formats no RDFizer could ever
// consume, so skipping the fetch avoids wasted network and disk I/O.
// DefaultBlockedExtensions seeds common binary/document extensions
// (image/audio/video/archive/office formats, known script/source
// extensions) but deliberately omits .htm/.html/.xhtml/.jpg/.jpeg,
// since RDFa and image-EXIF pipelines consume those.
var DefaultBlockedExtensions = []string{
	".png", ".gif", ".bmp", ".webp", ".ico",
	".zip", ".tar", ".gz", ".bz2", ".7z", ".rar",
	".mp3", ".mp4", ".avi", ".mov", ".wav", ".flac",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".pdf",
	".js", ".css", ".exe", ".dll", ".so", ".bin",
}

// Registry maps an IRI scheme (lowercased) to the Dereferencer that
// handles it.
type Registry struct {
	mu                sync.RWMutex
	byScheme          map[string]Dereferencer
	blockedExtensions map[string]bool
}

// NewRegistry returns an empty Registry using DefaultBlockedExtensions.
func NewRegistry() *Registry {
	return &Registry{
		byScheme:          make(map[string]Dereferencer),
		blockedExtensions: toSet(DefaultBlockedExtensions),
	}
}

// Register associates scheme (lowercased) with d.
func (r *Registry) Register(scheme string, d Dereferencer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byScheme[strings.ToLower(scheme)] = d
}

// SetBlockedExtensions replaces the registry's blocked-extension list.
func (r *Registry) SetBlockedExtensions(extensions []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.blockedExtensions = toSet(extensions)
}

// Lookup returns the Dereferencer registered for iri's scheme, or false
// if none is registered, or if iri's path carries a blocked extension.
func (r *Registry) Lookup(scheme, iri string) (Dereferencer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.blockedExtensions[strings.ToLower(path.Ext(iri))] {
		return nil, false
	}

	d, ok := r.byScheme[strings.ToLower(scheme)]

	return d, ok
}

func toSet(extensions []string) map[string]bool {
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(ext)] = true
	}

	return set
}
