// Package rdfizer implements the RDFizer Registry (C5): media-type to
// RDFizer lookup with quality weights and the lazily-materialised
// HTTP-style Accept preference string.
package rdfizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ripplecache/ripplecache/pkg/statement"
)

// Status is the outcome an RDFizer reports after consuming its input
// stream to completion or failure.
type Status uint8

// Status values.
const (
	Success Status = iota
	Failure
	ParseError
)

// String renders s for logging.
func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case ParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// RDFizer parses inputStream and emits statements through handler. It
// must be tolerant of truncated input (reporting ParseError rather than
// panicking) and must never write to the triple store directly —
// handler is the only channel out. baseIri is the namespace portion of
// the original IRI, retaining fragment context for relative resolution.
// An RDFizer must be restartable across different inputs: each call to
// Rdfize is independent.
type RDFizer interface {
	Rdfize(ctx context.Context, inputStream io.Reader, handler statement.Handler, baseIri string) Status
}

// ErrQualityOutOfRange is returned when Register is given a quality
// outside (0, 1].
var ErrQualityOutOfRange = errors.New("rdfizer: quality must be in (0, 1]")

type registration struct {
	name    string
	rdfizer RDFizer
	quality float64
}

// Registry maps a media type to {RDFizer, quality}, lazily materialising
// the aggregate Accept-header preference string.
type Registry struct {
	mu          sync.RWMutex
	byMediaType map[string]registration

	acceptHeader string
	dirty        bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byMediaType: make(map[string]registration), dirty: true}
}

// Register associates mediaType with rdfizer at the given quality,
// which must be in (0, 1]. name is the RDFizer's symbolic identity (e.g.
// "rdfxml"), distinct from mediaType: the same RDFizer is routinely
// registered under more than one media type (createDefault registers
// rdfxml.New() under both application/rdf+xml and text/xml), and a
// CacheEntry needs to record which RDFizer actually ran independently of
// which media type triggered it. Registering the same media type twice
// overrides the previous registration with a warning.
func (r *Registry) Register(ctx context.Context, mediaType, name string, rdfizer RDFizer, quality float64) error {
	if quality <= 0 || quality > 1 {
		return fmt.Errorf("%w: got %v for %q", ErrQualityOutOfRange, quality, mediaType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMediaType[mediaType]; exists {
		zerolog.Ctx(ctx).Warn().Str("mediaType", mediaType).
			Msg("rdfizer: overriding existing registration for media type")
	}

	r.byMediaType[mediaType] = registration{name: name, rdfizer: rdfizer, quality: quality}
	r.dirty = true

	return nil
}

// Lookup returns the RDFizer registered for mediaType and its symbolic
// name, or false if none is registered.
func (r *Registry) Lookup(mediaType string) (RDFizer, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byMediaType[mediaType]
	if !ok {
		return nil, "", false
	}

	return reg.rdfizer, reg.name, true
}

// AcceptHeader returns the HTTP-style preference string: entries sorted
// by descending quality, joined as "media-type[;q=<quality>]", omitting
// ";q=1.0". The string is cached and only recomputed after a mutation.
func (r *Registry) AcceptHeader() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return r.acceptHeader
	}

	type entry struct {
		mediaType string
		quality   float64
	}

	entries := make([]entry, 0, len(r.byMediaType))
	for mediaType, reg := range r.byMediaType {
		entries = append(entries, entry{mediaType: mediaType, quality: reg.quality})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].quality != entries[j].quality {
			return entries[i].quality > entries[j].quality
		}

		return entries[i].mediaType < entries[j].mediaType
	})

	parts := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.quality == 1 {
			parts = append(parts, e.mediaType)
		} else {
			parts = append(parts, e.mediaType+";q="+strconv.FormatFloat(e.quality, 'g', -1, 64))
		}
	}

	r.acceptHeader = strings.Join(parts, ", ")
	r.dirty = false

	return r.acceptHeader
}
