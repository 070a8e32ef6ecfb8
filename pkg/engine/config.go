// Package engine implements the Cache Engine Facade (C8) and the
// Retrieval Orchestrator (C7): the top-level API that wires together
// the metadata index, redirect manager, dereferencer and RDFizer
// registries, and statement pipeline into the single `Retrieve`
// operation.
package engine

import (
	"errors"
	"time"
)

// DatatypeHandling controls how literal datatype IRIs produced by an
// RDFizer are treated before reaching the store. Only the query layer
// built on top of this engine consults it; the engine itself carries
// the value through configuration validation so a typo is caught at
// construction rather than silently ignored downstream.
type DatatypeHandling string

// Recognised DatatypeHandling values.
const (
	DatatypeIgnore    DatatypeHandling = "ignore"
	DatatypeVerify    DatatypeHandling = "verify"
	DatatypeNormalize DatatypeHandling = "normalize"
)

// ErrUnknownDatatypeHandling is returned when Config.DatatypeHandling
// names a value other than ignore, verify, or normalize.
var ErrUnknownDatatypeHandling = errors.New("engine: unknown datatypeHandling")

// DefaultMemoryCacheCapacity is the memo index capacity createDefault
// uses when the caller doesn't override it.
const DefaultMemoryCacheCapacity = 10000

// DefaultCacheLifetime is the expiration.FixedPolicy lifetime
// createDefault uses when the caller doesn't override it.
const DefaultCacheLifetime = 7 * 24 * time.Hour

// Config is the concrete configuration record the engine is built
// from, replacing the source's global string-keyed property lookup.
type Config struct {
	// MemoryCacheCapacity bounds the metadata index; floored at
	// memo.MinCapacity regardless of what's configured here.
	MemoryCacheCapacity int

	// CacheLifetime is how long a terminal CacheEntry stays fresh.
	CacheLifetime time.Duration

	// DatatypeHandling must be one of DatatypeIgnore, DatatypeVerify, or
	// DatatypeNormalize.
	DatatypeHandling DatatypeHandling

	// UseBlankNodes, when false (the default), rewrites blank nodes to
	// freshly-minted IRIs before they reach the store.
	UseBlankNodes bool

	// DerefSubjects/DerefPredicates/DerefObjects/DerefContexts are
	// consulted by the query layer built on top of this engine, not by
	// Retrieve itself; defaults mirror spec §6 (true/false/true/false).
	DerefSubjects   bool
	DerefPredicates bool
	DerefObjects    bool
	DerefContexts   bool

	// RedirectMaxChainLength bounds how many hops the redirect manager's
	// Resolve will follow before giving up. Zero falls back to
	// redirect.DefaultMaxChainLength.
	RedirectMaxChainLength int
}

// DefaultConfig returns the Config createDefault builds an Engine
// from.
func DefaultConfig() Config {
	return Config{
		MemoryCacheCapacity: DefaultMemoryCacheCapacity,
		CacheLifetime:       DefaultCacheLifetime,
		DatatypeHandling:    DatatypeIgnore,
		UseBlankNodes:       false,
		DerefSubjects:       true,
		DerefPredicates:     false,
		DerefObjects:        true,
		DerefContexts:       false,
	}
}

// Validate reports ErrUnknownDatatypeHandling if c.DatatypeHandling
// isn't one of the three recognised values. An unrecognised value is a
// programmer error (spec §7: "unknown value is fatal"), so New returns
// it rather than silently defaulting.
func (c Config) Validate() error {
	switch c.DatatypeHandling {
	case DatatypeIgnore, DatatypeVerify, DatatypeNormalize:
		return nil
	default:
		return ErrUnknownDatatypeHandling
	}
}
