package memo

import (
	"fmt"
	"strings"
	"time"
)

// CacheEntry is the memoised record for one graph IRI (§3 CacheEntry).
type CacheEntry struct {
	Status       Status
	Timestamp    time.Time
	MediaType    string
	Dereferencer string
	RDFizer      string
}

// HasTimestamp reports whether e reached a terminal status and recorded
// a timestamp; satisfies expiration.Entry's freshness contract.
func (e CacheEntry) HasTimestamp() bool { return !e.Timestamp.IsZero() }

// NewUndetermined returns a fresh entry in the Undetermined status, as
// produced by getOrCreateMemo immediately after the CacheLookup marker
// is claimed by the winning thread.
func NewUndetermined() CacheEntry {
	return CacheEntry{Status: Undetermined}
}

// MarkTerminal transitions e to status, stamping the current time. Only
// terminal statuses are persisted at commit, but the timestamp is
// recorded regardless so invariant 1 (every terminal-status entry has a
// timestamp) holds the instant the status becomes terminal.
func (e *CacheEntry) MarkTerminal(status Status, now time.Time) {
	e.Status = status
	e.Timestamp = now
}

// Encode serialises e as the compact key=value;key=value literal stored
// as the object of the memo predicate. Empty fields are omitted; the
// timestamp, when present, is RFC3339.
func (e CacheEntry) Encode() string {
	var parts []string

	parts = append(parts, "status="+e.Status.String())

	if e.HasTimestamp() {
		parts = append(parts, "timestamp="+e.Timestamp.UTC().Format(time.RFC3339))
	}

	if e.MediaType != "" {
		parts = append(parts, "mediaType="+e.MediaType)
	}

	if e.Dereferencer != "" {
		parts = append(parts, "dereferencer="+e.Dereferencer)
	}

	if e.RDFizer != "" {
		parts = append(parts, "rdfizer="+e.RDFizer)
	}

	return strings.Join(parts, ";")
}

// Decode parses the Encode wire format back into a CacheEntry.
func Decode(s string) (CacheEntry, error) {
	var entry CacheEntry

	for _, field := range strings.Split(s, ";") {
		if field == "" {
			continue
		}

		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return CacheEntry{}, fmt.Errorf("memo: malformed field %q", field)
		}

		switch key {
		case "status":
			status, ok := ParseStatus(value)
			if !ok {
				return CacheEntry{}, fmt.Errorf("memo: unknown status %q", value)
			}

			entry.Status = status
		case "timestamp":
			ts, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return CacheEntry{}, fmt.Errorf("memo: parsing timestamp: %w", err)
			}

			entry.Timestamp = ts
		case "mediaType":
			entry.MediaType = value
		case "dereferencer":
			entry.Dereferencer = value
		case "rdfizer":
			entry.RDFizer = value
		}
	}

	return entry, nil
}
