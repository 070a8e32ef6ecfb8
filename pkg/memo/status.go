package memo

// Status is a CacheEntry's position in the retrieval state machine.
type Status uint8

// Status values, in the order the state machine reaches them.
const (
	// CacheLookup is a transient marker meaning "not yet acted upon in
	// this pass". It is visible only to the thread that created the
	// entry and must transition to a terminal status before retrieve
	// returns.
	CacheLookup Status = iota
	Undetermined
	DereferencerError
	RedirectsToCached
	BadMediaType
	Success
	Failure
	ParseError
)

// String renders s for logging and for the memo wire encoding.
func (s Status) String() string {
	switch s {
	case CacheLookup:
		return "CacheLookup"
	case Undetermined:
		return "Undetermined"
	case DereferencerError:
		return "DereferencerError"
	case RedirectsToCached:
		return "RedirectsToCached"
	case BadMediaType:
		return "BadMediaType"
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

// IsTerminal reports whether s is a terminal status — the only kind
// persisted at transaction commit. DereferencerError is terminal only
// when the dereferencer itself failed (a network/DNS/scheme error); the
// same status is also used as a pre-emptive marker set just before the
// dereference call, which is overwritten before retrieve returns on
// every other path.
func (s Status) IsTerminal() bool {
	switch s {
	case Success, Failure, ParseError, BadMediaType, RedirectsToCached, DereferencerError:
		return true
	default:
		return false
	}
}

// ParseStatus parses the String() form back into a Status.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "CacheLookup":
		return CacheLookup, true
	case "Undetermined":
		return Undetermined, true
	case "DereferencerError":
		return DereferencerError, true
	case "RedirectsToCached":
		return RedirectsToCached, true
	case "BadMediaType":
		return BadMediaType, true
	case "Success":
		return Success, true
	case "Failure":
		return Failure, true
	case "ParseError":
		return ParseError, true
	default:
		return 0, false
	}
}
