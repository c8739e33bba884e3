package association

// LoadState tracks whether an association's cached resolution is usable.
type LoadState int

const (
	// NotLoaded means the target may be empty or hold only locally built
	// records; the full membership is unknown.
	NotLoaded LoadState = iota
	// Loaded means the target is the full known membership.
	Loaded
	// Stale means the owner's linking attribute changed since the cached
	// resolution, which must be discarded before reuse.
	Stale
)

// String returns the string representation of the load state.
func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loaded:
		return "loaded"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// stateEvent is an input to the load-state machine.
type stateEvent int

const (
	// eventLoaded fires after a successful load or reload.
	eventLoaded stateEvent = iota
	// eventKeyChanged fires when the owner's linking attribute no longer
	// matches the snapshot taken at last load.
	eventKeyChanged
	// eventReset fires on an explicit reset or cache discard.
	eventReset
)

// nextState is the single transition function of the load-state machine:
//
//	NotLoaded --loaded--> Loaded --key changed--> Stale --loaded--> Loaded
//
// eventReset forces NotLoaded from any state. A key change only invalidates
// a loaded cache; it is a no-op before the first load.
func nextState(s LoadState, ev stateEvent) LoadState {
	switch ev {
	case eventLoaded:
		return Loaded
	case eventKeyChanged:
		if s == Loaded {
			return Stale
		}
		return s
	case eventReset:
		return NotLoaded
	default:
		return s
	}
}
