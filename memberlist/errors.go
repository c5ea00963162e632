package memberlist

import "github.com/pkg/errors"

// Sentinel errors surfaced by the engine. Absent-entity and
// inconsistent-state failures are logged and swallowed at the point they
// occur rather than returned — these are the ones that do propagate to a
// caller.
var (
	// ErrUnknownEvent is returned by Dispatcher.dispatchOne for an event
	// name it doesn't recognize.
	ErrUnknownEvent = errors.New("memberlist: unknown dispatch event")
)
