package hub

import (
	"github.com/ronaldwang03/agent-os-sub001/internal/util"
	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

// StateTransitions maps states to their set of valid next states
type StateTransitions[T comparable] map[T]util.Set[T]

// runTransitions is the run status state machine. No terminal status is
// re-entrant
var runTransitions = StateTransitions[api.RunStatus]{
	api.RunPending: util.SetOf(
		api.RunRunning,
		api.RunFailed,
	),
	api.RunRunning: util.SetOf(
		api.RunCompleted,
		api.RunFailed,
	),
	api.RunCompleted: {},
	api.RunFailed:    {},
}

// CanTransition returns whether transition from one state to another is valid
func (t StateTransitions[T]) CanTransition(from, to T) bool {
	allowed, ok := t[from]
	if !ok {
		return false
	}
	return allowed.Contains(to)
}

// IsTerminal returns true if the state has no valid transitions
func (t StateTransitions[T]) IsTerminal(state T) bool {
	allowed, ok := t[state]
	return ok && allowed.IsEmpty()
}
