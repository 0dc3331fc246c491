package events

import "github.com/ronaldwang03/agent-os-sub001/pkg/api"

// EventFilter reports whether a subscriber wants an event
type EventFilter func(*Event) bool

// FilterRun matches events for a single run
func FilterRun(id api.RunID) EventFilter {
	return func(e *Event) bool {
		return e.RunID == id
	}
}

// FilterWorkflow matches events for runs of a named workflow
func FilterWorkflow(name string) EventFilter {
	return func(e *Event) bool {
		return e.Workflow == name
	}
}

// FilterEvents matches events of any of the given types
func FilterEvents(types ...EventType) EventFilter {
	wanted := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	return func(e *Event) bool {
		_, ok := wanted[e.Type]
		return ok
	}
}

// AndFilters matches events accepted by every given filter
func AndFilters(filters ...EventFilter) EventFilter {
	return func(e *Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}
