package chunker

import (
	"fmt"

	"github.com/dshills/semchunk/internal/logger"
)

// State is a step of a single chunking request.
type State int

const (
	StateInit State = iota
	StateStructureResolved
	StateChunked
	StateValidated
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:              "init",
	StateStructureResolved: "structure_resolved",
	StateChunked:           "chunked",
	StateValidated:         "validated",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// CanTransition reports whether a request may move from one state to the
// next. Every non-terminal state may fail.
func CanTransition(from, to State) bool {
	switch {
	case from == StateDone || from == StateFailed:
		return false
	case to == StateFailed:
		return true
	default:
		return to == from+1
	}
}

// tracker follows one request through the state machine.
type tracker struct {
	state State
	log   logger.Logger
}

func newTracker(log logger.Logger) *tracker {
	return &tracker{state: StateInit, log: log}
}

func (t *tracker) advance(to State) {
	if !CanTransition(t.state, to) {
		// unreachable unless the orchestrator itself is broken
		panic(fmt.Sprintf("chunker: illegal transition %s -> %s", t.state, to))
	}
	t.log.Debug("chunk state", "from", t.state, "to", to)
	t.state = to
}
