package runner

import "fmt"

// state is where a turn currently is.
type state int

const (
	stateIdle state = iota
	stateAwaitingResponse
	stateStreaming
	stateExecutingTools
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingResponse:
		return "awaiting_response"
	case stateStreaming:
		return "streaming"
	case stateExecutingTools:
		return "executing_tools"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s state) terminal() bool { return s == stateDone || s == stateFailed }

// allowed lists the legal transitions. move panics on anything else.
var allowed = map[state][]state{
	stateIdle:             {stateAwaitingResponse},
	stateAwaitingResponse: {stateStreaming, stateFailed},
	stateStreaming:        {stateExecutingTools, stateDone, stateFailed},
	stateExecutingTools:   {stateAwaitingResponse, stateFailed},
	stateDone:             {stateIdle},
	stateFailed:           {stateIdle},
}

func canMove(from, to state) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
