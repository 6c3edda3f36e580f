package stream_test

import "github.com/petasbytes/graft/internal/stream"

// sliceSource replays a fixed event list, optionally failing at the end.
type sliceSource struct {
	events []stream.Event
	pos    int
	err    error
	closed bool
}

func (s *sliceSource) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Event() stream.Event { return s.events[s.pos-1] }
func (s *sliceSource) Err() error          { return s.err }
func (s *sliceSource) Close() error        { s.closed = true; return nil }

func start(idx int, bt stream.BlockType) stream.Event {
	return stream.Event{Type: stream.EventBlockStart, Index: idx, Block: bt}
}

func delta(idx int, dt stream.DeltaType, frag string) stream.Event {
	return stream.Event{Type: stream.EventBlockDelta, Index: idx, Delta: dt, Fragment: frag}
}

func stop(idx int) stream.Event {
	return stream.Event{Type: stream.EventBlockStop, Index: idx}
}

func messageStart(u stream.Usage) stream.Event {
	return stream.Event{Type: stream.EventMessageStart, Usage: u}
}

func messageDelta(reason stream.StopReason, u stream.Usage) stream.Event {
	return stream.Event{Type: stream.EventMessageDelta, StopReason: reason, Usage: u}
}

func messageStop() stream.Event {
	return stream.Event{Type: stream.EventMessageStop}
}
