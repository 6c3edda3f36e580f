// Package stream reassembles a streamed model response from its ordered
// incremental events.
//
// The decoder pulls events from a Source synchronously. Visible text is
// handed to the caller as it arrives; thinking and tool input are buffered
// until their block closes.
package stream

// EventType discriminates Event.
type EventType int

const (
	EventMessageStart EventType = iota + 1
	EventBlockStart
	EventBlockDelta
	EventBlockStop
	EventMessageDelta
	EventMessageStop
)

// BlockType is the kind of content block opened by EventBlockStart.
type BlockType int

const (
	BlockOther BlockType = iota // blocks the decoder skips, e.g. server tool results
	BlockText
	BlockThinking
	BlockToolUse
)

// DeltaType is the kind of fragment carried by EventBlockDelta.
type DeltaType int

const (
	DeltaOther DeltaType = iota
	DeltaText
	DeltaThinking
	DeltaSignature
	DeltaInputJSON
)

// StopReason is the response's finish condition.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopSequence  StopReason = "stop_sequence"
	StopPauseTurn StopReason = "pause_turn"
	StopRefusal   StopReason = "refusal"
)

// Usage holds the token counters reported for one response.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheWriteTokens int64
	CacheReadTokens  int64
	WebSearches      int64
}

// ContextTokens is the prompt size the request occupied.
func (u Usage) ContextTokens() int64 {
	return u.InputTokens + u.CacheWriteTokens + u.CacheReadTokens
}

// Event is one transport event. Only the fields relevant to Type are set.
type Event struct {
	Type  EventType
	Index int

	// EventBlockStart
	Block     BlockType
	ToolID    string
	ToolName  string
	Text      string // initial text or thinking carried on the start event
	Signature string

	// EventBlockDelta
	Delta    DeltaType
	Fragment string

	// EventMessageStart, EventMessageDelta
	StopReason StopReason
	Usage      Usage
}

// Source is a finite, ordered sequence of events.
type Source interface {
	Next() bool
	Event() Event
	Err() error
	Close() error
}
