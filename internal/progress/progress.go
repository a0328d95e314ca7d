// Package progress carries pipeline progress events from report generation
// to whatever wants to display them.
package progress

import "time"

// Stage describes a high-level report-generation phase.
type Stage string

const (
	// StageDiscover is the artifact discovery stage.
	StageDiscover Stage = "discover"
	// StageDecode is the graph/count decoding stage.
	StageDecode Stage = "decode"
	// StageMerge is the aggregation stage.
	StageMerge Stage = "merge"
	// StageRender is the page rendering stage.
	StageRender Stage = "render"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for one artifact or page (or for the overall
// pipeline when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Sink consumes progress events.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Emit sends an event to sink if sink is non-nil.
func Emit(sink Sink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}
