package driver

import "time"

// Stage describes a pipeline phase.
type Stage string

const (
	StageLoad    Stage = "load"
	StageGraph   Stage = "graph"
	StageBuild   Stage = "build"
	StageLink    Stage = "link"
	StageResolve Stage = "resolve"
	StageBind    Stage = "bind"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	// StatusCached marks a resolve stage answered from the disk cache.
	StatusCached Status = "cached"
	StatusDone   Status = "done"
	StatusError  Status = "error"
)

// Event reports progress for a unit, or for the whole analysis when Unit
// is empty.
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Events of the resolve stage
// arrive from several goroutines.
type ProgressSink interface {
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

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
