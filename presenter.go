package lapis

import "sync"

// TargetKind selects where loading feedback is rendered.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetView
	TargetPage
)

func (k TargetKind) String() string {
	switch k {
	case TargetNone:
		return "none"
	case TargetView:
		return "view"
	case TargetPage:
		return "page"
	default:
		return "unknown"
	}
}

// Target identifies a UI region. Name is free form and only meaningful to the
// Presenter.
type Target struct {
	Kind TargetKind
	Name string
}

// EventKind is the kind of a UIEvent.
type EventKind int

const (
	EventShow EventKind = iota
	EventHide
	EventSuccess
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventShow:
		return "show"
	case EventHide:
		return "hide"
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// UIEvent is delivered to a Presenter. Failure events carry either the
// business Message or the transport Err.
type UIEvent struct {
	Kind    EventKind
	Message string
	Err     error
}

// Presenter renders loading feedback. Present may be called from any
// goroutine.
type Presenter interface {
	Present(target Target, event UIEvent)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(target Target, event UIEvent)

// Present implements Presenter.
func (f PresenterFunc) Present(target Target, event UIEvent) { f(target, event) }

type logPresenter struct {
	logger Logger
}

// NewLogPresenter returns a Presenter that writes every event to logger.
func NewLogPresenter(logger Logger) Presenter {
	if logger == nil {
		logger = NopLogger()
	}
	return &logPresenter{logger: logger}
}

func (p *logPresenter) Present(target Target, event UIEvent) {
	kv := []interface{}{"target", target.Kind.String(), "name", target.Name, "event", event.Kind.String()}
	switch event.Kind {
	case EventFailure:
		if event.Err != nil {
			kv = append(kv, "error", event.Err.Error())
		} else {
			kv = append(kv, "message", event.Message)
		}
		p.logger.Warn("Loading failed", kv...)
	case EventSuccess:
		p.logger.Info("Loading succeeded", append(kv, "message", event.Message)...)
	default:
		p.logger.Debug("Loading indicator", kv...)
	}
}

// RecordingPresenter keeps every event it receives. It is useful in tests and
// in headless tools that render after the call.
type RecordingPresenter struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// RecordedEvent is an event captured by RecordingPresenter.
type RecordedEvent struct {
	Target Target
	Event  UIEvent
}

// Present implements Presenter.
func (p *RecordingPresenter) Present(target Target, event UIEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, RecordedEvent{Target: target, Event: event})
}

// Events returns a copy of the recorded events.
func (p *RecordingPresenter) Events() []RecordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RecordedEvent(nil), p.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (p *RecordingPresenter) Kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]EventKind, len(p.events))
	for i, e := range p.events {
		kinds[i] = e.Event.Kind
	}
	return kinds
}
