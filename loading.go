package lapis

import (
	"sync"
	"time"
)

// LoadingMiddleware drives a Presenter: a debounced show, a hide once the
// call is over, then success or failure feedback based on the business
// result.
type LoadingMiddleware struct {
	presenter Presenter
	target    Target
	delay     time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	done     bool
	shown    bool
	queue    []UIEvent
	draining bool
}

// NewLoading returns a LoadingMiddleware. The show event fires only if the
// call is still running after delay.
func NewLoading(presenter Presenter, target Target, delay time.Duration) *LoadingMiddleware {
	if presenter == nil {
		presenter = PresenterFunc(func(Target, UIEvent) {})
	}
	return &LoadingMiddleware{presenter: presenter, target: target, delay: delay}
}

// PreHook schedules the show event.
func (m *LoadingMiddleware) PreHook(req *Request) *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.done && m.timer == nil {
		m.timer = time.AfterFunc(m.delay, m.show)
	}
	return req
}

func (m *LoadingMiddleware) show() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.shown = true
	m.queue = append(m.queue, UIEvent{Kind: EventShow})
	m.drainLocked()
}

func (m *LoadingMiddleware) complete() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	if m.timer != nil {
		m.timer.Stop()
	}
	if m.shown {
		m.queue = append(m.queue, UIEvent{Kind: EventHide})
	}
	m.drainLocked()
}

func (m *LoadingMiddleware) emit(ev UIEvent) {
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	m.drainLocked()
}

// drainLocked delivers queued events in order with m.mu released around each
// Present. Only one goroutine drains at a time; others just enqueue. It must
// be called with m.mu held and returns with it released.
func (m *LoadingMiddleware) drainLocked() {
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	for len(m.queue) > 0 {
		ev := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		m.presenter.Present(m.target, ev)
		m.mu.Lock()
	}
	m.draining = false
	m.mu.Unlock()
}

// PostHook marks the call complete on its first event or on cancel, then
// reports every value and the failure.
func (m *LoadingMiddleware) PostHook(s *Stream) *Stream {
	s.OnCancel(m.complete)
	return s.Do(
		func(resp *Response) {
			m.complete()
			result := resp.MapResult()
			if result.Success {
				m.emit(UIEvent{Kind: EventSuccess, Message: result.Message})
				return
			}
			m.emit(UIEvent{Kind: EventFailure, Message: result.Message})
		},
		func(err error) {
			m.complete()
			m.emit(UIEvent{Kind: EventFailure, Err: err})
		},
	)
}
