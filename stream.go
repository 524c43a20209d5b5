package lapis

import (
	"context"
	"iter"
	"sync"
)

// Event is one item of a Stream: either a Response or a failure.
type Event struct {
	Response *Response
	Err      error
}

// Stream is the push based result of a call. It normally carries exactly one
// Event; the Cache middleware's hit path carries two values (cached, then
// live). Operators return a new Stream sharing the cancellation of the
// original.
type Stream struct {
	events <-chan Event
	cancel *canceler
}

// canceler propagates Cancel from any derived Stream to the producer.
type canceler struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	onStop []func()
}

func newCanceler(stop ...func()) *canceler {
	return &canceler{done: make(chan struct{}), onStop: stop}
}

func (c *canceler) stop() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		fns := c.onStop
		c.onStop = nil
		c.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	})
}

func (c *canceler) register(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		go fn()
	default:
		c.onStop = append(c.onStop, fn)
	}
}

func (c *canceler) send(ch chan<- Event, ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case ch <- ev:
		return true
	case <-c.done:
		return false
	}
}

// NewStream runs produce on its own goroutine. emit returns false once the
// stream was canceled; produce should then return. ctx is canceled on Cancel
// and after produce returns.
func NewStream(parent context.Context, produce func(ctx context.Context, emit func(Event) bool)) *Stream {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan Event, 2)
	c := newCanceler(cancel)

	go func() {
		defer close(ch)
		defer cancel()
		produce(ctx, func(ev Event) bool { return c.send(ch, ev) })
	}()

	return &Stream{events: ch, cancel: c}
}

// Just returns a Stream emitting the given responses.
func Just(responses ...*Response) *Stream {
	ch := make(chan Event, len(responses))
	for _, r := range responses {
		ch <- Event{Response: r}
	}
	close(ch)
	return &Stream{events: ch, cancel: newCanceler()}
}

// Fail returns a Stream failing with err.
func Fail(err error) *Stream {
	ch := make(chan Event, 1)
	ch <- Event{Err: err}
	close(ch)
	return &Stream{events: ch, cancel: newCanceler()}
}

func (s *Stream) derive(forward func(ev Event, emit func(Event) bool) bool) *Stream {
	out := make(chan Event, 2)
	go func() {
		defer close(out)
		emit := func(ev Event) bool { return s.cancel.send(out, ev) }
		for ev := range s.events {
			if !forward(ev, emit) {
				return
			}
		}
	}()
	return &Stream{events: out, cancel: s.cancel}
}

// Map transforms every Response. Failures pass through.
func (s *Stream) Map(fn func(*Response) *Response) *Stream {
	return s.derive(func(ev Event, emit func(Event) bool) bool {
		if ev.Err == nil {
			ev.Response = fn(ev.Response)
		}
		return emit(ev)
	})
}

// Do observes every Event without altering it. Either callback may be nil.
func (s *Stream) Do(onValue func(*Response), onErr func(error)) *Stream {
	return s.derive(func(ev Event, emit func(Event) bool) bool {
		if ev.Err != nil {
			if onErr != nil {
				onErr(ev.Err)
			}
		} else if onValue != nil {
			onValue(ev.Response)
		}
		return emit(ev)
	})
}

// StartWith emits first ahead of the events of s.
func (s *Stream) StartWith(first *Response) *Stream {
	out := make(chan Event, 2)
	go func() {
		defer close(out)
		if !s.cancel.send(out, Event{Response: first}) {
			return
		}
		for ev := range s.events {
			if !s.cancel.send(out, ev) {
				return
			}
		}
	}()
	return &Stream{events: out, cancel: s.cancel}
}

// OnCancel registers fn to run when the stream is canceled.
func (s *Stream) OnCancel(fn func()) *Stream {
	s.cancel.register(fn)
	return s
}

// Cancel disposes the stream and aborts an in-flight transport call.
func (s *Stream) Cancel() {
	s.cancel.stop()
}

// Events exposes the underlying channel. It is closed after the last Event
// or after Cancel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Each calls fn for every Event until the stream completes, fn returns false
// or ctx is done. Stopping early cancels the stream.
func (s *Stream) Each(ctx context.Context, fn func(Event) bool) error {
	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return nil
			}
			if !fn(ev) {
				s.Cancel()
				return nil
			}
		case <-ctx.Done():
			s.Cancel()
			return ctx.Err()
		}
	}
}

// Collect drains the stream. It returns every Response received and the
// failure, if one ended the stream.
func (s *Stream) Collect(ctx context.Context) ([]*Response, error) {
	var (
		responses []*Response
		failure   error
	)
	err := s.Each(ctx, func(ev Event) bool {
		if ev.Err != nil {
			failure = ev.Err
			return false
		}
		responses = append(responses, ev.Response)
		return true
	})
	if err != nil {
		return responses, err
	}
	return responses, failure
}

// Last drains the stream and returns its final Response, which on a cache
// hit is the live one.
func (s *Stream) Last(ctx context.Context) (*Response, error) {
	responses, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, ErrCanceled
	}
	return responses[len(responses)-1], nil
}

// Decoded is a stream item decoded into a model.
type Decoded[T any] struct {
	Response *Response
	Result   Result
	Model    T
	Err      error
}

// ObjResults iterates the stream decoding every Response with MapObjResult.
// Breaking out of the loop cancels the stream.
func ObjResults[T any](s *Stream) iter.Seq[Decoded[T]] {
	return func(yield func(Decoded[T]) bool) {
		for ev := range s.events {
			d := Decoded[T]{Response: ev.Response, Err: ev.Err}
			if ev.Err == nil {
				d.Result, d.Model = MapObjResult[T](ev.Response)
			}
			if !yield(d) {
				s.Cancel()
				return
			}
		}
	}
}

// ArrayResults is ObjResults for array models.
func ArrayResults[T any](s *Stream) iter.Seq[Decoded[[]T]] {
	return func(yield func(Decoded[[]T]) bool) {
		for ev := range s.events {
			d := Decoded[[]T]{Response: ev.Response, Err: ev.Err}
			if ev.Err == nil {
				d.Result, d.Model = MapArrayResult[T](ev.Response)
			}
			if !yield(d) {
				s.Cancel()
				return
			}
		}
	}
}
