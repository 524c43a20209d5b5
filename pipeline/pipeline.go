// Package pipeline composes two-hook middlewares around a base operation.
//
// A middleware sees the input before the operation runs (PreHook) and the
// output after it returns (PostHook). Composing a middleware onto an
// operation yields a new operation of the same shape, and every newly
// composed middleware becomes the outermost layer:
//
//	op := pipeline.Chain(base, m1, m2)
//	// pre hooks:  m2, m1, then base
//	// post hooks: m1, m2, then the caller
//
// Middlewares may keep state between their own PreHook and PostHook, so a
// fresh instance is expected for every call of the composed operation.
package pipeline

// Operation is a unit of work from I to O.
type Operation[I, O any] func(I) O

// Hooks is the capability every middleware implements.
type Hooks[I, O any] interface {
	PreHook(in I) I
	PostHook(out O) O
}

// HookFuncs adapts plain functions to Hooks. A nil function is the identity.
type HookFuncs[I, O any] struct {
	Pre  func(I) I
	Post func(O) O
}

// PreHook implements Hooks.
func (h HookFuncs[I, O]) PreHook(in I) I {
	if h.Pre == nil {
		return in
	}
	return h.Pre(in)
}

// PostHook implements Hooks.
func (h HookFuncs[I, O]) PostHook(out O) O {
	if h.Post == nil {
		return out
	}
	return h.Post(out)
}

// Compose wraps op with m, making m the outermost layer.
func Compose[I, O any](op Operation[I, O], m Hooks[I, O]) Operation[I, O] {
	if m == nil {
		return op
	}
	return func(in I) O {
		return m.PostHook(op(m.PreHook(in)))
	}
}

// Chain composes ms onto op from left to right, so the last middleware ends
// up outermost.
func Chain[I, O any](op Operation[I, O], ms ...Hooks[I, O]) Operation[I, O] {
	for _, m := range ms {
		op = Compose(op, m)
	}
	return op
}
